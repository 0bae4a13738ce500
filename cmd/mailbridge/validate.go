package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mailbridge/internal/config"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every required setting is present",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Validating environment configuration...")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if missing := config.Preflight(cfg); len(missing) > 0 {
				fmt.Fprintln(os.Stderr, "ERROR: Missing required environment variables:")
				for _, name := range missing {
					fmt.Fprintf(os.Stderr, "  - %s\n", name)
				}
				fmt.Fprintln(os.Stderr, "\nPlease set these variables in your .env file")
				return fmt.Errorf("%d required setting(s) missing", len(missing))
			}

			s := config.Sanitize(cfg)
			fmt.Println("SUCCESS: All required environment variables are set")
			fmt.Printf("Email: %s\n", cfg.Mailbox.User)
			fmt.Printf("Twilio SID: %s\n", s.Twilio.AccountSID)
			fmt.Printf("WhatsApp From: %s\n", cfg.Twilio.WhatsAppFrom)
			fmt.Printf("Authorized Numbers: %s\n", cfg.WhatsApp.AllowedNumbers)
			return nil
		},
	}
}
