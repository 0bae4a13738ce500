package main

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mailbridge/internal/config"
	"mailbridge/internal/mailbox"
	"mailbridge/internal/messaging"
)

const doctorTestMessage = "Health check: WhatsApp integration working ✓"

func doctorCmd() *cobra.Command {
	var sendTest bool
	var to string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run live diagnostic checks against the mailbox and Twilio",
		Long: `Verifies that the configuration is complete, that the IMAP mailbox can be
read, and (with --send-test) that Twilio accepts an outbound WhatsApp message.
Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("mailbridge Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, failed, warned := 0, 0, 0

			// 1. Config loads and validates
			cfg, err := loadConfig()
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\nRun 'mailbridge config init' to create a default configuration.\n")
				return fmt.Errorf("config invalid")
			}
			printPass("Config validation", "valid")
			passed++

			// 2. Required settings
			if missing := config.Preflight(cfg); len(missing) > 0 {
				printFail("Environment", "missing: "+strings.Join(missing, ", "))
				failed++
			} else {
				printPass("Environment", "all required variables set")
				passed++
			}

			// 3. Live mailbox query
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			addr := net.JoinHostPort(cfg.Mailbox.Host, strconv.Itoa(cfg.Mailbox.Port))
			gw := mailbox.NewFromConfig(cfg.Mailbox, logger)
			if rep, err := gw.Fetch(ctx, cfg.Mailbox.Limit); err != nil {
				printFail("Mailbox (IMAP)", fmt.Sprintf("%s: %v", addr, err))
				failed++
			} else if err := checkLimit(rep, cfg.Mailbox.Limit); err != nil {
				printFail("Mailbox (IMAP)", err.Error())
				failed++
			} else {
				readable := countEntries(mailbox.Format(rep.Items))
				printPass("Mailbox (IMAP)", fmt.Sprintf("%s, %d unread, %d listed (%d readable, max %d)",
					addr, rep.Unseen, len(rep.Items), readable, cfg.Mailbox.Limit))
				passed++
			}

			// 4. Outbound WhatsApp
			if !sendTest {
				printWarn("WhatsApp (Twilio)", "skipped (use --send-test to send a live message)")
				warned++
			} else {
				if to == "" {
					to = firstAllowed(cfg.WhatsApp.AllowedNumbers)
				}
				if err := sendTestMessage(ctx, cfg, to); err != nil {
					printFail("WhatsApp (Twilio)", err.Error())
					failed++
				} else {
					printPass("WhatsApp (Twilio)", fmt.Sprintf("%s → %s", cfg.Twilio.WhatsAppFrom, to))
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running mailbridge.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			fmt.Printf("\nAll checks passed! mailbridge is ready to run.\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&sendTest, "send-test", false, "send a live test message through Twilio")
	cmd.Flags().StringVar(&to, "to", "", "destination for --send-test (default: first allowed number)")
	return cmd
}

func sendTestMessage(ctx context.Context, cfg *config.Config, to string) error {
	if to == "" {
		return fmt.Errorf("no destination: set ALLOWED_NUMBERS or pass --to")
	}
	tw, err := messaging.NewTwilio(cfg.Twilio, logger)
	if err != nil {
		return err
	}
	receipt, err := tw.Send(ctx, doctorTestMessage, to)
	if err != nil {
		return err
	}
	fmt.Printf("         Message SID: %s\n", receipt.ID)
	return nil
}

// checkLimit verifies that a query listed min(unseen, limit) messages.
func checkLimit(rep mailbox.Report, limit int) error {
	want := min(rep.Unseen, limit)
	if len(rep.Items) != want {
		return fmt.Errorf("%d emails listed, expected %d of %d unseen (limit %d)",
			len(rep.Items), want, rep.Unseen, limit)
	}
	return nil
}

var entryPattern = regexp.MustCompile(`(?m)^\d+\.\s+From:`)

// countEntries counts the numbered "From:" entries in a summary reply.
func countEntries(summary string) int {
	return len(entryPattern.FindAllStringIndex(summary, -1))
}

// firstAllowed picks the first address out of an allow-list string.
func firstAllowed(list string) string {
	for _, f := range strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n'
	}) {
		if f != "" {
			return f
		}
	}
	return ""
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
