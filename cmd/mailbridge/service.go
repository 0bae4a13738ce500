package main

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install or remove mailbridge as a background service (launchd/systemd)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install a user service that runs 'mailbridge serve' on login",
		RunE: func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}
			serveArgs := serviceArgs(resolveConfigPath(), envFile)

			switch runtime.GOOS {
			case "darwin":
				return installLaunchd(execPath, serveArgs)
			case "linux":
				return installSystemd(execPath, serveArgs)
			default:
				return fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", runtime.GOOS)
			}
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Remove the mailbridge user service",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch runtime.GOOS {
			case "darwin":
				return uninstallLaunchd()
			case "linux":
				return uninstallSystemd()
			default:
				return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
			}
		},
	})
	return cmd
}

// serviceArgs builds the serve invocation with absolute paths, since services
// do not start in the current directory.
func serviceArgs(cfgPath, envPath string) []string {
	args := []string{"serve"}
	if cfgPath != "" {
		if abs, err := filepath.Abs(cfgPath); err == nil {
			cfgPath = abs
		}
		args = append(args, "--config", cfgPath)
	}
	if envPath == "" {
		if _, err := os.Stat(".env"); err == nil {
			envPath = ".env"
		}
	}
	if envPath != "" {
		if abs, err := filepath.Abs(envPath); err == nil {
			envPath = abs
		}
		args = append(args, "--env-file", envPath)
	}
	return args
}

const (
	launchdLabel = "com.mailbridge.serve"
	systemdUnit  = "mailbridge.service"
)

func installLaunchd(execPath string, args []string) error {
	home, _ := os.UserHomeDir()
	plistDir := filepath.Join(home, "Library", "LaunchAgents")
	plistPath := filepath.Join(plistDir, launchdLabel+".plist")
	logPath := filepath.Join(home, "Library", "Logs", "mailbridge.log")
	plist := renderPlist(execPath, args, logPath)

	if err := os.MkdirAll(plistDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(plistPath, []byte(plist), 0o644); err != nil {
		return err
	}

	fmt.Printf("Service installed: %s\n", plistPath)
	fmt.Printf("To start: launchctl load %s\n", plistPath)
	fmt.Printf("To stop:  launchctl unload %s\n", plistPath)
	return nil
}

func uninstallLaunchd() error {
	home, _ := os.UserHomeDir()
	plistPath := filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist")
	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("remove plist: %w", err)
	}
	fmt.Printf("Service uninstalled: %s\n", plistPath)
	return nil
}

func installSystemd(execPath string, args []string) error {
	home, _ := os.UserHomeDir()
	unitDir := filepath.Join(home, ".config", "systemd", "user")
	unitPath := filepath.Join(unitDir, systemdUnit)

	unit := renderUnit(execPath, args)

	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(unitPath, []byte(unit), 0o644); err != nil {
		return err
	}

	fmt.Printf("Service installed: %s\n", unitPath)
	fmt.Printf("To start:  systemctl --user start mailbridge\n")
	fmt.Printf("To enable: systemctl --user enable mailbridge\n")
	fmt.Printf("To stop:   systemctl --user stop mailbridge\n")
	return nil
}

func uninstallSystemd() error {
	home, _ := os.UserHomeDir()
	unitPath := filepath.Join(home, ".config", "systemd", "user", systemdUnit)
	if err := os.Remove(unitPath); err != nil {
		return fmt.Errorf("remove unit: %w", err)
	}
	fmt.Printf("Service uninstalled: %s\n", unitPath)
	return nil
}

func renderPlist(execPath string, args []string, logPath string) string {
	var argXML strings.Builder
	for _, a := range append([]string{execPath}, args...) {
		fmt.Fprintf(&argXML, "        <string>%s</string>\n", xmlEscape(a))
	}

	plist := strings.ReplaceAll(launchdTemplate, "{{LABEL}}", xmlEscape(launchdLabel))
	plist = strings.ReplaceAll(plist, "{{ARGS}}", strings.TrimRight(argXML.String(), "\n"))
	return strings.ReplaceAll(plist, "{{LOG}}", xmlEscape(logPath))
}

func xmlEscape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s)) // strings.Builder never fails
	return sb.String()
}

func renderUnit(execPath string, args []string) string {
	words := make([]string, 0, len(args)+1)
	for _, a := range append([]string{execPath}, args...) {
		words = append(words, systemdQuote(a))
	}
	return strings.ReplaceAll(systemdTemplate, "{{EXEC}}", strings.Join(words, " "))
}

// systemdQuote renders one ExecStart word. Specifiers (%) and variables ($)
// are doubled everywhere; words with blanks, quotes or backslashes are
// double-quoted with C-style escapes.
func systemdQuote(arg string) string {
	arg = strings.ReplaceAll(arg, "%", "%%")
	arg = strings.ReplaceAll(arg, "$", "$$")
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\;") {
		return arg
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`).Replace(arg) + `"`
}

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{LABEL}}</string>
    <key>ProgramArguments</key>
    <array>
{{ARGS}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{LOG}}</string>
    <key>StandardErrorPath</key>
    <string>{{LOG}}</string>
</dict>
</plist>`

const systemdTemplate = `[Unit]
Description=mailbridge WhatsApp email notifier
After=network-online.target

[Service]
Type=simple
ExecStart={{EXEC}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target`
