package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxbrief application
var rootCmd = &cobra.Command{
	Use:   "inboxbrief",
	Short: "Labels your Gmail inbox and mails you an AI digest of it",
	Long: `inboxbrief classifies inbox threads into user defined labels with a
language model, and sends a digest summarizing recent mail per label.

Labels and run parameters live in two Google Sheets ("Gmail Labeler Labels"
and "Gmail Labeler Parameters") or a local TOML file.

It can run as:
  - Scheduled CLI jobs (label, digest)
  - An MCP (Model Context Protocol) server for AI assistants (serve)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnvFile(globals.envFile); err != nil {
			return err
		}
		return applyEnv(cmd, &globals)
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxbrief version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	addGlobalFlags(rootCmd, &globals)

	rootCmd.AddCommand(newLabelCmd())
	rootCmd.AddCommand(newDigestCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. An empty path tries .env and ignores its absence.
func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyEnv fills options from environment variables. Environment variables
// only apply when the flag was not set explicitly.
func applyEnv(cmd *cobra.Command, o *globalOptions) error {
	flags := cmd.Flags()
	strs := []struct {
		flag string
		env  string
		dst  *string
	}{
		{"account", "INBOXBRIEF_ACCOUNT", &o.account},
		{"config-source", "INBOXBRIEF_CONFIG_SOURCE", &o.configSource},
		{"config-file", "INBOXBRIEF_CONFIG_FILE", &o.configFile},
		{"labels-sheet", "INBOXBRIEF_LABELS_SHEET", &o.labelsSheet},
		{"parameters-sheet", "INBOXBRIEF_PARAMETERS_SHEET", &o.parametersSheet},
		{"lock", "INBOXBRIEF_LOCK", &o.lock},
		{"lock-dir", "INBOXBRIEF_LOCK_DIR", &o.lockDir},
		{"redis-url", "REDIS_URL", &o.redisURL},
		{"log-level", "LOG_LEVEL", &o.logLevel},
		{"log-format", "LOG_FORMAT", &o.logFormat},
		{"pushgateway-url", "PUSHGATEWAY_URL", &o.pushgatewayURL},
		{"openai-base-url", "OPENAI_BASE_URL", &o.openAIBaseURL},
		{"timezone", "INBOXBRIEF_TIMEZONE", &o.timezone},
	}
	for _, s := range strs {
		if flags.Changed(s.flag) {
			continue
		}
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}

	if !flags.Changed("completion-rpm") {
		if v := os.Getenv("INBOXBRIEF_COMPLETION_RPM"); v != "" {
			rpm, err := strconv.Atoi(v)
			if err != nil || rpm < 0 {
				return fmt.Errorf("invalid INBOXBRIEF_COMPLETION_RPM %q", v)
			}
			o.completionRPM = rpm
		}
	}
	return nil
}
