package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/server"
)

func newDigestCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Summarize recent labeled email and mail the digest",
		Long: `Summarize the last summary_days days of email for every configured label
(except the catch-all and processed labels) and send one digest email.

The digest goes to the summary_emails recipients, or to the mailbox owner
when none are configured. With --dry-run the digest is printed instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, globals, cmd.ErrOrStderr(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			_, _, err = a.sc.RunDigest(ctx, server.RunOptions{
				Account: globals.account,
				DryRun:  dryRun,
				Trigger: instrumentation.TriggerCLI,
			})
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the digest to stdout instead of sending it")
	return cmd
}
