package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/labeler"
	"github.com/teemow/inboxbrief/internal/server"
)

func newLabelCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Classify inbox threads and tag them with the configured labels",
		Long: `Classify inbox threads with a language model and tag each with one of
the configured labels plus the processed label.

Which threads are inspected depends on the "style" parameter: "count" takes
the newest emailCount inbox threads, "days" takes inbox threads newer than
dayCount days. Threads already carrying the processed label are skipped
unless "resorting" is enabled.

Problems along the way are logged and the run continues; the command only
fails when it cannot start (no OAuth token, bad flags, lock held).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, globals, cmd.ErrOrStderr(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			result, _, err := a.sc.RunLabel(ctx, server.RunOptions{
				Account: globals.account,
				DryRun:  dryRun,
				Trigger: instrumentation.TriggerCLI,
			})
			if err != nil {
				return err
			}
			if dryRun {
				printDecisions(cmd.OutOrStdout(), result.Value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify and print the decisions without changing any labels")
	return cmd
}

// printDecisions writes one line per inspected thread.
func printDecisions(w io.Writer, r labeler.Report) {
	if r.Skipped {
		fmt.Fprintln(w, "skipped: api key not configured")
		return
	}
	for _, d := range r.Decisions {
		var changes []string
		for _, l := range d.Add {
			changes = append(changes, "+"+l)
		}
		for _, l := range d.Remove {
			changes = append(changes, "-"+l)
		}
		if len(changes) == 0 {
			changes = []string{"no change"}
		}
		fmt.Fprintf(w, "%s\t%s\t%q\t%s\n", d.ThreadID, d.Label, d.Subject, strings.Join(changes, " "))
	}
	fmt.Fprintf(w, "inspected %d, classified %d, catch-all %d, already processed %d, failed %d\n",
		r.Inspected, r.Classified, r.CatchAll, r.AlreadyProcessed, r.Failed)
}
