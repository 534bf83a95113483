package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/google"
)

func newAuthCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Gmail, Drive and Sheets for an account",
		Long: `Without --code, print the Google authorization URL for the account.
Open it, grant access, and run the command again with the code shown:

  inboxbrief auth --account work
  inboxbrief auth --account work --code 4/0Ab...

The OAuth client is read from GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
Tokens are stored per account in the user cache directory and refreshed
automatically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account := globals.account
			if code == "" {
				url, err := google.GetAuthURLForAccount(account)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Visit this URL to authorize account %q:\n\n%s\n\nThen run: inboxbrief auth --account %s --code <code>\n", account, url, account)
				return nil
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := google.SaveTokenForAccount(ctx, account, code); err != nil {
				return fmt.Errorf("failed to save token for account %s: %w", account, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %q authorized.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code to exchange for a token")
	return cmd
}
