package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	sessionUser int64
	sessionTTL  time.Duration
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage API sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session and print its id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionUser <= 0 {
			return fmt.Errorf("--user must be a positive user id")
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.db.CreateSession(ctx, uuid.NewString(), sessionUser, sessionTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.SessionID)
		return nil
	},
}

var sessionRevokeCmd = &cobra.Command{
	Use:   "revoke <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.db.DeleteSession(ctx, args[0])
	},
}

var sessionPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.db.PurgeExpiredSessions(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired sessions\n", n)
		return nil
	},
}

func init() {
	sessionCreateCmd.Flags().Int64Var(&sessionUser, "user", 0, "user id the session belongs to")
	sessionCreateCmd.Flags().DurationVar(&sessionTTL, "ttl", 24*time.Hour, "session lifetime (0 = never expires)")

	sessionCmd.AddCommand(sessionCreateCmd, sessionRevokeCmd, sessionPurgeCmd)
}
