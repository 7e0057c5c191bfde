package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lazypower/rapport/internal/store"
	"github.com/lazypower/rapport/internal/transcript"
)

var importCmd = &cobra.Command{
	Use:   "import <messages.jsonl>",
	Short: "Import direct messages from a JSONL export",
	Long: "Import one JSON object per line: {\"sender_id\", \"receiver_id\", \"message\", \"sent_at\"}. " +
		"sent_at is Unix milliseconds or RFC 3339. Malformed lines are skipped.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	batch, err := transcript.ParseFile(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	msgs := make([]store.Message, len(batch.Messages))
	for i, m := range batch.Messages {
		msgs[i] = store.Message{
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Body:       m.Text,
			SentAt:     m.SentAt,
		}
	}

	batchID := uuid.NewString()
	n, err := a.db.AddMessages(ctx, msgs, batchID)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	a.logger.Info("import complete", "file", args[0], "batch", batchID, "imported", n, "skipped", batch.Skipped)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d messages (skipped %d), batch %s\n", n, batch.Skipped, batchID)
	return nil
}
