package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/rapport/internal/engine"
)

var backfillOpts engine.BackfillOptions

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute summaries for every stored conversation",
	Long: "Recompute connection summaries for existing user pairs from their most recent messages. " +
		"Uses heuristics only and ignores the cache.",
	Args: cobra.NoArgs,
	RunE: runBackfill,
}

func init() {
	f := backfillCmd.Flags()
	f.IntVar(&backfillOpts.LimitPerPair, "limit-messages-per-pair", 50, "most recent messages considered per pair")
	f.IntVar(&backfillOpts.MaxPairs, "max-pairs", 0, "stop after this many pairs (0 = all)")
	f.BoolVar(&backfillOpts.DryRun, "dry-run", false, "classify without writing summaries")
	f.IntVar(&backfillOpts.Concurrency, "concurrency", 4, "pairs processed in parallel")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	eng, err := a.engine(false, nil)
	if err != nil {
		return err
	}
	rep, err := eng.Backfill(ctx, a.db, backfillOpts)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	out := cmd.OutOrStdout()
	if backfillOpts.DryRun {
		fmt.Fprintf(out, "dry run %s: would process %d of %d pairs\n", rep.RunID, rep.Processed, rep.Pairs)
		return nil
	}
	fmt.Fprintf(out, "backfill %s: processed %d pairs (created %d, updated %d, failed %d) in %s\n",
		rep.RunID, rep.Processed, rep.Created, rep.Updated, rep.Failed, rep.Duration.Round(time.Millisecond))
	return nil
}
