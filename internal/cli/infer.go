package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lazypower/rapport/internal/client"
	"github.com/lazypower/rapport/internal/engine"
)

var (
	inferServer    string
	inferSessionID string
	inferOffline   bool
)

var inferCmd = &cobra.Command{
	Use:   "infer <user-a-id> <user-b-id>",
	Short: "Infer the connection type for a user pair",
	Long: "Infer the connection type for a user pair against the local database. " +
		"With --server, ask a running rapport server instead.",
	Args: cobra.ExactArgs(2),
	RunE: runInfer,
}

func init() {
	inferCmd.Flags().StringVar(&inferServer, "server", "", "query a running server at this URL instead of the local database")
	inferCmd.Flags().StringVar(&inferSessionID, "session", "", "session id sent as X-Session-ID with --server")
	inferCmd.Flags().BoolVar(&inferOffline, "heuristic-only", false, "skip the external extractor")
}

func parsePair(args []string) (int64, int64, error) {
	a, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("user-a-id must be an integer: %q", args[0])
	}
	b, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("user-b-id must be an integer: %q", args[1])
	}
	return a, b, nil
}

func runInfer(cmd *cobra.Command, args []string) error {
	a, b, err := parsePair(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var res *engine.Result
	if inferServer != "" {
		res, err = client.New(inferServer, inferSessionID).Connection(ctx, a, b)
	} else {
		var local *app
		local, err = openApp(ctx)
		if err != nil {
			return err
		}
		defer local.Close()

		var eng *engine.Engine
		eng, err = local.engine(!inferOffline, nil)
		if err != nil {
			return err
		}
		res, err = eng.Infer(ctx, a, b)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
