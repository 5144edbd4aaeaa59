package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/prospect-labs/prospect-cli/internal/tracker"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print aggregate query performance statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analytics"); err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		trk := tracker.New(st)
		if err := trk.LoadFromStore(ctx); err != nil {
			return eris.Wrap(err, "load performance history")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trk.Analytics())
	},
}

func init() {
	rootCmd.AddCommand(analyticsCmd)
}
