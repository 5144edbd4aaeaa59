package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prospect-labs/prospect-cli/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Export a job's enriched leads to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
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

		jobID := args[0]
		if _, err := st.GetJob(ctx, jobID); err != nil {
			return eris.Wrapf(err, "job %s", jobID)
		}

		leads, err := st.ListLeads(ctx, jobID)
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		if err := export.WriteLeadsXLSX(exportOut, leads); err != nil {
			return err
		}

		zap.L().Info("exported leads",
			zap.String("job_id", jobID),
			zap.Int("leads", len(leads)),
			zap.String("path", exportOut),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "leads.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
