package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

var runFlags struct {
	ContextFile    string
	Description    string
	ProductService string
	TargetMarket   string
	IdealCustomer  string
	Industries     []string
	Locations      []string
	PainPoints     []string
	Competitors    []string
	UserID         string
}

// loadBusinessContext builds the run's context from the optional YAML file,
// with flags overriding file values.
func loadBusinessContext() (model.BusinessContext, error) {
	var bc model.BusinessContext

	if runFlags.ContextFile != "" {
		data, err := os.ReadFile(runFlags.ContextFile)
		if err != nil {
			return bc, eris.Wrapf(err, "read context file %s", runFlags.ContextFile)
		}
		if err := yaml.Unmarshal(data, &bc); err != nil {
			return bc, eris.Wrapf(err, "parse context file %s", runFlags.ContextFile)
		}
	}

	if runFlags.Description != "" {
		bc.Description = runFlags.Description
	}
	if runFlags.ProductService != "" {
		bc.ProductService = runFlags.ProductService
	}
	if runFlags.TargetMarket != "" {
		bc.TargetMarket = runFlags.TargetMarket
	}
	if runFlags.IdealCustomer != "" {
		bc.IdealCustomer = runFlags.IdealCustomer
	}
	if len(runFlags.Industries) > 0 {
		bc.IndustryFocus = runFlags.Industries
	}
	if len(runFlags.Locations) > 0 {
		bc.GeographicFocus = runFlags.Locations
	}
	if len(runFlags.PainPoints) > 0 {
		bc.PainPoints = runFlags.PainPoints
	}
	if len(runFlags.Competitors) > 0 {
		bc.Competitors = runFlags.Competitors
	}

	if bc.Description == "" {
		return bc, eris.New("a business description is required (--description or --context-file)")
	}
	return bc, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one lead-generation pipeline and print events as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := loadBusinessContext()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Store.CreateJob(ctx, runFlags.UserID, bc)
		if err != nil {
			return eris.Wrap(err, "create job")
		}

		enc := json.NewEncoder(os.Stdout)
		var failed bool
		for ev := range env.Pipeline.Stream(ctx, job) {
			if err := enc.Encode(ev); err != nil {
				return eris.Wrap(err, "encode event")
			}
			if ev.Type == model.EventPipelineError {
				failed = true
			}
		}

		if failed {
			return eris.New("pipeline run failed")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.ContextFile, "context-file", "", "YAML file with the business context")
	runCmd.Flags().StringVar(&runFlags.Description, "description", "", "business description")
	runCmd.Flags().StringVar(&runFlags.ProductService, "product", "", "product or service offered")
	runCmd.Flags().StringVar(&runFlags.TargetMarket, "target-market", "", "target market description")
	runCmd.Flags().StringVar(&runFlags.IdealCustomer, "ideal-customer", "", "ideal customer description")
	runCmd.Flags().StringSliceVar(&runFlags.Industries, "industry", nil, "industry focus (repeatable)")
	runCmd.Flags().StringSliceVar(&runFlags.Locations, "location", nil, "geographic focus (repeatable)")
	runCmd.Flags().StringSliceVar(&runFlags.PainPoints, "pain-point", nil, "customer pain point (repeatable)")
	runCmd.Flags().StringSliceVar(&runFlags.Competitors, "competitor", nil, "competitor name (repeatable)")
	runCmd.Flags().StringVar(&runFlags.UserID, "user", "cli", "user id recorded on the job")
	rootCmd.AddCommand(runCmd)
}
