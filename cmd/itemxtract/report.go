package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dgallion1/itemxtract/internal/config"
	"github.com/dgallion1/itemxtract/internal/database"
	"github.com/dgallion1/itemxtract/internal/ledger"
	"github.com/dgallion1/itemxtract/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Render the report of a past run",
		Long: `Report reads the filings of a past run from the run database
(RUN_DB_PATH) and prints its summary as CSV, Markdown or HTML.`,
		Args: cobra.ExactArgs(1),
		RunE: runReportCmd,
	}
	cmd.Flags().StringP("format", "F", "md", "Output format: csv, md or html")
	return cmd
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if report.ContentType(format) == "" {
		return fmt.Errorf("unsupported format %q (want csv, md or html)", format)
	}

	cfg := config.Load()
	runs, err := database.Open(cfg.RunDBPath)
	if err != nil {
		return err
	}
	defer runs.Close()

	sum, err := loadRun(cmd.Context(), runs, args[0])
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), format, sum)
}

func loadRun(ctx context.Context, runs *database.RunDB, runID string) (ledger.Summary, error) {
	recs, err := runs.List(ctx, database.Filter{RunID: runID, Limit: 100000})
	if err != nil {
		return ledger.Summary{}, err
	}
	if len(recs) == 0 {
		return ledger.Summary{}, fmt.Errorf("run %s not found", runID)
	}
	// The database lists newest first.
	slices.Reverse(recs)
	return ledger.Summarize(runID, recs), nil
}
