package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/itemxtract/internal/config"
	"github.com/dgallion1/itemxtract/internal/database"
	"github.com/dgallion1/itemxtract/internal/edgar"
	"github.com/dgallion1/itemxtract/internal/forms"
	"github.com/dgallion1/itemxtract/internal/ledger"
	"github.com/dgallion1/itemxtract/internal/pathstore"
	"github.com/dgallion1/itemxtract/internal/pipeline"
	"github.com/dgallion1/itemxtract/internal/report"
	"github.com/dgallion1/itemxtract/internal/store"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [ticker-or-cik...]",
		Short: "Download filings and extract their items",
		Long: `Extract downloads the requested filings (unless already cached in the
output directory), finds their table of contents and writes one JSON record
and one outline per item.

Examples:
  # Every item of Apple's 2023 10-K
  itemxtract extract AAPL --years 2023

  # Items 1A and 7 of two companies' 10-K and 10-Q, four at a time
  itemxtract extract AAPL 789019 -f 10-K,10-Q -y 2022,2023 -i 1A,7 -w 4

  # A batch file
  itemxtract extract --jobs batch.yaml

Batch file example:
  companies: [AAPL, MSFT]
  filings: [10-K]
  years: [2022, 2023]
  items: [1, 1A, 7]
  workers: 4
  markdown: true`,
		Args: cobra.ArbitraryArgs,
		RunE: runExtractCmd,
	}

	cmd.Flags().StringSliceP("filing", "f", []string{forms.TenK}, "Filing types (10-K, 10-Q)")
	cmd.Flags().IntSliceP("years", "y", nil, "Filing years")
	cmd.Flags().StringSliceP("items", "i", nil, "Items to extract (default: every item in the table of contents)")
	cmd.Flags().IntP("workers", "w", 1, "Number of filings processed concurrently")
	cmd.Flags().StringP("jobs", "j", "", "YAML batch file; replaces companies, filing, years, items and workers")
	cmd.Flags().Bool("all-companies", false, "Process every company that filed in the given years")
	cmd.Flags().Bool("yes", false, "Confirm --all-companies")
	cmd.Flags().BoolP("markdown", "m", false, "Also write a Markdown rendering of every item")
	cmd.Flags().StringP("output", "o", "", "Output directory (default: OUTPUT_DIR)")

	return cmd
}

func runExtractCmd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.OutputDir = out
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	spec, err := buildBatchSpec(cmd, args)
	if err != nil {
		return err
	}
	spec.Normalize()
	if err := spec.Validate(time.Now()); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if spec.AllCompanies {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("--all-companies processes thousands of filings; pass --yes to confirm")
		}
	}
	markdown := spec.Markdown || cfg.WriteMarkdown
	if m, _ := cmd.Flags().GetBool("markdown"); m {
		markdown = true
	}

	started := time.Now()
	log, closeLog, err := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), cfg.LogDir, started)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sec := edgar.NewClient(edgar.Options{
		BaseURL:       cfg.SECBaseURL,
		DataURL:       cfg.SECDataURL,
		UserAgent:     cfg.SECUserAgent,
		Timeout:       cfg.SECTimeout,
		RatePerSecond: cfg.SECRateLimit,
	})

	tasks, err := buildTasks(ctx, log, sec, spec)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return errors.New("nothing to extract")
	}

	csvLog := report.NewCSVLog(cfg.LogDir, started)
	sinks := []ledger.Sink{csvLog}
	if runs, err := database.Open(cfg.RunDBPath); err != nil {
		log.Warn("run database unavailable, history not recorded", "path", cfg.RunDBPath, "error", err)
	} else {
		defer runs.Close()
		sinks = append(sinks, runs)
	}

	session := ledger.NewSession(log, sinks...)
	session.SetParams(map[string]any{
		"companies":     spec.Companies,
		"all_companies": spec.AllCompanies,
		"filings":       spec.Filings,
		"years":         spec.Years,
		"items":         spec.Items,
		"workers":       spec.Workers,
		"output_dir":    cfg.OutputDir,
	})

	deps := pipeline.Deps{
		Resolver: sec,
		Fetcher:  sec,
		Store:    store.NewFileStore(cfg.OutputDir),
		Markdown: markdown,
	}
	if cfg.PathstoreURL != "" {
		ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		defer ps.Close()
		deps.Mirror = ps
	}

	log.Info("starting extraction", "run_id", session.ID, "tasks", len(tasks), "workers", spec.Workers)
	pipeline.RunBatch(ctx, pipeline.NewWorker(deps, log), session, tasks, spec.Workers)

	sum := session.Summary()
	csvPath, err := report.SaveCSV(cfg.LogDir, sum)
	if err != nil {
		log.Error("save csv report failed", "error", err)
	}
	mdPath := filepath.Join(cfg.LogDir, "report_"+sum.EndedAt.Format("20060102_150405")+".md")
	if err := saveMarkdown(mdPath, sum); err != nil {
		log.Error("save markdown report failed", "error", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d filings, %d downloaded or cached, %d with table of contents, %d items, %d with errors (%.1fs)\n",
		sum.RunID, sum.TotalFilings, sum.SuccessfulFetch, sum.TOCFound, sum.ItemsExtracted, sum.FilingsWithError, sum.Duration().Seconds())
	if csvPath != "" {
		fmt.Fprintf(out, "report: %s\n", csvPath)
	}
	fmt.Fprintf(out, "extraction log: %s\n", csvLog.Path())

	if ctx.Err() != nil {
		return fmt.Errorf("extraction interrupted: %w", ctx.Err())
	}
	return nil
}

// buildBatchSpec reads --jobs when given, else the flags and arguments.
func buildBatchSpec(cmd *cobra.Command, args []string) (*config.BatchSpec, error) {
	flags := cmd.Flags()
	if path, _ := flags.GetString("jobs"); path != "" {
		spec, err := config.LoadBatch(path)
		if err != nil {
			return nil, err
		}
		if all, _ := flags.GetBool("all-companies"); all {
			spec.AllCompanies = true
		}
		return spec, nil
	}

	spec := &config.BatchSpec{Companies: args}
	var err error
	if spec.Filings, err = flags.GetStringSlice("filing"); err != nil {
		return nil, err
	}
	if spec.Years, err = flags.GetIntSlice("years"); err != nil {
		return nil, err
	}
	if spec.Items, err = flags.GetStringSlice("items"); err != nil {
		return nil, err
	}
	if spec.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if spec.AllCompanies, err = flags.GetBool("all-companies"); err != nil {
		return nil, err
	}
	return spec, nil
}

// buildTasks expands spec, listing companies from the EDGAR full index
// when AllCompanies is set.
func buildTasks(ctx context.Context, log *slog.Logger, sec *edgar.Client, spec *config.BatchSpec) ([]pipeline.Task, error) {
	if !spec.AllCompanies {
		return pipeline.Expand(spec.Companies, spec.Filings, spec.Years, spec.Items), nil
	}

	var tasks []pipeline.Task
	for _, ft := range spec.Filings {
		entries, err := sec.CompaniesFiling(ctx, log, ft, spec.Years)
		if err != nil {
			return nil, fmt.Errorf("list %s filers: %w", ft, err)
		}
		log.Info("listed filers", "filing_type", ft, "filings", len(entries))
		for _, e := range entries {
			if e.Year() == 0 {
				continue
			}
			tasks = append(tasks, pipeline.Task{Identifier: e.CIK, FilingType: ft, Year: e.Year(), Items: spec.Items})
		}
	}
	return tasks, nil
}

func saveMarkdown(path string, sum ledger.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteMarkdown(f, sum); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
