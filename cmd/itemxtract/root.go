package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = ""

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "itemxtract",
		Short: "Extract items from SEC 10-K and 10-Q filings",
		Long: `itemxtract locates the table of contents of SEC 10-K and 10-Q filings,
cuts each listed item out of the document and stores it as JSON together
with an outline of its headings.

Configuration comes from the environment (or a .env file). SEC_USER_AGENT
is required for anything that talks to EDGAR.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewLocateCmd())
	cmd.AddCommand(NewOutlineCmd())
	cmd.AddCommand(NewReportCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// setupLogger logs as text to stderr and, when logDir is set, also to
// logDir/extraction_<started>.log. The returned func closes the file.
func setupLogger(stderr io.Writer, verbose bool, logDir string, started time.Time) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if logDir == "" {
		return slog.New(slog.NewTextHandler(stderr, opts)), func() {}, nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(logDir, "extraction_"+started.Format("20060102_150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log := slog.New(slog.NewTextHandler(io.MultiWriter(stderr, f), opts))
	return log, func() { f.Close() }, nil
}
