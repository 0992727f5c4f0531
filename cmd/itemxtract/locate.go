package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/dgallion1/itemxtract/internal/forms"
	"github.com/dgallion1/itemxtract/internal/rules"
	"github.com/dgallion1/itemxtract/internal/toc"
)

// NewLocateCmd creates the locate command.
func NewLocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate <file>",
		Short: "Show the table of contents of a local filing",
		Long: `Locate reads a filing from disk and prints the items of its table of
contents with the byte range each item resolves to.`,
		Args: cobra.ExactArgs(1),
		RunE: runLocateCmd,
	}
	cmd.Flags().StringP("filing", "f", forms.TenK, "Filing type (10-K, 10-Q)")
	cmd.Flags().BoolP("json", "j", false, "Print JSON instead of a Markdown table")
	return cmd
}

type locateRow struct {
	toc.Entry
	Start int `json:"start"`
	End   int `json:"end"`
}

func runLocateCmd(cmd *cobra.Command, args []string) error {
	raw, filingType, err := readFiling(cmd, args[0])
	if err != nil {
		return err
	}

	r := rules.Default()
	idx, err := toc.NewLocator(r).Locate(raw, filingType)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	ranges := toc.NewResolver(r).Resolve(raw, idx)

	rows := make([]locateRow, 0, len(idx))
	for _, id := range idx.SortedIDs() {
		row := locateRow{Entry: idx[id], Start: -1, End: -1}
		if rng, ok := ranges.Lookup(id); ok {
			row.Start, row.End = rng.Start, rng.End
		}
		rows = append(rows, row)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		start, end := "-", "-"
		if row.Start >= 0 {
			start, end = strconv.Itoa(row.Start), strconv.Itoa(row.End)
		}
		table = append(table, []string{row.ID, row.Title, row.Anchor, start, end})
	}
	md := markdown.NewMarkdown(cmd.OutOrStdout())
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Title", "Anchor", "Start", "End"},
		Rows:   table,
	})
	return md.Build()
}

// readFiling reads path and the validated --filing flag.
func readFiling(cmd *cobra.Command, path string) (string, string, error) {
	ft, err := cmd.Flags().GetString("filing")
	if err != nil {
		return "", "", err
	}
	ft = forms.Normalize(ft)
	if !forms.Supported(ft) {
		return "", "", fmt.Errorf("unsupported filing type %q (want one of %v)", ft, forms.Types())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(data), ft, nil
}
