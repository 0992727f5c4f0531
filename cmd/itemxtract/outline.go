package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/itemxtract/internal/doctree"
	"github.com/dgallion1/itemxtract/internal/forms"
	"github.com/dgallion1/itemxtract/internal/outline"
	"github.com/dgallion1/itemxtract/internal/rules"
	"github.com/dgallion1/itemxtract/internal/section"
	"github.com/dgallion1/itemxtract/internal/toc"
)

// NewOutlineCmd creates the outline command.
func NewOutlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outline <file>",
		Short: "Print the heading outline of a filing item",
		Long: `Outline reads a local filing, extracts one item (--item) and prints its
heading outline. Without --item the file is treated as the markup of a
single item.`,
		Args: cobra.ExactArgs(1),
		RunE: runOutlineCmd,
	}
	cmd.Flags().StringP("filing", "f", forms.TenK, "Filing type (10-K, 10-Q)")
	cmd.Flags().StringP("item", "i", "", "Item to outline, e.g. 7 or 1A")
	cmd.Flags().BoolP("json", "j", false, "Print the outline as JSON")
	return cmd
}

func runOutlineCmd(cmd *cobra.Command, args []string) error {
	raw, filingType, err := readFiling(cmd, args[0])
	if err != nil {
		return err
	}
	r := rules.Default()

	markup := raw
	if item, _ := cmd.Flags().GetString("item"); item != "" {
		ids := forms.NormalizeItems([]string{item})
		if len(ids) != 1 {
			return fmt.Errorf("invalid item %q", item)
		}
		idx, err := toc.NewLocator(r).Locate(raw, filingType)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		sec, err := section.NewExtractor(r).Extract(raw, ids[0], idx)
		if err != nil {
			return err
		}
		markup = sec.Markup
	}

	tree, err := outline.NewBuilder(r).Build(markup)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(tree)
	}
	printOutline(cmd.OutOrStdout(), tree)
	return nil
}

// printOutline writes one line per node: its heading trail, then the body
// indented below it.
func printOutline(w io.Writer, tree []*doctree.Node) {
	trails := doctree.Breadcrumb(tree)
	doctree.Walk(tree, func(n, _ *doctree.Node) bool {
		indent := strings.Repeat("  ", n.Depth-1)
		if trail := trails[n]; len(trail) > 0 {
			fmt.Fprintf(w, "%s%s\n", indent, strings.Join(trail, " > "))
		}
		if n.Body != "" {
			fmt.Fprintf(w, "%s  %s\n", indent, n.Body)
		}
		return true
	})
}
