package section

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/dgallion1/itemxtract/internal/rules"
)

// Markdown renders a section's clean markup as Markdown, tables included.
// Page-break tokens are dropped.
func Markdown(markup string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(strings.ReplaceAll(markup, rules.PageBreakToken, ""))
	if err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
