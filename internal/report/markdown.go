package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/itemxtract/internal/ledger"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nao1215/markdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// WriteMarkdown writes a human-readable run summary.
func WriteMarkdown(w io.Writer, sum ledger.Summary) error {
	md := markdown.NewMarkdown(w)

	md.H1("Extraction Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + sum.RunID + "`"},
			{"Started", sum.StartedAt.Format(stampLayout)},
			{"Ended", sum.EndedAt.Format(stampLayout)},
			{"Runtime (sec)", fmt.Sprintf("%.2f", sum.Duration().Seconds())},
		},
	})
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Total filings", strconv.Itoa(sum.TotalFilings)},
			{"Successful downloads", strconv.Itoa(sum.SuccessfulFetch)},
			{"TOC found", strconv.Itoa(sum.TOCFound)},
			{"Items extracted", strconv.Itoa(sum.ItemsExtracted)},
			{"Filings with errors", strconv.Itoa(sum.FilingsWithError)},
		},
	})
	md.PlainText("")

	md.H2("Filings")
	md.PlainText("")
	if len(sum.Filings) == 0 {
		md.PlainText("No filings processed.")
		md.PlainText("")
		return md.Build()
	}
	rows := make([][]string, 0, len(sum.Filings))
	for _, rec := range sum.Filings {
		rows = append(rows, []string{
			rec.Identifier,
			strconv.Itoa(rec.Year),
			rec.FilingType,
			mark(rec.Fetched()),
			mark(rec.TOCFound),
			strings.Join(rec.Items, ", "),
			fmt.Sprintf("%.2f", rec.Duration().Seconds()),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Ticker", "Year", "Filing Type", "Download", "TOC", "Items", "Runtime (sec)"},
		Rows:   rows,
	})
	md.PlainText("")

	var failures []string
	for _, rec := range sum.Filings {
		for _, e := range rec.Errors {
			failures = append(failures, fmt.Sprintf("%s %d %s: %s", rec.Identifier, rec.Year, rec.FilingType, e))
		}
	}
	if len(failures) > 0 {
		md.H2("Errors")
		md.PlainText("")
		md.BulletList(failures...)
		md.PlainText("")
	}
	return md.Build()
}

var htmlPolicy = bluemonday.UGCPolicy()

// WriteHTML renders the Markdown summary as a standalone, sanitized page.
func WriteHTML(w io.Writer, sum ledger.Summary) error {
	var src bytes.Buffer
	if err := WriteMarkdown(&src, sum); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	var body bytes.Buffer
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := gm.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Extraction Report</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		htmlPolicy.SanitizeBytes(body.Bytes()))
	return err
}
