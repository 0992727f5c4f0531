// Package report renders run ledgers as CSV, Markdown and HTML.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dgallion1/itemxtract/internal/forms"
	"github.com/dgallion1/itemxtract/internal/ledger"
)

const stampLayout = "2006-01-02 15:04:05"

// itemColumns lists every catalog item as (filing type, item) in column order.
func itemColumns() [][2]string {
	var cols [][2]string
	for _, ft := range forms.Types() {
		for _, it := range forms.Items(ft) {
			cols = append(cols, [2]string{ft, it.Number})
		}
	}
	return cols
}

func header(withStatus bool) []string {
	h := []string{"Ticker", "Year", "Filing Type"}
	if withStatus {
		h = append(h, "Download", "TOC")
	}
	for _, c := range itemColumns() {
		h = append(h, c[0]+" Item "+c[1])
	}
	return append(h, "Runtime (sec)")
}

func mark(ok bool) string {
	if ok {
		return "O"
	}
	return "X"
}

func row(rec ledger.FilingRecord, withStatus bool) []string {
	r := []string{rec.Identifier, strconv.Itoa(rec.Year), rec.FilingType}
	if withStatus {
		r = append(r, mark(rec.Fetched()), mark(rec.TOCFound))
	}
	for _, c := range itemColumns() {
		if c[0] != rec.FilingType {
			r = append(r, "")
			continue
		}
		r = append(r, mark(rec.HasItem(c[1])))
	}
	return append(r, fmt.Sprintf("%.2f", rec.Duration().Seconds()))
}

// CSVLog appends one row per completed filing to a CSV file. It is a
// ledger.Sink.
type CSVLog struct {
	path    string
	started time.Time

	mu      sync.Mutex
	written bool
}

// NewCSVLog names the log after the run start under dir.
func NewCSVLog(dir string, started time.Time) *CSVLog {
	return &CSVLog{
		path:    filepath.Join(dir, "extraction_"+started.Format("20060102_150405")+".csv"),
		started: started,
	}
}

func (l *CSVLog) Path() string { return l.path }

func (l *CSVLog) FilingCompleted(_ context.Context, rec ledger.FilingRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("csv log: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !l.written {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(l.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("csv log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !l.written {
		w.Write([]string{"Start Time: " + l.started.Format(stampLayout)})
		w.Write(header(true))
	}
	w.Write(row(rec, true))
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv log: %w", err)
	}
	l.written = true
	return nil
}

// WriteCSV writes the final run report: one row per filing followed by a
// summary block.
func WriteCSV(out io.Writer, sum ledger.Summary) error {
	w := csv.NewWriter(out)
	w.Write([]string{"Start Time: " + sum.StartedAt.Format(stampLayout)})
	w.Write(header(false))
	for _, rec := range sum.Filings {
		w.Write(row(rec, false))
	}
	w.Write([]string{})
	w.Write([]string{"End Time: " + sum.EndedAt.Format(stampLayout)})
	w.Write([]string{fmt.Sprintf("Total Runtime (sec): %.2f", sum.Duration().Seconds())})
	w.Write([]string{})
	w.Write([]string{"Summary"})
	w.Write([]string{"Total Filings", strconv.Itoa(sum.TotalFilings)})
	w.Write([]string{"Successful Downloads", strconv.Itoa(sum.SuccessfulFetch)})
	w.Write([]string{"TOC Found", strconv.Itoa(sum.TOCFound)})
	w.Write([]string{"Total Items Extracted", strconv.Itoa(sum.ItemsExtracted)})
	w.Flush()
	return w.Error()
}

// SaveCSV writes the final report to dir and returns its path.
func SaveCSV(dir string, sum ledger.Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	path := filepath.Join(dir, "report_"+sum.EndedAt.Format("20060102_150405")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	if err := WriteCSV(f, sum); err != nil {
		f.Close()
		return "", fmt.Errorf("save report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}
