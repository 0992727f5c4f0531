package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/itemxtract/internal/ledger"
)

// ErrUnknownFormat is returned by Write for anything but csv, md and html.
var ErrUnknownFormat = errors.New("unknown report format")

var contentTypes = map[string]string{
	"csv":      "text/csv; charset=utf-8",
	"md":       "text/markdown; charset=utf-8",
	"markdown": "text/markdown; charset=utf-8",
	"html":     "text/html; charset=utf-8",
}

// ContentType returns the media type of format, or "" if unknown.
func ContentType(format string) string {
	return contentTypes[strings.ToLower(format)]
}

// Write renders sum in the named format.
func Write(w io.Writer, format string, sum ledger.Summary) error {
	switch strings.ToLower(format) {
	case "csv":
		return WriteCSV(w, sum)
	case "md", "markdown":
		return WriteMarkdown(w, sum)
	case "html":
		return WriteHTML(w, sum)
	default:
		return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}
