package edgar

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// IndexEntry is one line of a quarterly company.idx file.
type IndexEntry struct {
	Company   string
	Form      string
	CIK       string // ten digits
	DateFiled string
	FileName  string
}

// Year is the year of DateFiled, or 0 when the date is malformed.
func (e IndexEntry) Year() int {
	if len(e.DateFiled) < 4 {
		return 0
	}
	y, err := strconv.Atoi(e.DateFiled[:4])
	if err != nil {
		return 0
	}
	return y
}

// Fixed-width column starts used by older company.idx files.
const (
	colForm = 62
	colCIK  = 74
	colDate = 86
	colFile = 98
)

// ParseCompanyIndex returns the entries of content whose form type equals
// filingType exactly. Lines before the dashed separator are header.
func ParseCompanyIndex(content, filingType string) []IndexEntry {
	var out []IndexEntry
	started := false
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "---") {
			started = true
			continue
		}
		if !started || strings.TrimSpace(line) == "" {
			continue
		}

		e, ok := parseIndexLine(line)
		if !ok || e.Form != filingType {
			continue
		}
		out = append(out, e)
	}
	return out
}

func parseIndexLine(line string) (IndexEntry, bool) {
	if parts := strings.Split(line, "|"); len(parts) >= 5 {
		return IndexEntry{
			Company:   strings.TrimSpace(parts[0]),
			Form:      strings.TrimSpace(parts[1]),
			CIK:       PadCIK(parts[2]),
			DateFiled: strings.TrimSpace(parts[3]),
			FileName:  strings.TrimSpace(parts[4]),
		}, true
	}
	if len(line) < colFile {
		return IndexEntry{}, false
	}
	return IndexEntry{
		Company:   strings.TrimSpace(line[:colForm]),
		Form:      strings.TrimSpace(line[colForm:colCIK]),
		CIK:       PadCIK(line[colCIK:colDate]),
		DateFiled: strings.TrimSpace(line[colDate:colFile]),
		FileName:  strings.TrimSpace(line[colFile:]),
	}, true
}

// CompanyIndex downloads company.idx for one quarter. A quarter that is not
// published yet yields no entries and no error.
func (c *Client) CompanyIndex(ctx context.Context, year, quarter int, filingType string) ([]IndexEntry, error) {
	url := fmt.Sprintf("%s/Archives/edgar/full-index/%d/QTR%d/company.idx", c.baseURL, year, quarter)
	body, err := c.get(ctx, url)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("full index %d Q%d: %w", year, quarter, err)
	}
	return ParseCompanyIndex(string(body), filingType), nil
}

// CompaniesFiling lists every company that filed filingType in any of years,
// one entry per (CIK, filing year), newest first. Quarters that fail are
// logged and skipped.
func (c *Client) CompaniesFiling(ctx context.Context, log *slog.Logger, filingType string, years []int) ([]IndexEntry, error) {
	type key struct{ cik, year string }
	seen := make(map[key]bool)
	var out []IndexEntry

	for _, year := range years {
		for quarter := 1; quarter <= 4; quarter++ {
			entries, err := c.CompanyIndex(ctx, year, quarter, filingType)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.Warn("full index quarter skipped", "year", year, "quarter", quarter, "error", err)
				continue
			}
			for _, e := range entries {
				filed := fmt.Sprint(year)
				if len(e.DateFiled) >= 4 {
					filed = e.DateFiled[:4]
				}
				k := key{e.CIK, filed}
				if seen[k] {
					continue
				}
				seen[k] = true
				out = append(out, e)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b IndexEntry) int {
		return cmp.Compare(b.DateFiled, a.DateFiled)
	})
	return out, nil
}
