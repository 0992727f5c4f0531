package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Document is a downloaded filing.
type Document struct {
	Content string
	// Format is "htm" or "html", taken from the document URL.
	Format string
	URL    string
}

// Filing is one row of a company's submission history.
type Filing struct {
	AccessionNumber string
	FilingDate      string
	Form            string
	PrimaryDocument string
}

type tickerRow struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

type submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// PadCIK zero-pads a numeric CIK to ten digits.
func PadCIK(cik string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	if cik == "" {
		cik = "0"
	}
	return fmt.Sprintf("%010s", cik)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveCIK turns a ticker or CIK into a ten-digit CIK. The ticker table
// is downloaded once per client.
func (c *Client) ResolveCIK(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if isDigits(identifier) {
		return PadCIK(identifier), nil
	}

	tickers, err := c.tickerTable(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", identifier, err)
	}
	cik, ok := tickers[strings.ToUpper(identifier)]
	if !ok {
		return "", fmt.Errorf("resolve %s: %w", identifier, ErrUnknownTicker)
	}
	return cik, nil
}

func (c *Client) tickerTable(ctx context.Context) (map[string]string, error) {
	c.tickersMu.Lock()
	defer c.tickersMu.Unlock()
	if c.tickers != nil {
		return c.tickers, nil
	}

	body, err := c.get(ctx, c.baseURL+"/files/company_tickers.json")
	if err != nil {
		return nil, fmt.Errorf("ticker table: %w", err)
	}
	var rows map[string]tickerRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode ticker table: %w", err)
	}
	tickers := make(map[string]string, len(rows))
	for _, r := range rows {
		if r.Ticker == "" {
			continue
		}
		tickers[strings.ToUpper(r.Ticker)] = PadCIK(strconv.FormatInt(r.CIK, 10))
	}
	c.tickers = tickers
	return tickers, nil
}

// Filings lists the company's recent submissions, newest first as EDGAR
// returns them.
func (c *Client) Filings(ctx context.Context, cik string) ([]Filing, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, PadCIK(cik)))
	if err != nil {
		return nil, fmt.Errorf("submissions %s: %w", cik, err)
	}
	var sub submissions
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("decode submissions %s: %w", cik, err)
	}

	recent := sub.Filings.Recent
	n := min(len(recent.AccessionNumber), len(recent.FilingDate), len(recent.Form), len(recent.PrimaryDocument))
	out := make([]Filing, 0, n)
	for i := range n {
		out = append(out, Filing{
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      recent.FilingDate[i],
			Form:            recent.Form[i],
			PrimaryDocument: recent.PrimaryDocument[i],
		})
	}
	return out, nil
}

// FindFiling picks the first original (non-amended) filing of the form
// filed in year whose primary document is markup.
func FindFiling(filings []Filing, filingType string, year int) (Filing, bool) {
	prefix := strconv.Itoa(year) + "-"
	for _, f := range filings {
		if f.Form != filingType || !strings.HasPrefix(f.FilingDate, prefix) {
			continue
		}
		if documentFormat(f.PrimaryDocument) == "" {
			continue
		}
		return f, true
	}
	return Filing{}, false
}

// FilingURL is the archive location of a filing's primary document.
func (c *Client) FilingURL(cik string, f Filing) string {
	cikNum := strings.TrimLeft(cik, "0")
	accession := strings.ReplaceAll(f.AccessionNumber, "-", "")
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", c.baseURL, cikNum, accession, f.PrimaryDocument)
}

// FetchFiling downloads the primary document of the company's filingType
// filing for year.
func (c *Client) FetchFiling(ctx context.Context, cik, filingType string, year int) (Document, error) {
	filings, err := c.Filings(ctx, cik)
	if err != nil {
		return Document{}, err
	}
	f, ok := FindFiling(filings, filingType, year)
	if !ok {
		return Document{}, fmt.Errorf("%s %s %d: %w", cik, filingType, year, ErrNoFiling)
	}

	url := c.FilingURL(cik, f)
	body, err := c.get(ctx, url)
	if err != nil {
		return Document{}, fmt.Errorf("download %s: %w", f.AccessionNumber, err)
	}
	return Document{
		Content: string(body),
		Format:  documentFormat(f.PrimaryDocument),
		URL:     url,
	}, nil
}

func documentFormat(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".htm":
		return "htm"
	case ".html":
		return "html"
	}
	return ""
}
