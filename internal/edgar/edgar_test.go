package edgar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func noBackoff(int) time.Duration { return 0 }

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		BaseURL:       srv.URL,
		DataURL:       srv.URL,
		UserAgent:     "itemxtract-test test@example.com",
		RatePerSecond: 1000,
		Backoff:       noBackoff,
	})
}

const tickersJSON = `{
 "0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
 "1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"}
}`

const submissionsJSON = `{
 "cik": "320193",
 "name": "Apple Inc.",
 "filings": {"recent": {
  "accessionNumber": ["0000320193-24-000010", "0000320193-23-000108", "0000320193-23-000106", "0000320193-23-000077"],
  "filingDate":      ["2024-02-02",           "2023-11-20",           "2023-11-03",           "2023-08-04"],
  "form":            ["10-Q",                 "10-K/A",               "10-K",                 "10-Q"],
  "primaryDocument": ["aapl-20231230.htm",    "aapl-a.htm",           "aapl-20230930.htm",    "aapl-20230701.htm"]
 }}
}`

func TestResolveCIK(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/company_tickers.json" {
			http.NotFound(w, r)
			return
		}
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "test@example.com") {
			t.Errorf("missing user agent, got %q", ua)
		}
		hits.Add(1)
		io.WriteString(w, tickersJSON)
	}))
	defer srv.Close()
	c := newTestClient(srv)

	tests := []struct {
		in, want string
		err      error
	}{
		{"aapl", "0000320193", nil},
		{"MSFT", "0000789019", nil},
		{"320193", "0000320193", nil},
		{"0000320193", "0000320193", nil},
		{"NOPE", "", ErrUnknownTicker},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := c.ResolveCIK(context.Background(), tt.in)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected ticker table fetched once, got %d", n)
	}
}

func TestFetchFiling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/submissions/CIK0000320193.json":
			io.WriteString(w, submissionsJSON)
		case "/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm":
			io.WriteString(w, "<html>annual report</html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := newTestClient(srv)

	doc, err := c.FetchFiling(context.Background(), "0000320193", "10-K", 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != "<html>annual report</html>" || doc.Format != "htm" {
		t.Errorf("unexpected document %+v", doc)
	}
	if !strings.HasSuffix(doc.URL, "/aapl-20230930.htm") {
		t.Errorf("unexpected url %s", doc.URL)
	}

	_, err = c.FetchFiling(context.Background(), "0000320193", "10-K", 2019)
	if !errors.Is(err, ErrNoFiling) {
		t.Errorf("expected ErrNoFiling, got %v", err)
	}
}

func TestFindFiling_SkipsAmendmentsAndOtherYears(t *testing.T) {
	filings := []Filing{
		{Form: "10-K/A", FilingDate: "2023-12-01", PrimaryDocument: "a.htm"},
		{Form: "10-K", FilingDate: "2023-02-01", PrimaryDocument: "k.txt"},
		{Form: "10-K", FilingDate: "2023-01-15", PrimaryDocument: "k.html"},
		{Form: "10-K", FilingDate: "2022-01-15", PrimaryDocument: "old.htm"},
	}
	f, ok := FindFiling(filings, "10-K", 2023)
	if !ok || f.PrimaryDocument != "k.html" {
		t.Errorf("got %+v %v", f, ok)
	}
	if _, ok := FindFiling(filings, "10-Q", 2023); ok {
		t.Error("expected no 10-Q")
	}
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < MaxAttempts {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	body, err := newTestClient(srv).get(context.Background(), srv.URL+"/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "ok" || calls.Load() != MaxAttempts {
		t.Errorf("body %q after %d calls", body, calls.Load())
	}
}

func TestGet_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).get(context.Background(), srv.URL+"/x")
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if calls.Load() != MaxAttempts {
		t.Errorf("expected %d calls, got %d", MaxAttempts, calls.Load())
	}
}

func TestGet_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).get(context.Background(), srv.URL+"/x")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusForbidden {
		t.Fatalf("expected StatusError 403, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("403 must not be retryable")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
	if d := Backoff(10); d < 30*time.Second || d >= 45*time.Second {
		t.Errorf("expected capped backoff, got %v", d)
	}
}

func TestPadCIK(t *testing.T) {
	tests := map[string]string{
		"320193":     "0000320193",
		"0000320193": "0000320193",
		" 789019 ":   "0000789019",
		"0":          "0000000000",
	}
	for in, want := range tests {
		if got := PadCIK(in); got != want {
			t.Errorf("PadCIK(%q) = %q, want %q", in, got, want)
		}
	}
}

func fixedWidth(company, form, cik, date, file string) string {
	return fmt.Sprintf("%-62s%-12s%-12s%-12s%s", company, form, cik, date, file)
}

func TestParseCompanyIndex(t *testing.T) {
	content := strings.Join([]string{
		"Description:           Master Index of EDGAR Dissemination Feed by Company Name",
		"Last Data Received:    March 31, 2023",
		"",
		"Company Name                                                  Form Type   CIK         Date Filed  File Name",
		"---------------------------------------------------------------------------------------------------------------",
		fixedWidth("APPLE INC", "10-K", "320193", "2023-11-03", "edgar/data/320193/0000320193-23-000106.txt"),
		fixedWidth("APPLE INC", "10-K/A", "320193", "2023-11-20", "edgar/data/320193/0000320193-23-000108.txt"),
		fixedWidth("MICROSOFT CORP", "10-Q", "789019", "2023-04-25", "edgar/data/789019/x.txt"),
		"ACME CORP|10-K|42|2023-03-01|edgar/data/42/y.txt",
		"short line",
	}, "\n")

	got := ParseCompanyIndex(content, "10-K")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(got), got)
	}
	if got[0].Company != "APPLE INC" || got[0].CIK != "0000320193" || got[0].DateFiled != "2023-11-03" {
		t.Errorf("unexpected fixed-width entry %+v", got[0])
	}
	if got[1].Company != "ACME CORP" || got[1].CIK != "0000000042" || got[1].FileName != "edgar/data/42/y.txt" {
		t.Errorf("unexpected pipe entry %+v", got[1])
	}
	if got[0].Year() != 2023 || (IndexEntry{DateFiled: "n/a"}).Year() != 0 {
		t.Errorf("unexpected filing years")
	}
}

func TestCompaniesFiling(t *testing.T) {
	q1 := "---\n" +
		"ACME CORP|10-K|42|2023-03-01|a.txt\n" +
		"BETA INC|10-K|7|2023-02-01|b.txt\n"
	q2 := "---\n" +
		"ACME CORP|10-K|42|2023-05-01|c.txt\n" +
		"GAMMA LLC|10-K|9|2023-06-01|d.txt\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Archives/edgar/full-index/2023/QTR1/company.idx":
			io.WriteString(w, q1)
		case "/Archives/edgar/full-index/2023/QTR2/company.idx":
			io.WriteString(w, q2)
		case "/Archives/edgar/full-index/2023/QTR3/company.idx":
			http.Error(w, "denied", http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	got, err := newTestClient(srv).CompaniesFiling(context.Background(), log, "10-K", []int{2023})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, e := range got {
		names = append(names, e.Company+"@"+e.DateFiled)
	}
	want := "GAMMA LLC@2023-06-01,ACME CORP@2023-03-01,BETA INC@2023-02-01"
	if strings.Join(names, ",") != want {
		t.Errorf("got %s\nwant %s", strings.Join(names, ","), want)
	}
}
