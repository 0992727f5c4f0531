package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/itemxtract/internal/database"
	"github.com/dgallion1/itemxtract/internal/ledger"
)

const filing = `<html><body>
<table>
<tr><td><a href="#item1">Item 1.</a></td><td>Business</td></tr>
<tr><td><a href="#item7">Item 7.</a></td><td>Management's Discussion</td></tr>
</table>
<div id="item1"><p><span style="font-weight:bold">Overview</span></p><p>We make things.</p></div>
<div id="item7"><p>Item 7. MD&amp;A</p><p>Revenue grew.</p></div>
</body></html>`

const submissionsJSON = `{
 "cik": "320193",
 "filings": {"recent": {
  "accessionNumber": ["0000320193-23-000106"],
  "filingDate":      ["2023-11-03"],
  "form":            ["10-K"],
  "primaryDocument": ["aapl-20230930.htm"]
 }}
}`

// testEnv points every configured path into a temp dir.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SEC_USER_AGENT", "itemxtract test@example.com")
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("RUN_DB_PATH", filepath.Join(dir, "runs.db"))
	t.Setenv("PATHSTORE_URL", "")
	t.Setenv("WRITE_MARKDOWN", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFiling(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filing.htm")
	if err := os.WriteFile(path, []byte(filing), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "itemxtract" {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"extract", "locate", "outline", "report"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if cmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("missing --verbose flag")
	}
}

func TestLocateCmd(t *testing.T) {
	path := writeFiling(t)

	out, err := run(t, "locate", path)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	for _, want := range []string{"Item", "Business", "item7"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "locate", path, "--json")
	if err != nil {
		t.Fatalf("locate --json: %v", err)
	}
	var rows []locateRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(rows) != 2 || rows[0].ID != "1" || rows[1].ID != "7" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Start != strings.Index(filing, `<div id="item1">`) {
		t.Errorf("item 1 start = %d", rows[0].Start)
	}
}

func TestLocateCmd_Errors(t *testing.T) {
	path := writeFiling(t)
	noTOC := filepath.Join(t.TempDir(), "plain.htm")
	if err := os.WriteFile(noTOC, []byte("<p>nothing here</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"locate", filepath.Join(t.TempDir(), "none.htm")}},
		{"bad filing type", []string{"locate", path, "-f", "8-K"}},
		{"no table of contents", []string{"locate", noTOC}},
		{"no argument", []string{"locate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOutlineCmd(t *testing.T) {
	path := writeFiling(t)

	out, err := run(t, "outline", path, "--item", "1")
	if err != nil {
		t.Fatalf("outline: %v", err)
	}
	if !strings.Contains(out, "Overview") || !strings.Contains(out, "We make things.") {
		t.Errorf("unexpected outline:\n%s", out)
	}
	if strings.Contains(out, "Revenue grew") {
		t.Errorf("outline leaked item 7:\n%s", out)
	}

	out, err = run(t, "outline", path, "-i", "7", "--json")
	if err != nil {
		t.Fatalf("outline --json: %v", err)
	}
	var nodes []map[string]any
	if err := json.Unmarshal([]byte(out), &nodes); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(nodes) != 1 || nodes[0]["type"] != "simple_text" {
		t.Errorf("nodes = %v", nodes)
	}

	if _, err := run(t, "outline", path, "-i", "9"); err == nil {
		t.Error("expected error for an item outside the table of contents")
	}
}

func TestExtractCmd_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want string
	}{
		{"no user agent", map[string]string{"SEC_USER_AGENT": ""}, []string{"extract", "AAPL", "-y", "2023"}, "SEC_USER_AGENT"},
		{"no years", nil, []string{"extract", "AAPL"}, "year"},
		{"no companies", nil, []string{"extract", "-y", "2023"}, "compan"},
		{"all companies unconfirmed", nil, []string{"extract", "--all-companies", "-y", "2023"}, "--yes"},
		{"missing batch file", nil, []string{"extract", "--jobs", "/nonexistent/batch.yaml"}, "batch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tt.want)) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestExtractCmd_EndToEnd(t *testing.T) {
	dir := testEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/submissions/CIK0000320193.json":
			io.WriteString(w, submissionsJSON)
		case "/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm":
			io.WriteString(w, filing)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	t.Setenv("SEC_BASE_URL", srv.URL)
	t.Setenv("SEC_DATA_URL", srv.URL)

	out, err := run(t, "extract", "320193", "-y", "2023", "-i", "1,7", "--markdown")
	if err != nil {
		t.Fatalf("extract: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 items") {
		t.Errorf("summary line missing item count:\n%s", out)
	}

	items := filepath.Join(dir, "out", "0000320193", "2023", "10-K", "items")
	for _, name := range []string{
		"0000320193_2023_10-K_item1.json",
		"0000320193_2023_10-K_item1_xtr.json",
		"0000320193_2023_10-K_item7.md",
	} {
		if _, err := os.Stat(filepath.Join(items, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "*.csv"))
	if err != nil || len(logs) < 2 {
		t.Errorf("expected extraction log and report csv, got %v", logs)
	}

	db, err := database.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("open run db: %v", err)
	}
	defer db.Close()
	recs, err := db.List(context.Background(), database.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || !recs[0].Downloaded || len(recs[0].Items) != 2 {
		t.Fatalf("records = %+v", recs)
	}
}

func TestReportCmd(t *testing.T) {
	dir := testEnv(t)
	db, err := database.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, rec := range []ledger.FilingRecord{
		{RunID: "run-1", Identifier: "AAPL", CIK: "0000320193", Year: 2023, FilingType: "10-K",
			Status: ledger.StatusCompleted, StartedAt: start, EndedAt: start.Add(time.Second),
			Downloaded: true, TOCFound: true, Items: []string{"1", "7"}},
		{RunID: "run-1", Identifier: "MSFT", CIK: "0000789019", Year: 2023, FilingType: "10-K",
			Status: ledger.StatusCompleted, StartedAt: start.Add(time.Second), EndedAt: start.Add(2 * time.Second),
			Items: []string{}, Errors: []string{"download: not found"}},
	} {
		if err := db.FilingCompleted(context.Background(), rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	db.Close()

	out, err := run(t, "report", "run-1", "--format", "csv")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "Total Filings,2") {
		t.Errorf("csv report:\n%s", out)
	}

	out, err = run(t, "report", "run-1")
	if err != nil {
		t.Fatalf("report md: %v", err)
	}
	if !strings.Contains(out, "# Extraction Report") || !strings.Contains(out, "run-1") {
		t.Errorf("markdown report:\n%s", out)
	}

	if _, err := run(t, "report", "run-404"); err == nil {
		t.Error("expected error for unknown run")
	}
	if _, err := run(t, "report", "run-1", "-F", "pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}
