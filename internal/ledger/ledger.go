// Package ledger records what happened to every filing in a run.
package ledger

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of a filing within a run.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// FilingRecord is a point-in-time copy of one filing's progress.
type FilingRecord struct {
	RunID      string    `json:"run_id"`
	Identifier string    `json:"identifier"`
	CIK        string    `json:"cik,omitempty"`
	Year       int       `json:"year"`
	FilingType string    `json:"filing_type"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at,omitzero"`
	Downloaded bool      `json:"downloaded"`
	Cached     bool      `json:"cached"`
	TOCFound   bool      `json:"toc_found"`
	Items      []string  `json:"items_extracted"`
	Errors     []string  `json:"errors,omitempty"`
}

// Fetched reports whether the document was available, downloaded or cached.
func (r FilingRecord) Fetched() bool { return r.Downloaded || r.Cached }

// Duration is the processing time of a completed filing.
func (r FilingRecord) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// HasItem reports whether item was extracted.
func (r FilingRecord) HasItem(item string) bool { return slices.Contains(r.Items, item) }

// Sink is told about every completed filing.
type Sink interface {
	FilingCompleted(ctx context.Context, rec FilingRecord) error
}

// Filing is a handle on one in-progress record. All updates go through
// the owning Session so they share its lock.
type Filing struct {
	rec FilingRecord
}

// Session is the ledger of one run. It is safe for concurrent use.
type Session struct {
	ID        string
	StartedAt time.Time

	log   *slog.Logger
	now   func() time.Time
	sinks []Sink

	mu      sync.Mutex
	params  map[string]any
	filings []*Filing
}

func NewSession(log *slog.Logger, sinks ...Sink) *Session {
	return newSession(log, time.Now, sinks...)
}

func newSession(log *slog.Logger, now func() time.Time, sinks ...Sink) *Session {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Session{
		ID:        id.String(),
		StartedAt: now(),
		log:       log,
		now:       now,
		sinks:     sinks,
	}
}

// SetParams records the run parameters shown in reports.
func (s *Session) SetParams(params map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = params
	s.log.Info("run parameters", "run_id", s.ID, "params", params)
}

// Begin opens the record of one filing.
func (s *Session) Begin(identifier string, year int, filingType string) *Filing {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &Filing{rec: FilingRecord{
		RunID:      s.ID,
		Identifier: identifier,
		Year:       year,
		FilingType: filingType,
		Status:     StatusInProgress,
		StartedAt:  s.now(),
		Items:      []string{},
	}}
	s.filings = append(s.filings, f)
	return f
}

func (s *Session) SetCIK(f *Filing, cik string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.rec.CIK = cik
}

// Download records how the document was obtained. A non-nil err is
// appended to the record's errors.
func (s *Session) Download(f *Filing, downloaded, cached bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.rec.Downloaded = downloaded
	f.rec.Cached = cached
	if err != nil {
		f.rec.Errors = append(f.rec.Errors, "download: "+err.Error())
	}
}

func (s *Session) TOC(f *Filing, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.rec.TOCFound = found
	if err != nil {
		f.rec.Errors = append(f.rec.Errors, "table of contents: "+err.Error())
	}
}

// Item records the outcome of one section extraction.
func (s *Session) Item(f *Filing, item string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		f.rec.Errors = append(f.rec.Errors, "item "+item+": "+err.Error())
		return
	}
	f.rec.Items = append(f.rec.Items, item)
}

// Fail appends an error that is not tied to a phase.
func (s *Session) Fail(f *Filing, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.rec.Errors = append(f.rec.Errors, err.Error())
}

// Complete closes the record and hands a copy to every sink. Sink
// failures are logged, never returned.
func (s *Session) Complete(ctx context.Context, f *Filing) FilingRecord {
	s.mu.Lock()
	f.rec.Status = StatusCompleted
	f.rec.EndedAt = s.now()
	rec := f.snapshot()
	s.mu.Unlock()

	s.log.Info("filing completed",
		"identifier", rec.Identifier,
		"year", rec.Year,
		"filing_type", rec.FilingType,
		"items", rec.Items,
		"errors", len(rec.Errors),
		"duration", rec.Duration().Round(time.Millisecond),
	)
	for _, sink := range s.sinks {
		if err := sink.FilingCompleted(ctx, rec); err != nil {
			s.log.Warn("ledger sink failed", "identifier", rec.Identifier, "error", err)
		}
	}
	return rec
}

func (f *Filing) snapshot() FilingRecord {
	rec := f.rec
	rec.Items = slices.Clone(f.rec.Items)
	rec.Errors = slices.Clone(f.rec.Errors)
	return rec
}

// Summary is the state of a whole run.
type Summary struct {
	RunID            string         `json:"run_id"`
	StartedAt        time.Time      `json:"started_at"`
	EndedAt          time.Time      `json:"ended_at"`
	Params           map[string]any `json:"params,omitempty"`
	Filings          []FilingRecord `json:"filings"`
	TotalFilings     int            `json:"total_filings"`
	SuccessfulFetch  int            `json:"successful_downloads"`
	TOCFound         int            `json:"toc_found"`
	ItemsExtracted   int            `json:"items_extracted"`
	FilingsWithError int            `json:"filings_with_errors"`
}

func (s Summary) Duration() time.Duration { return s.EndedAt.Sub(s.StartedAt) }

// Summary copies every record, in the order filings began.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := make([]FilingRecord, 0, len(s.filings))
	for _, f := range s.filings {
		recs = append(recs, f.snapshot())
	}
	sum := Summarize(s.ID, recs)
	sum.StartedAt = s.StartedAt
	sum.EndedAt = s.now()
	sum.Params = s.params
	return sum
}

// Summarize totals recs, e.g. rows read back from the run database. The
// run window spans the earliest start and the latest end.
func Summarize(runID string, recs []FilingRecord) Summary {
	sum := Summary{RunID: runID, Filings: recs}
	if sum.Filings == nil {
		sum.Filings = []FilingRecord{}
	}
	for _, rec := range recs {
		if sum.StartedAt.IsZero() || rec.StartedAt.Before(sum.StartedAt) {
			sum.StartedAt = rec.StartedAt
		}
		if rec.EndedAt.After(sum.EndedAt) {
			sum.EndedAt = rec.EndedAt
		}
		sum.TotalFilings++
		if rec.Fetched() {
			sum.SuccessfulFetch++
		}
		if rec.TOCFound {
			sum.TOCFound++
		}
		sum.ItemsExtracted += len(rec.Items)
		if len(rec.Errors) > 0 {
			sum.FilingsWithError++
		}
	}
	return sum
}
