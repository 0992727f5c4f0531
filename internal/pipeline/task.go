package pipeline

import (
	"context"

	"github.com/dgallion1/itemxtract/internal/edgar"
	"github.com/dgallion1/itemxtract/internal/pathstore"
	"github.com/dgallion1/itemxtract/internal/section"
	"github.com/dgallion1/itemxtract/internal/store"
)

// Task is one filing to process: a company (ticker or CIK), a filing
// type and a year. Empty Items means every item of the table of contents.
type Task struct {
	Identifier string   `json:"identifier"`
	FilingType string   `json:"filing_type"`
	Year       int      `json:"year"`
	Items      []string `json:"items,omitempty"`
}

// Expand builds the cross product of companies, filing types and years,
// in that nesting order.
func Expand(companies, filingTypes []string, years []int, items []string) []Task {
	tasks := make([]Task, 0, len(companies)*len(filingTypes)*len(years))
	for _, c := range companies {
		for _, ft := range filingTypes {
			for _, y := range years {
				tasks = append(tasks, Task{Identifier: c, FilingType: ft, Year: y, Items: items})
			}
		}
	}
	return tasks
}

// Resolver maps a ticker or CIK to a 10-digit CIK.
type Resolver interface {
	ResolveCIK(ctx context.Context, identifier string) (string, error)
}

// Fetcher downloads the primary document of a filing.
type Fetcher interface {
	FetchFiling(ctx context.Context, cik, filingType string, year int) (edgar.Document, error)
}

// Store persists documents and per-item records. *store.FileStore
// implements it.
type Store interface {
	LoadDocument(k store.Key) (string, string, error)
	SaveDocument(k store.Key, content, format string) (string, error)
	SaveSection(k store.Key, sec *section.Section) (string, error)
	SaveOutline(k store.Key, rec store.OutlineRecord) (string, error)
	SaveMarkdown(k store.Key, item, md string) (string, error)
}

// Mirror receives a copy of every item record. *pathstore.Client
// implements it.
type Mirror interface {
	PutNode(ctx context.Context, key string, req pathstore.NodeRequest) error
}
