package pipeline

import (
	"errors"
	"fmt"

	"github.com/dgallion1/itemxtract/internal/section"
	"github.com/dgallion1/itemxtract/internal/toc"
)

// Severity says how far a failure reaches.
type Severity int

const (
	// UpstreamFailure ends the task: the document could not be obtained
	// or a record could not be written.
	UpstreamFailure Severity = iota
	// NotFound concerns one section; the task continues.
	NotFound
	// PartialDegradation leaves the section record in place.
	PartialDegradation
)

func (s Severity) String() string {
	switch s {
	case NotFound:
		return "not_found"
	case PartialDegradation:
		return "partial_degradation"
	default:
		return "upstream_failure"
	}
}

// DegradedError wraps a failure in an optional step that runs after the
// section record was persisted.
type DegradedError struct {
	Step string
	Err  error
}

func (e *DegradedError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *DegradedError) Unwrap() error { return e.Err }

func degraded(step string, err error) error {
	return &DegradedError{Step: step, Err: err}
}

// Classify maps err to a Severity.
func Classify(err error) Severity {
	var d *DegradedError
	switch {
	case errors.As(err, &d):
		return PartialDegradation
	case errors.Is(err, toc.ErrNoTableOfContents),
		errors.Is(err, section.ErrNotInIndex),
		errors.Is(err, section.ErrUnresolvable):
		return NotFound
	default:
		return UpstreamFailure
	}
}
