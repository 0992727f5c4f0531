package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/itemxtract/internal/config"
	"github.com/dgallion1/itemxtract/internal/database"
	"github.com/dgallion1/itemxtract/internal/ledger"
	"github.com/dgallion1/itemxtract/internal/pipeline"
	"github.com/dgallion1/itemxtract/internal/report"
)

type extractRequest struct {
	Companies []string `json:"companies"`
	Filings   []string `json:"filings"`
	Years     []int    `json:"years"`
	Items     []string `json:"items"`
}

// handleExtract queues one job covering companies x filings x years.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	spec := config.BatchSpec{
		Companies: req.Companies,
		Filings:   req.Filings,
		Years:     req.Years,
		Items:     req.Items,
	}
	spec.Normalize()
	if err := spec.Validate(time.Now()); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tasks := pipeline.Expand(spec.Companies, spec.Filings, spec.Years, spec.Items)
	job := s.orchestrator.NewJob(tasks)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"run_id":   snap.RunID,
		"status":   snap.Status,
		"tasks":    len(job.Tasks()),
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleReport renders the summary of a job (?job=) or of a stored run
// (?run=) as csv, md or html.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "md"
	}
	ctype := report.ContentType(format)
	if ctype == "" {
		jsonError(w, fmt.Sprintf("unsupported format %q (want csv, md or html)", format), http.StatusBadRequest)
		return
	}

	var sum ledger.Summary
	switch {
	case q.Get("job") != "":
		job := s.orchestrator.GetJob(q.Get("job"))
		if job == nil {
			jsonError(w, "job not found", http.StatusNotFound)
			return
		}
		sum = job.Session().Summary()
	case q.Get("run") != "":
		if s.runs == nil {
			jsonError(w, "run database unavailable", http.StatusServiceUnavailable)
			return
		}
		recs, err := s.runs.List(r.Context(), database.Filter{RunID: q.Get("run"), Limit: 10000})
		if err != nil {
			jsonError(w, "failed to read runs: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if len(recs) == 0 {
			jsonError(w, "run not found", http.StatusNotFound)
			return
		}
		// The database lists newest first.
		slices.Reverse(recs)
		sum = ledger.Summarize(q.Get("run"), recs)
	default:
		jsonError(w, "job or run query parameter is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", ctype)
	if err := report.Write(w, format, sum); err != nil {
		s.log.Error("render report failed", "format", format, "error", err)
	}
}
