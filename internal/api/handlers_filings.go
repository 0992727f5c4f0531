package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/itemxtract/internal/database"
	"github.com/dgallion1/itemxtract/internal/forms"
	"github.com/dgallion1/itemxtract/internal/ledger"
)

// handleListFilings lists processed filings from the run database,
// filtered by run_id, cik and filing_type.
func (s *Server) handleListFilings(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		jsonError(w, "run database unavailable", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	f := database.Filter{
		RunID:      q.Get("run_id"),
		CIK:        q.Get("cik"),
		FilingType: forms.Normalize(q.Get("filing_type")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}

	recs, err := s.runs.List(r.Context(), f)
	if err != nil {
		jsonError(w, "failed to list filings: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []ledger.FilingRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"filings": recs})
}
