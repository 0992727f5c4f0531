package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dgallion1/itemxtract/internal/doctree"
	"github.com/dgallion1/itemxtract/internal/forms"
	"github.com/dgallion1/itemxtract/internal/section"
	"github.com/dgallion1/itemxtract/internal/toc"
)

type locatedEntry struct {
	toc.Entry
	Start    int  `json:"start"`
	End      int  `json:"end"`
	Resolved bool `json:"resolved"`
}

// handleLocate returns the table of contents of an uploaded filing with
// the byte range each section resolves to.
func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	raw, filingType, ok := s.readFiling(w, r)
	if !ok {
		return
	}

	idx, err := s.locator.Locate(raw, filingType)
	if errors.Is(err, toc.ErrNoTableOfContents) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ranges := s.resolver.Resolve(raw, idx)
	entries := make([]locatedEntry, 0, len(idx))
	for _, id := range idx.SortedIDs() {
		e := locatedEntry{Entry: idx[id]}
		if rng, ok := ranges.Lookup(id); ok {
			e.Start, e.End, e.Resolved = rng.Start, rng.End, true
		}
		entries = append(entries, e)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filing_type": filingType,
		"entries":     entries,
	})
}

// handleOutline outlines one item of an uploaded filing (form field
// "item"), or the whole upload as section markup when no item is given.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	raw, filingType, ok := s.readFiling(w, r)
	if !ok {
		return
	}

	sec := &section.Section{Markup: raw}
	if item := forms.NormalizeItems([]string{r.FormValue("item")}); len(item) == 1 {
		idx, err := s.locator.Locate(raw, filingType)
		if err != nil {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		sec, err = s.extractor.Extract(raw, item[0], idx)
		if err != nil {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	tree, err := s.outliner.Build(sec.Markup)
	if err != nil {
		jsonError(w, "outline: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_number": sec.ID,
		"item_title":  sec.Title,
		"nodes":       doctree.Count(tree),
		"structure":   tree,
	})
}

// readFiling reads the multipart "file" field and the optional
// "filing_type" field (default 10-K). It writes the error response itself.
func (s *Server) readFiling(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return "", "", false
	}

	filingType := forms.Normalize(r.FormValue("filing_type"))
	if filingType == "" {
		filingType = forms.TenK
	}
	if !forms.Supported(filingType) {
		jsonError(w, fmt.Sprintf("unsupported filing type %q", filingType), http.StatusBadRequest)
		return "", "", false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return "", "", false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return "", "", false
	}
	return string(data), filingType, true
}
