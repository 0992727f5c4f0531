// Package store lays filings and extracted items out on disk.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/itemxtract/internal/doctree"
	"github.com/dgallion1/itemxtract/internal/section"
)

// ErrNotExist means nothing is stored for the filing.
var ErrNotExist = errors.New("not stored")

// Key identifies one filing.
type Key struct {
	CIK        string
	Year       int
	FilingType string
}

func (k Key) stem() string {
	return fmt.Sprintf("%s_%d_%s", k.CIK, k.Year, k.FilingType)
}

// OutlineRecord is the persisted outline of one item.
type OutlineRecord struct {
	Ticker     string          `json:"ticker"`
	Year       int             `json:"year"`
	FilingType string          `json:"filing_type"`
	ItemNumber string          `json:"item_number"`
	Structure  []*doctree.Node `json:"structure"`
}

// FileStore keeps everything under one base directory:
//
//	<base>/<cik>/<year>/<type>/<cik>_<year>_<type>.<htm|html>
//	<base>/<cik>/<year>/<type>/items/<cik>_<year>_<type>_item<N>.json
//	<base>/<cik>/<year>/<type>/items/<cik>_<year>_<type>_item<N>_xtr.json
//	<base>/<cik>/<year>/<type>/items/<cik>_<year>_<type>_item<N>.md
type FileStore struct {
	base string
}

func NewFileStore(base string) *FileStore {
	return &FileStore{base: base}
}

// Dir is the directory of one filing.
func (s *FileStore) Dir(k Key) string {
	return filepath.Join(s.base, k.CIK, strconv.Itoa(k.Year), k.FilingType)
}

func (s *FileStore) DocumentPath(k Key, format string) string {
	return filepath.Join(s.Dir(k), k.stem()+"."+format)
}

func (s *FileStore) ItemPath(k Key, item string) string {
	return filepath.Join(s.Dir(k), "items", k.stem()+"_item"+item+".json")
}

func (s *FileStore) OutlinePath(k Key, item string) string {
	return filepath.Join(s.Dir(k), "items", k.stem()+"_item"+item+"_xtr.json")
}

func (s *FileStore) MarkdownPath(k Key, item string) string {
	return filepath.Join(s.Dir(k), "items", k.stem()+"_item"+item+".md")
}

// LoadDocument returns a cached filing and its format. ErrNotExist when
// neither an .html nor an .htm copy is stored.
func (s *FileStore) LoadDocument(k Key) (string, string, error) {
	for _, format := range []string{"html", "htm"} {
		data, err := os.ReadFile(s.DocumentPath(k, format))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("read document: %w", err)
		}
		return string(data), format, nil
	}
	return "", "", fmt.Errorf("%s: %w", k.stem(), ErrNotExist)
}

// SaveDocument caches a downloaded filing.
func (s *FileStore) SaveDocument(k Key, content, format string) (string, error) {
	path := s.DocumentPath(k, format)
	if err := writeFile(path, []byte(content)); err != nil {
		return "", fmt.Errorf("save document: %w", err)
	}
	return path, nil
}

func (s *FileStore) SaveSection(k Key, sec *section.Section) (string, error) {
	path := s.ItemPath(k, sec.ID)
	if err := writeJSON(path, sec); err != nil {
		return "", fmt.Errorf("save item %s: %w", sec.ID, err)
	}
	return path, nil
}

func (s *FileStore) SaveOutline(k Key, rec OutlineRecord) (string, error) {
	path := s.OutlinePath(k, rec.ItemNumber)
	if err := writeJSON(path, rec); err != nil {
		return "", fmt.Errorf("save outline %s: %w", rec.ItemNumber, err)
	}
	return path, nil
}

func (s *FileStore) SaveMarkdown(k Key, item, md string) (string, error) {
	path := s.MarkdownPath(k, item)
	if err := writeFile(path, []byte(md+"\n")); err != nil {
		return "", fmt.Errorf("save markdown %s: %w", item, err)
	}
	return path, nil
}

// writeJSON writes v indented, with HTML characters left as is.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
