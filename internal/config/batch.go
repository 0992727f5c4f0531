package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/dgallion1/itemxtract/internal/forms"
	"gopkg.in/yaml.v3"
)

// FirstEDGARYear is the first year EDGAR carries electronic filings.
const FirstEDGARYear = 1995

var (
	// ErrInvalidYear means a requested year is outside the EDGAR range.
	ErrInvalidYear = errors.New("invalid year")
	// ErrBatchNotFound is returned when the batch file does not exist.
	ErrBatchNotFound = errors.New("batch file not found")
)

var itemShape = regexp.MustCompile(`^\d+[A-Z]?$`)

// BatchSpec is a batch extraction request, read from YAML or built from
// command-line flags.
type BatchSpec struct {
	Companies    []string `yaml:"companies"`
	Filings      []string `yaml:"filings"`
	Years        []int    `yaml:"years"`
	Items        []string `yaml:"items"`
	Workers      int      `yaml:"workers"`
	AllCompanies bool     `yaml:"all_companies"`
	Markdown     bool     `yaml:"markdown"`
}

// LoadBatch reads a batch file.
func LoadBatch(path string) (*BatchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrBatchNotFound)
		}
		return nil, err
	}

	var spec BatchSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &spec, nil
}

// Normalize upper-cases filing types and item numbers and fills defaults.
func (b *BatchSpec) Normalize() {
	for i, ft := range b.Filings {
		b.Filings[i] = forms.Normalize(ft)
	}
	if len(b.Filings) == 0 {
		b.Filings = []string{forms.TenK}
	}
	b.Items = forms.NormalizeItems(b.Items)
	if b.Workers <= 0 {
		b.Workers = 1
	}
}

// Validate reports the first problem with the request. now bounds the
// latest accepted year.
func (b *BatchSpec) Validate(now time.Time) error {
	if len(b.Companies) == 0 && !b.AllCompanies {
		return fmt.Errorf("at least one company is required")
	}
	for _, ft := range b.Filings {
		if !forms.Supported(ft) {
			return fmt.Errorf("unsupported filing type %q (want one of %v)", ft, forms.Types())
		}
	}
	if len(b.Years) == 0 {
		return fmt.Errorf("at least one year is required")
	}
	for _, y := range b.Years {
		if err := ValidateYear(y, now); err != nil {
			return err
		}
	}
	for _, it := range b.Items {
		if !itemShape.MatchString(it) {
			return fmt.Errorf("invalid item %q", it)
		}
	}
	return nil
}

// ValidateYear checks that year lies between the first EDGAR year and
// next year.
func ValidateYear(year int, now time.Time) error {
	if year < FirstEDGARYear || year > now.Year()+1 {
		return fmt.Errorf("%d (want %d-%d): %w", year, FirstEDGARYear, now.Year()+1, ErrInvalidYear)
	}
	return nil
}
