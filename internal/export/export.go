// Package export writes daily step totals to CSV or JSON files.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sadopc/stepr/internal/aggregate"
)

// Format selects the exported file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// DefaultFileName returns StepCounts.csv or StepCounts.json.
func DefaultFileName(f Format) string {
	if f == FormatJSON {
		return "StepCounts.json"
	}
	return "StepCounts.csv"
}

// IOError reports a destination that could not be written.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("export to %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ToFile writes records to dir/DefaultFileName(f) and returns the path.
func ToFile(records []aggregate.DailyStepRecord, f Format, dir string) (string, error) {
	path := filepath.Join(dir, DefaultFileName(f))
	switch f {
	case FormatJSON:
		return path, ToJSON(records, path)
	default:
		return path, ToCSV(records, path)
	}
}
