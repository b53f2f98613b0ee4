package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/stepr/internal/health"
)

// timeLayout is fixed width (always UTC, always nine fractional digits) so
// that lexical order of stored strings equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// ImportResult summarizes a sample import.
type ImportResult struct {
	Read     int
	Inserted int
}

// InsertSample stores one sample, assigning a UUID when ID is empty. A
// sample whose ID already exists is ignored; inserted reports which case
// applied.
func (s *Store) InsertSample(ctx context.Context, sample health.Sample, source string) (health.Sample, bool, error) {
	if sample.Count < 0 {
		return sample, false, fmt.Errorf("insert sample: negative count %d", sample.Count)
	}
	if sample.End.Before(sample.Start) {
		return sample, false, fmt.Errorf("insert sample: end %s before start %s",
			sample.End.Format(time.RFC3339), sample.Start.Format(time.RFC3339))
	}
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if source == "" {
		source = "manual"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO step_samples (id, count, start_time, end_time, source) VALUES (?, ?, ?, ?, ?)`,
		sample.ID, sample.Count, formatTime(sample.Start), formatTime(sample.End), source,
	)
	if err != nil {
		return sample, false, fmt.Errorf("insert sample: %w", markTransient(err))
	}
	n, _ := res.RowsAffected()
	return sample, n > 0, nil
}

// ReadRecords implements health.Source. It returns step samples that
// intersect req.Range, ordered by start time.
func (s *Store) ReadRecords(ctx context.Context, req health.ReadRequest) ([]health.Sample, error) {
	if req.Type != health.RecordSteps {
		return nil, &health.DataSourceError{Op: "read", Range: req.Range,
			Err: fmt.Errorf("%w: %q", health.ErrUnsupportedRecordType, req.Type)}
	}

	start, end := formatTime(req.Range.Start), formatTime(req.Range.End)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, count, start_time, end_time
		FROM step_samples
		WHERE start_time < ?
		  AND (end_time > ? OR (end_time = start_time AND start_time >= ?))
		ORDER BY start_time, id`,
		end, start, start,
	)
	if err != nil {
		return nil, &health.DataSourceError{Op: "read", Range: req.Range, Err: markTransient(err)}
	}
	defer rows.Close()

	var samples []health.Sample
	for rows.Next() {
		var sm health.Sample
		var startStr, endStr string
		if err := rows.Scan(&sm.ID, &sm.Count, &startStr, &endStr); err != nil {
			return nil, &health.DataSourceError{Op: "read", Range: req.Range, Err: err}
		}
		if sm.Start, err = parseTime(startStr); err != nil {
			return nil, &health.DataSourceError{Op: "read", Range: req.Range, Err: fmt.Errorf("sample %s start: %w", sm.ID, err)}
		}
		if sm.End, err = parseTime(endStr); err != nil {
			return nil, &health.DataSourceError{Op: "read", Range: req.Range, Err: fmt.Errorf("sample %s end: %w", sm.ID, err)}
		}
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, &health.DataSourceError{Op: "read", Range: req.Range, Err: markTransient(err)}
	}
	return samples, nil
}

// CountSamples returns the number of stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM step_samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// ImportSamplesCSV reads samples from a CSV document with the header
// start,end,count and an optional id column. Times are RFC 3339. The import
// runs in one transaction; any malformed row aborts it.
func (s *Store) ImportSamplesCSV(ctx context.Context, r io.Reader, source string) (ImportResult, error) {
	var result ImportResult

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := sampleColumns(header)
	if err != nil {
		return result, err
	}

	var samples []health.Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read csv line %d: %w", line, err)
		}
		sm, err := parseSampleRow(rec, cols)
		if err != nil {
			return result, fmt.Errorf("csv line %d: %w", line, err)
		}
		samples = append(samples, sm)
	}
	result.Read = len(samples)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if source == "" {
		source = "import"
	}
	for _, sm := range samples {
		if sm.ID == "" {
			sm.ID = uuid.NewString()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO step_samples (id, count, start_time, end_time, source) VALUES (?, ?, ?, ?, ?)`,
			sm.ID, sm.Count, formatTime(sm.Start), formatTime(sm.End), source,
		)
		if err != nil {
			return result, fmt.Errorf("import sample %s: %w", sm.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.Inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit import: %w", err)
	}
	return result, nil
}

type columns struct {
	start, end, count, id int
}

func sampleColumns(header []string) (columns, error) {
	c := columns{start: -1, end: -1, count: -1, id: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "start":
			c.start = i
		case "end":
			c.end = i
		case "count":
			c.count = i
		case "id":
			c.id = i
		}
	}
	if c.start < 0 || c.end < 0 || c.count < 0 {
		return c, fmt.Errorf("csv header %q: need start, end and count columns", strings.Join(header, ","))
	}
	return c, nil
}

func parseSampleRow(rec []string, c columns) (health.Sample, error) {
	var sm health.Sample
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var err error
	if sm.Start, err = time.Parse(time.RFC3339, field(c.start)); err != nil {
		return sm, fmt.Errorf("start: %w", err)
	}
	if sm.End, err = time.Parse(time.RFC3339, field(c.end)); err != nil {
		return sm, fmt.Errorf("end: %w", err)
	}
	if sm.End.Before(sm.Start) {
		return sm, fmt.Errorf("end %s before start %s", field(c.end), field(c.start))
	}
	if sm.Count, err = strconv.ParseInt(field(c.count), 10, 64); err != nil {
		return sm, fmt.Errorf("count: %w", err)
	}
	if sm.Count < 0 {
		return sm, fmt.Errorf("negative count %d", sm.Count)
	}
	sm.ID = field(c.id)
	return sm, nil
}
