// Package health defines the consumed interface of a health data provider:
// activity samples with a count and a time interval, queried by time range.
package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RecordType names a kind of activity record.
type RecordType string

// RecordSteps is the only record type stepr reads.
const RecordSteps RecordType = "steps"

var (
	// ErrUnavailable is returned when the provider cannot be reached.
	ErrUnavailable = errors.New("health data source unavailable")
	// ErrUnsupportedRecordType is returned for record types the source does not hold.
	ErrUnsupportedRecordType = errors.New("unsupported record type")
	// ErrTransient marks a failure worth retrying.
	ErrTransient = errors.New("transient failure")
)

// Sample is a raw activity record. Count is never negative.
type Sample struct {
	ID    string
	Count int64
	Start time.Time
	End   time.Time
}

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Between returns the range [start, end).
func Between(start, end time.Time) TimeRange {
	return TimeRange{Start: start, End: end}
}

// Contains reports whether t lies in [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Intersects reports whether the sample interval overlaps the range.
// Zero-length samples intersect when their instant lies in the range.
func (r TimeRange) Intersects(s Sample) bool {
	if s.Start.Equal(s.End) {
		return r.Contains(s.Start)
	}
	return s.Start.Before(r.End) && s.End.After(r.Start)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// ReadRequest selects samples of one type that intersect Range.
type ReadRequest struct {
	Type  RecordType
	Range TimeRange
}

// Source returns every sample of the requested type whose interval
// intersects the requested range. Implementations must not mutate state.
type Source interface {
	ReadRecords(ctx context.Context, req ReadRequest) ([]Sample, error)
}

// AvailabilityChecker is implemented by sources that can report whether
// they are reachable before the first query.
type AvailabilityChecker interface {
	Available(ctx context.Context) error
}

// CheckAvailable verifies src is usable. Sources that do not implement
// AvailabilityChecker are assumed available.
func CheckAvailable(ctx context.Context, src Source) error {
	if src == nil {
		return &DataSourceError{Op: "availability", Err: ErrUnavailable}
	}
	c, ok := src.(AvailabilityChecker)
	if !ok {
		return nil
	}
	if err := c.Available(ctx); err != nil {
		var dse *DataSourceError
		if errors.As(err, &dse) {
			return err
		}
		return &DataSourceError{Op: "availability", Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}
	return nil
}

// DataSourceError reports a failed query or an unavailable source.
type DataSourceError struct {
	Op    string
	Range TimeRange
	Err   error
}

func (e *DataSourceError) Error() string {
	if e.Range.Start.IsZero() && e.Range.End.IsZero() {
		return fmt.Sprintf("health source %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("health source %s %s: %v", e.Op, e.Range, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// IsTransient reports whether err is marked as retryable, either by
// wrapping ErrTransient or by implementing Temporary() bool.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// Total sums the counts of samples.
func Total(samples []Sample) int64 {
	var sum int64
	for _, s := range samples {
		sum += s.Count
	}
	return sum
}
