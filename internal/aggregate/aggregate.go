// Package aggregate turns raw step samples into one total per calendar day.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/stepr/internal/health"
)

// DateLayout is the calendar date format used for display and export.
const DateLayout = "2006-01-02"

// DefaultWindowDays is the window used when callers have no preference.
const DefaultWindowDays = 30

// ErrInvalidWindow is returned for a window shorter than one day.
var ErrInvalidWindow = errors.New("window must be at least one day")

// DailyStepRecord is the total step count of one calendar day.
type DailyStepRecord struct {
	Date       time.Time // local midnight
	TotalSteps int64
}

// DateString returns the record's date as YYYY-MM-DD.
func (r DailyStepRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

// AggregationError reports the day whose query failed.
type AggregationError struct {
	Day time.Time
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate steps for %s: %v", e.Day.Format(DateLayout), e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// Aggregator computes daily totals by issuing one range query per day.
type Aggregator struct {
	source health.Source
	logger *slog.Logger

	// Concurrency bounds the number of per-day queries in flight. Values
	// below 2 query sequentially, oldest day first.
	Concurrency int
	// Retries is the number of extra attempts for a day whose query fails
	// with a transient error.
	Retries int
	// RetryInterval is the initial backoff between attempts.
	RetryInterval time.Duration
}

// New returns an Aggregator reading from src. A nil logger discards output.
func New(src health.Source, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{
		source:        src,
		logger:        logger,
		Concurrency:   1,
		Retries:       2,
		RetryInterval: 100 * time.Millisecond,
	}
}

// Window returns the local midnights of the windowDays days ending on
// referenceDate, oldest first.
func Window(referenceDate time.Time, windowDays int) []time.Time {
	if windowDays < 1 {
		return nil
	}
	y, m, d := referenceDate.Date()
	loc := referenceDate.Location()
	days := make([]time.Time, windowDays)
	for i := range days {
		days[i] = time.Date(y, m, d-(windowDays-1)+i, 0, 0, 0, 0, loc)
	}
	return days
}

// DayRange returns [local midnight of day, local midnight of the next day).
func DayRange(day time.Time) health.TimeRange {
	y, m, d := day.Date()
	loc := day.Location()
	return health.Between(
		time.Date(y, m, d, 0, 0, 0, 0, loc),
		time.Date(y, m, d+1, 0, 0, 0, 0, loc),
	)
}

// Aggregate returns one record per day in the window ending on
// referenceDate, in ascending date order. Midnights are taken in
// referenceDate's location. Each sample is attributed to the day that
// contains its start instant: a sample crossing midnight counts in full on
// its start day and never on the following day, even though it overlaps
// both. If any day's query fails after retries the
// whole run fails with an *AggregationError.
func (a *Aggregator) Aggregate(ctx context.Context, referenceDate time.Time, windowDays int) ([]DailyStepRecord, error) {
	if windowDays < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowDays)
	}

	days := Window(referenceDate, windowDays)
	records := make([]DailyStepRecord, len(days))
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	limit := a.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, day := range days {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			total, err := a.sumDay(gctx, day)
			if err != nil {
				return &AggregationError{Day: day, Err: err}
			}
			records[i] = DailyStepRecord{Date: day, TotalSteps: total}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("step aggregation failed", "reference", referenceDate.Format(DateLayout), "days", windowDays, "error", err)
		return nil, err
	}

	a.logger.Info("aggregated steps",
		"reference", referenceDate.Format(DateLayout),
		"days", windowDays,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return records, nil
}

func (a *Aggregator) sumDay(ctx context.Context, day time.Time) (int64, error) {
	r := DayRange(day)
	req := health.ReadRequest{Type: health.RecordSteps, Range: r}

	var samples []health.Sample
	attempt := 0
	op := func() error {
		attempt++
		var err error
		samples, err = a.source.ReadRecords(ctx, req)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !health.IsTransient(err) {
			return backoff.Permanent(err)
		}
		a.logger.Debug("retrying step query", "day", day.Format(DateLayout), "attempt", attempt, "error", err)
		return err
	}

	if err := backoff.Retry(op, a.retryPolicy(ctx)); err != nil {
		var dse *health.DataSourceError
		if !errors.As(err, &dse) {
			err = &health.DataSourceError{Op: "read", Range: r, Err: err}
		}
		return 0, err
	}

	var total int64
	for _, s := range samples {
		if r.Contains(s.Start) {
			total += s.Count
		}
	}
	a.logger.Debug("summed day", "day", day.Format(DateLayout), "samples", len(samples), "steps", total)
	return total, nil
}

func (a *Aggregator) retryPolicy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if a.RetryInterval > 0 {
		eb.InitialInterval = a.RetryInterval
	}
	eb.MaxElapsedTime = 0
	retries := a.Retries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// Total sums TotalSteps across records.
func Total(records []DailyStepRecord) int64 {
	var sum int64
	for _, r := range records {
		sum += r.TotalSteps
	}
	return sum
}
