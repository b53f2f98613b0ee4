package aggregate

import (
	"context"
	"slices"
	"sync/atomic"
	"time"
)

// Snapshot is the published result of one completed aggregation run.
// Records must not be modified after publication.
type Snapshot struct {
	Records    []DailyStepRecord
	Reference  time.Time
	WindowDays int
	LoadedAt   time.Time

	run uint64
}

// Ticket identifies an aggregation run in start order.
type Ticket uint64

// Holder publishes snapshots with all-or-nothing visibility. A run that
// started later supersedes an earlier one even if the earlier run finishes
// last.
type Holder struct {
	seq     atomic.Uint64
	current atomic.Pointer[Snapshot]
}

// Begin registers the start of a run.
func (h *Holder) Begin() Ticket {
	return Ticket(h.seq.Add(1))
}

// Publish installs records as the current snapshot unless a newer run has
// already published. It reports whether the snapshot was installed.
func (h *Holder) Publish(t Ticket, reference time.Time, windowDays int, records []DailyStepRecord) bool {
	next := &Snapshot{
		Records:    slices.Clone(records),
		Reference:  reference,
		WindowDays: windowDays,
		LoadedAt:   time.Now(),
		run:        uint64(t),
	}
	for {
		cur := h.current.Load()
		if cur != nil && cur.run > next.run {
			return false
		}
		if h.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Load returns the current snapshot, or nil before the first publish.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Records returns the current snapshot's records, or nil.
func (h *Holder) Records() []DailyStepRecord {
	if s := h.current.Load(); s != nil {
		return s.Records
	}
	return nil
}

// Refresh runs one aggregation and publishes its result. On error the
// previous snapshot stays in place.
func Refresh(ctx context.Context, a *Aggregator, h *Holder, referenceDate time.Time, windowDays int) (*Snapshot, error) {
	t := h.Begin()
	records, err := a.Aggregate(ctx, referenceDate, windowDays)
	if err != nil {
		return h.Load(), err
	}
	h.Publish(t, referenceDate, windowDays, records)
	return h.Load(), nil
}
