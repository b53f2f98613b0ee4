package tui

import (
	"github.com/dustin/go-humanize"

	"github.com/sadopc/stepr/internal/aggregate"
)

// viewState represents the currently active view.
type viewState int

const (
	viewSteps viewState = iota
	viewAccount
)

var viewNames = []string{"Steps", "Account"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
	days int
}

type stepsDataMsg struct {
	snapshot *aggregate.Snapshot
}

type accountDataMsg struct {
	registered bool
	userID     string
}

// --- Helpers ---

func formatSteps(n int64) string {
	return humanize.Comma(n)
}

// pageBounds returns the [from, to) slice indices of page offset when n
// records are shown size at a time, newest page first.
func pageBounds(n, size, offset int) (int, int) {
	to := n - offset*size
	if to < 0 {
		to = 0
	}
	from := to - size
	if from < 0 {
		from = 0
	}
	return from, to
}

// pageCount returns how many pages of size cover n records.
func pageCount(n, size int) int {
	if n == 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
