package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/stepr/internal/aggregate"
	"github.com/sadopc/stepr/internal/health"
)

// daysPerPage is how many days the chart and table show at once.
const daysPerPage = 7

type stepsModel struct {
	source     health.Source
	agg        *aggregate.Aggregator
	holder     *aggregate.Holder
	windowDays int
	now        func() time.Time

	width  int
	height int

	snapshot *aggregate.Snapshot
	loading  bool
	offset   int // pages back from the newest (0 = the page ending on the reference date)

	chart barchart.Model
}

func newStepsModel(src health.Source, agg *aggregate.Aggregator, h *aggregate.Holder, windowDays int, now func() time.Time) stepsModel {
	return stepsModel{
		source:     src,
		agg:        agg,
		holder:     h,
		windowDays: windowDays,
		now:        now,
		chart:      barchart.New(60, 12),
	}
}

func (s *stepsModel) setSize(w, h int) {
	s.width = w
	s.height = h
	s.buildChart()
}

// refresh checks the source and runs one aggregation in the background.
// The holder decides which run's result stays visible.
func (s stepsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := health.CheckAvailable(ctx, s.source); err != nil {
			return statusMsg{text: fmt.Sprintf("Step data unavailable: %v", err), isError: true}
		}
		snap, err := aggregate.Refresh(ctx, s.agg, s.holder, s.now(), s.windowDays)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Load error: %v", err), isError: true}
		}
		return stepsDataMsg{snapshot: snap}
	}
}

func (s stepsModel) update(msg tea.Msg) (stepsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case stepsDataMsg:
		s.loading = false
		s.snapshot = s.holder.Load()
		if s.snapshot == nil {
			s.snapshot = msg.snapshot
		}
		if pages := pageCount(len(s.records()), daysPerPage); s.offset >= pages {
			s.offset = 0
		}
		s.buildChart()
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			if s.offset+1 < pageCount(len(s.records()), daysPerPage) {
				s.offset++
				s.buildChart()
			}
			return s, nil
		case key.Matches(msg, keys.Right):
			if s.offset > 0 {
				s.offset--
				s.buildChart()
			}
			return s, nil
		}
	}
	return s, nil
}

func (s stepsModel) records() []aggregate.DailyStepRecord {
	if s.snapshot == nil {
		return nil
	}
	return s.snapshot.Records
}

// page returns the records currently on screen, oldest first.
func (s stepsModel) page() []aggregate.DailyStepRecord {
	recs := s.records()
	from, to := pageBounds(len(recs), daysPerPage, s.offset)
	return recs[from:to]
}

func (s *stepsModel) buildChart() {
	chartWidth := s.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if s.height > 30 {
		chartHeight = 16
	}

	s.chart = barchart.New(chartWidth, chartHeight)

	var today time.Time
	if s.snapshot != nil {
		today = aggregate.DayRange(s.snapshot.Reference).Start
	}

	var bars []barchart.BarData
	for _, r := range s.page() {
		style := barStyle
		switch {
		case r.TotalSteps == 0:
			style = emptyBarStyle
		case r.Date.Equal(today):
			style = todayBarStyle
		}
		bars = append(bars, barchart.BarData{
			Label: r.Date.Format("Mon 02"),
			Values: []barchart.BarValue{{
				Name:  r.DateString(),
				Value: float64(r.TotalSteps),
				Style: style,
			}},
		})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s stepsModel) view() string {
	w := s.width - 4

	if s.snapshot == nil {
		msg := "  No step data loaded yet. Press r to refresh."
		if s.loading {
			msg = "  Loading step data..."
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Steps"), "", mutedStyle.Render(msg)),
		)
	}

	page := s.page()
	dateLabel := ""
	if len(page) > 0 {
		dateLabel = mutedStyle.Render(fmt.Sprintf("%s to %s",
			page[0].Date.Format("Jan 02"), page[len(page)-1].Date.Format("Jan 02, 2006")))
	}
	pages := pageCount(len(s.records()), daysPerPage)
	pageLabel := mutedStyle.Render(fmt.Sprintf("page %d/%d", pages-s.offset, pages))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Steps"), "  ", dateLabel, "  ", pageLabel,
	)

	loaded := mutedStyle.Render(fmt.Sprintf("  %d-day window, loaded %s",
		s.snapshot.WindowDays, s.snapshot.LoadedAt.Format("15:04:05")))

	nav := mutedStyle.Render("  ←/→: older/newer  r: refresh  e: export")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", s.chart.View(), "", s.renderTable(w), "", loaded, nav,
		),
	)
}

func (s stepsModel) renderTable(w int) string {
	page := s.page()
	if len(page) == 0 {
		return mutedStyle.Render("  No days in this window")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %-5s %12s", "Date", "Day", "Steps")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 31))))

	// Newest first, like a log.
	for i := len(page) - 1; i >= 0; i-- {
		r := page[i]
		steps := formatSteps(r.TotalSteps)
		if r.TotalSteps > 0 {
			steps = highlightStyle.Render(fmt.Sprintf("%12s", steps))
		} else {
			steps = mutedStyle.Render(fmt.Sprintf("%12s", steps))
		}
		rows = append(rows, fmt.Sprintf("  %-12s %-5s %s", r.DateString(), r.Date.Format("Mon"), steps))
	}

	return strings.Join(rows, "\n")
}
