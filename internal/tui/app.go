package tui

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/stepr/internal/aggregate"
	"github.com/sadopc/stepr/internal/credential"
	"github.com/sadopc/stepr/internal/export"
	"github.com/sadopc/stepr/internal/health"
)

// Options wires the app to its collaborators.
type Options struct {
	Source      health.Source
	Aggregator  *aggregate.Aggregator
	Credentials *credential.Store
	WindowDays  int
	ExportDir   string
	Location    *time.Location
	Logger      *slog.Logger
	// Now returns the reference date; defaults to time.Now in Location.
	Now func() time.Time
}

var exportFormats = []export.Format{export.FormatCSV, export.FormatJSON}

// App is the root Bubble Tea model.
type App struct {
	holder    *aggregate.Holder
	exportDir string
	logger    *slog.Logger
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	steps   stepsModel
	account accountModel

	help        help.Model
	status      string
	statusError bool
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.WindowDays < 1 {
		opts.WindowDays = aggregate.DefaultWindowDays
	}
	if opts.Now == nil {
		loc := opts.Location
		opts.Now = func() time.Time { return time.Now().In(loc) }
	}

	holder := &aggregate.Holder{}
	return App{
		holder:     holder,
		exportDir:  opts.ExportDir,
		logger:     opts.Logger,
		activeView: viewSteps,
		steps:      newStepsModel(opts.Source, opts.Aggregator, holder, opts.WindowDays, opts.Now),
		account:    newAccountModel(opts.Credentials),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.steps.refresh(),
		a.account.refresh(),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.steps.setSize(a.width, contentHeight)
		a.account.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Refresh):
			a.steps.loading = true
			a.setStatus("Refreshing...", false)
			return a, a.steps.refresh()
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewSteps
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewAccount
			return a, a.account.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case statusMsg:
		a.steps.loading = false
		a.setStatus(msg.text, msg.isError)
		if msg.isError {
			a.logger.Warn("ui error", "error", msg.text)
		}
		return a, nil

	case stepsDataMsg:
		var cmd tea.Cmd
		a.steps, cmd = a.steps.update(msg)
		if a.steps.snapshot != nil {
			a.setStatus(fmt.Sprintf("Loaded %d days", len(a.steps.snapshot.Records)), false)
		}
		return a, cmd

	case accountDataMsg:
		var cmd tea.Cmd
		a.account, cmd = a.account.update(msg)
		return a, cmd

	case registeredMsg:
		a.setStatus("Registered "+msg.userID, false)
		return a, a.account.refresh()

	case exportDoneMsg:
		a.setStatus(fmt.Sprintf("Exported %d days to %s", msg.days, msg.path), false)
		a.exportPicking = false
		a.logger.Info("exported steps", "path", msg.path, "days", msg.days)
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusError = isError
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewSteps:
		a.steps, cmd = a.steps.update(msg)
	case viewAccount:
		a.account, cmd = a.account.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewAccount && a.account.formActive
}

func (a App) refreshCurrentView() tea.Cmd {
	if a.activeView == viewAccount {
		return a.account.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewSteps:
		content = a.steps.view()
	case viewAccount:
		content = a.account.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("stepr")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusError {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	left := footerStyle.Render(helpView)

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, status)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+export.DefaultFileName(f)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  to "+a.exportDir))
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(exportFormats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport writes the currently published snapshot. It never triggers an
// aggregation of its own.
func (a App) doExport(format export.Format) tea.Cmd {
	snap := a.holder.Load()
	dir := a.exportDir
	return func() tea.Msg {
		if snap == nil {
			return statusMsg{text: "Nothing to export yet", isError: true}
		}
		path, err := export.ToFile(snap.Records, format, dir)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path, days: len(snap.Records)}
	}
}
