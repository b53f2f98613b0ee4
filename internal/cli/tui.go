package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/stepr/internal/tui"
)

// runTUI opens the terminal UI over the configured database.
func runTUI(g *GlobalFlags, version string) error {
	e, err := openEnv(g, true)
	if err != nil {
		return err
	}
	defer e.Close()

	app, err := newApp(e)
	if err != nil {
		return err
	}
	e.logger.Info("starting ui", "version", version)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

func newApp(e *env) (tui.App, error) {
	dir, err := e.cfg.ExportDir()
	if err != nil {
		return tui.App{}, err
	}
	return tui.NewApp(tui.Options{
		Source:      e.store,
		Aggregator:  e.agg,
		Credentials: e.creds,
		WindowDays:  e.cfg.Aggregation.WindowDays,
		ExportDir:   dir,
		Location:    e.loc,
		Logger:      e.logger.With("component", "tui"),
	}), nil
}
