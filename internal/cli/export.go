package cli

import (
	"context"
	"fmt"

	"github.com/sadopc/stepr/internal/export"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	e, err := openEnv(c.globals, false)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWith(e)
}

// executeWith runs the export logic against a prepared env (used by tests).
func (c *ExportCommand) executeWith(e *env) error {
	formatName := c.Format
	if formatName == "" {
		formatName = e.cfg.Export.Format
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	dir := c.Dir
	if dir == "" {
		if dir, err = e.cfg.ExportDir(); err != nil {
			return err
		}
	}

	ref, err := referenceDate(c.Date, e.loc)
	if err != nil {
		return err
	}

	records, err := e.aggregate(context.Background(), ref, e.windowDays(c.Days))
	if err != nil {
		return err
	}

	path, err := export.ToFile(records, format, dir)
	if err != nil {
		return err
	}
	e.logger.Info("exported steps", "path", path, "format", string(format), "days", len(records))

	fmt.Printf("Exported %d days to %s\n", len(records), path)
	return nil
}
