package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sadopc/stepr/internal/health"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	e, err := openEnv(c.globals, false)
	if err != nil {
		return err
	}
	defer e.Close()

	var r io.Reader = os.Stdin
	if c.Args.File != "-" {
		f, err := os.Open(c.Args.File)
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	return c.executeWith(e, r)
}

// executeWith runs the import logic against a prepared env (used by tests).
func (c *ImportCommand) executeWith(e *env, r io.Reader) error {
	res, err := e.store.ImportSamplesCSV(context.Background(), r, c.Source)
	if err != nil {
		return fmt.Errorf("importing samples: %w", err)
	}
	e.logger.Info("imported samples", "file", c.Args.File, "read", res.Read, "inserted", res.Inserted)

	fmt.Printf("Imported %s of %s samples (%s already present)\n",
		humanize.Comma(int64(res.Inserted)),
		humanize.Comma(int64(res.Read)),
		humanize.Comma(int64(res.Read-res.Inserted)))
	return nil
}

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.Start == "" {
		return fmt.Errorf("--start is required for add command")
	}

	e, err := openEnv(c.globals, false)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWith(e)
}

// executeWith runs the add logic against a prepared env (used by tests).
func (c *AddCommand) executeWith(e *env) error {
	start, err := time.Parse(time.RFC3339, c.Start)
	if err != nil {
		return fmt.Errorf("invalid --start %q: %w", c.Start, err)
	}
	end := start
	if c.End != "" {
		if end, err = time.Parse(time.RFC3339, c.End); err != nil {
			return fmt.Errorf("invalid --end %q: %w", c.End, err)
		}
	}

	sample, inserted, err := e.store.InsertSample(context.Background(), health.Sample{
		Count: c.Count,
		Start: start,
		End:   end,
	}, c.Source)
	if err != nil {
		return fmt.Errorf("storing sample: %w", err)
	}
	if !inserted {
		fmt.Printf("Sample %s already present\n", sample.ID)
		return nil
	}

	fmt.Printf("Added %s steps (%s)\n", humanize.Comma(sample.Count), sample.ID)
	fmt.Printf("  Start: %s\n", sample.Start.Format(time.RFC3339))
	fmt.Printf("  End:   %s\n", sample.End.Format(time.RFC3339))
	return nil
}
