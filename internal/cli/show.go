package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sadopc/stepr/internal/aggregate"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	e, err := openEnv(c.globals, false)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWith(e)
}

// executeWith runs the show logic against a prepared env (used by tests).
func (c *ShowCommand) executeWith(e *env) error {
	ref, err := referenceDate(c.Date, e.loc)
	if err != nil {
		return err
	}

	records, err := e.aggregate(context.Background(), ref, e.windowDays(c.Days))
	if err != nil {
		return err
	}

	if c.JSON {
		return writeRecordsJSON(ref, records)
	}

	fmt.Println(renderRecords(records))
	return nil
}

func renderRecords(records []aggregate.DailyStepRecord) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Date", "Day", "Steps"})
	for _, r := range records {
		tbl.AppendRow(table.Row{r.DateString(), r.Date.Format("Mon"), humanize.Comma(r.TotalSteps)})
	}
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	tbl.AppendFooter(table.Row{"Total", fmt.Sprintf("%d days", len(records)), humanize.Comma(aggregate.Total(records))})

	return tbl.Render()
}

type showJSON struct {
	Reference  string    `json:"reference"`
	Days       int       `json:"days"`
	TotalSteps int64     `json:"total_steps"`
	Records    []dayJSON `json:"records"`
}

type dayJSON struct {
	Date  string `json:"date"`
	Steps int64  `json:"steps"`
}

func writeRecordsJSON(ref time.Time, records []aggregate.DailyStepRecord) error {
	out := showJSON{
		Reference:  ref.Format(aggregate.DateLayout),
		Days:       len(records),
		TotalSteps: aggregate.Total(records),
		Records:    make([]dayJSON, 0, len(records)),
	}
	for _, r := range records {
		out.Records = append(out.Records, dayJSON{Date: r.DateString(), Steps: r.TotalSteps})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
