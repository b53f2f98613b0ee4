package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/stepr/internal/aggregate"
)

type jsonExport struct {
	ExportedAt string    `json:"exported_at"`
	Count      int       `json:"count"`
	TotalSteps int64     `json:"total_steps"`
	Days       []jsonDay `json:"days"`
}

type jsonDay struct {
	Date  string `json:"date"`
	Steps int64  `json:"steps"`
}

// ToJSON writes records to path as an indented JSON document.
func ToJSON(records []aggregate.DailyStepRecord, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(records),
		TotalSteps: aggregate.Total(records),
		Days:       make([]jsonDay, 0, len(records)),
	}

	for _, r := range records {
		export.Days = append(export.Days, jsonDay{
			Date:  r.DateString(),
			Steps: r.TotalSteps,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return &IOError{Path: path, Err: fmt.Errorf("marshal json: %w", err)}
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &IOError{Path: path, Err: fmt.Errorf("write json file: %w", err)}
	}
	return nil
}
