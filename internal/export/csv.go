package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sadopc/stepr/internal/aggregate"
)

// CSVHeader is the first line of every exported CSV document.
const CSVHeader = "Date, Steps"

// WriteCSV writes the header and one "<date>, <steps>" line per record.
// Fields are not quoted: dates and integers never contain the separator.
// Failures are reported as *IOError naming the writer.
func WriteCSV(w io.Writer, records []aggregate.DailyStepRecord) error {
	if err := writeCSV(w, records); err != nil {
		return &IOError{Path: writerName(w), Err: fmt.Errorf("write csv: %w", err)}
	}
	return nil
}

// writerName returns the file name behind w, or "<writer>".
func writerName(w io.Writer) string {
	if n, ok := w.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return "<writer>"
}

func writeCSV(w io.Writer, records []aggregate.DailyStepRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(CSVHeader + "\n"); err != nil {
		return err
	}
	for _, r := range records {
		line := r.DateString() + ", " + strconv.FormatInt(r.TotalSteps, 10) + "\n"
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ToCSV writes records to path, truncating any existing file. A partially
// written file is left in place on failure.
func ToCSV(records []aggregate.DailyStepRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Path: path, Err: fmt.Errorf("create csv file: %w", err)}
	}

	if err := writeCSV(f, records); err != nil {
		f.Close()
		return &IOError{Path: path, Err: fmt.Errorf("write csv: %w", err)}
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: path, Err: fmt.Errorf("close csv file: %w", err)}
	}
	return nil
}
