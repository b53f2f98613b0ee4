package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/stepr/internal/aggregate"
	"github.com/sadopc/stepr/internal/health"
)

func TestShowCommand_Table(t *testing.T) {
	e := testEnv(t)
	addSample(t, e, "2026-10-19T07:00:00Z", 30, 8123)
	addSample(t, e, "2026-10-17T18:00:00Z", 10, 250)

	cmd := &ShowCommand{Days: 3, Date: "2026-10-19", globals: &GlobalFlags{}}

	var err error
	out := captureOutput(t, func() { err = cmd.executeWith(e) })
	require.NoError(t, err)

	for _, want := range []string{"2026-10-17", "2026-10-18", "2026-10-19", "8,123", "250", "8,373"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "2026-10-17"), strings.Index(out, "2026-10-19"), "rows should be chronological")
}

func TestShowCommand_JSON(t *testing.T) {
	e := testEnv(t)
	addSample(t, e, "2026-10-19T07:00:00Z", 30, 100)

	cmd := &ShowCommand{Days: 7, Date: "2026-10-19", JSON: true, globals: &GlobalFlags{}}

	var err error
	out := captureOutput(t, func() { err = cmd.executeWith(e) })
	require.NoError(t, err)

	var got showJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2026-10-19", got.Reference)
	assert.Equal(t, 7, got.Days)
	require.Len(t, got.Records, 7)
	assert.Equal(t, "2026-10-13", got.Records[0].Date)
	assert.Equal(t, int64(100), got.Records[6].Steps)
}

func TestShowCommand_DefaultWindowFromConfig(t *testing.T) {
	e := testEnv(t)
	e.cfg.Aggregation.WindowDays = 5

	cmd := &ShowCommand{Date: "2026-10-19", JSON: true, globals: &GlobalFlags{}}
	out := captureOutput(t, func() { require.NoError(t, cmd.executeWith(e)) })

	var got showJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Records, 5)
}

func TestShowCommand_InvalidDate(t *testing.T) {
	e := testEnv(t)
	cmd := &ShowCommand{Date: "19/10/2026", globals: &GlobalFlags{}}
	err := cmd.executeWith(e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestShowCommand_InvalidWindow(t *testing.T) {
	e := testEnv(t)
	cmd := &ShowCommand{Days: -1, globals: &GlobalFlags{}}
	assert.ErrorIs(t, cmd.executeWith(e), aggregate.ErrInvalidWindow)
}

func TestShowCommand_UnavailableSource(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.store.Close())

	cmd := &ShowCommand{Days: 3, globals: &GlobalFlags{}}
	err := cmd.executeWith(e)

	var dse *health.DataSourceError
	require.True(t, errors.As(err, &dse))
	assert.ErrorIs(t, err, health.ErrUnavailable)
}

func TestExportCommand_CSV(t *testing.T) {
	e := testEnv(t)
	addSample(t, e, "2026-10-18T12:00:00Z", 15, 777)
	dir := t.TempDir()

	cmd := &ExportCommand{Days: 2, Date: "2026-10-19", Dir: dir, globals: &GlobalFlags{}}
	out := captureOutput(t, func() { require.NoError(t, cmd.executeWith(e)) })
	assert.Contains(t, out, "Exported 2 days")

	data, err := os.ReadFile(filepath.Join(dir, "StepCounts.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Date, Steps\n2026-10-18, 777\n2026-10-19, 0\n", string(data))
}

func TestExportCommand_JSONFromConfig(t *testing.T) {
	e := testEnv(t)
	e.cfg.Export.Format = "json"
	e.cfg.Export.Dir = t.TempDir()

	cmd := &ExportCommand{Days: 2, Date: "2026-10-19", globals: &GlobalFlags{}}
	captureOutput(t, func() { require.NoError(t, cmd.executeWith(e)) })

	data, err := os.ReadFile(filepath.Join(e.cfg.Export.Dir, "StepCounts.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date": "2026-10-18"`)
}

func TestExportCommand_BadFormat(t *testing.T) {
	e := testEnv(t)
	cmd := &ExportCommand{Format: "xml", globals: &GlobalFlags{}}
	assert.Error(t, cmd.executeWith(e))
}

func TestExportCommand_BadDir(t *testing.T) {
	e := testEnv(t)
	cmd := &ExportCommand{Days: 1, Dir: "/nonexistent/dir", globals: &GlobalFlags{}}
	err := cmd.executeWith(e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/dir")
}

func TestRegisterAndVerifyCommands(t *testing.T) {
	e := testEnv(t)

	reg := &RegisterCommand{User: "alice", Password: "pw1", globals: &GlobalFlags{}}
	out := captureOutput(t, func() { require.NoError(t, reg.executeWith(e)) })
	assert.Contains(t, out, "Registered user alice")

	reg = &RegisterCommand{User: "bob", Password: "pw2", globals: &GlobalFlags{}}
	out = captureOutput(t, func() { require.NoError(t, reg.executeWith(e)) })
	assert.Contains(t, out, "Replaced registration with user bob")

	ver := &VerifyCommand{User: "bob", Password: "pw2", globals: &GlobalFlags{}}
	out = captureOutput(t, func() { require.NoError(t, ver.executeWith(e)) })
	assert.Contains(t, out, "Credentials verified")

	ver = &VerifyCommand{User: "alice", Password: "pw1", globals: &GlobalFlags{}}
	assert.ErrorIs(t, ver.executeWith(e), ErrMismatch)
}

func TestRegisterRequiresUser(t *testing.T) {
	cmd := &RegisterCommand{globals: &GlobalFlags{}}
	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user")
}

func TestReadPassword(t *testing.T) {
	pw, err := readPassword("flag", false, nil)
	require.NoError(t, err)
	assert.Equal(t, "flag", pw)

	pw, err = readPassword("", true, strings.NewReader("secret\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)

	pw, err = readPassword("", true, strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)

	_, err = readPassword("flag", true, strings.NewReader("x\n"))
	assert.Error(t, err)
}

func TestImportCommand(t *testing.T) {
	e := testEnv(t)
	doc := "start,end,count,id\n" +
		"2026-10-19T08:00:00Z,2026-10-19T08:30:00Z,1500,a\n" +
		"2026-10-19T12:00:00Z,2026-10-19T12:10:00Z,300,b\n"

	cmd := &ImportCommand{Source: "import", globals: &GlobalFlags{}}
	out := captureOutput(t, func() { require.NoError(t, cmd.executeWith(e, strings.NewReader(doc))) })
	assert.Contains(t, out, "Imported 2 of 2 samples")

	out = captureOutput(t, func() { require.NoError(t, cmd.executeWith(e, strings.NewReader(doc))) })
	assert.Contains(t, out, "Imported 0 of 2 samples (2 already present)")

	n, err := e.store.CountSamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestImportCommand_BadFile(t *testing.T) {
	e := testEnv(t)
	cmd := &ImportCommand{globals: &GlobalFlags{}}
	err := cmd.executeWith(e, strings.NewReader("when,steps\nx,y\n"))
	assert.Error(t, err)
}

func TestAddCommand(t *testing.T) {
	e := testEnv(t)

	cmd := &AddCommand{Count: 42, Start: "2026-10-19T09:00:00Z", Source: "manual", globals: &GlobalFlags{}}
	out := captureOutput(t, func() { require.NoError(t, cmd.executeWith(e)) })
	assert.Contains(t, out, "Added 42 steps")

	samples, err := e.store.ReadRecords(context.Background(), health.ReadRequest{
		Type:  health.RecordSteps,
		Range: health.Between(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.True(t, samples[0].Start.Equal(samples[0].End), "missing --end should record an instant")
}

func TestAddCommand_Invalid(t *testing.T) {
	e := testEnv(t)

	tests := []struct {
		name string
		cmd  *AddCommand
	}{
		{"bad start", &AddCommand{Count: 1, Start: "yesterday"}},
		{"bad end", &AddCommand{Count: 1, Start: "2026-10-19T09:00:00Z", End: "later"}},
		{"end before start", &AddCommand{Count: 1, Start: "2026-10-19T09:00:00Z", End: "2026-10-19T08:00:00Z"}},
		{"negative count", &AddCommand{Count: -5, Start: "2026-10-19T09:00:00Z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmd.globals = &GlobalFlags{}
			assert.Error(t, tt.cmd.executeWith(e))
		})
	}
}

func TestAddRequiresStart(t *testing.T) {
	cmd := &AddCommand{Count: 1, globals: &GlobalFlags{}}
	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start")
}

func TestReferenceDate(t *testing.T) {
	loc := time.UTC
	ref, err := referenceDate("2026-03-01", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, loc), ref)

	ref, err = referenceDate("", loc)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ref, time.Minute)
}

func TestNewAppFromEnv(t *testing.T) {
	e := testEnv(t)
	_, err := newApp(e)
	require.NoError(t, err)
}
