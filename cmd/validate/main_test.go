package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavnask/rag-local-fork/internal/adapter/report"
	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/domain"
)

func writeReport(t *testing.T, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, spreadsheet.WriteTable(path, "Report", spreadsheet.Table{Header: header, Rows: rows}, nil))
	return path
}

func TestRun_ValidTimeReport(t *testing.T) {
	relevance := 4.2
	rows := report.TimeRows([]domain.Classification{
		{ObservationID: "1", Text: "legacy", Action: domain.ActionEliminate, Method: domain.MethodKeyword, Relevance: &relevance},
		{ObservationID: "2", Text: "noise", Action: domain.NoMatchLabel, Method: domain.MethodNone, Score: 0.12},
	})
	path := writeReport(t, report.TimeColumns, rows)

	var out bytes.Buffer
	assert.Equal(t, 0, run(&out, path, "", config.ModeTime))
	assert.Contains(t, out.String(), "All validations passed.")
}

func TestRun_InvalidTimeReport(t *testing.T) {
	rows := [][]string{
		{"1", "text", "Upgrade", "semantic", "1.4", "", "", "", "7"},
		{"2", "text", "Migrate", "guess", "0.5", "", "", "", ""},
	}
	path := writeReport(t, report.TimeColumns, rows)

	var out bytes.Buffer
	assert.Equal(t, 1, run(&out, path, "", config.ModeTime))
	assert.Contains(t, out.String(), `row 2: unexpected TIME_Classification "Upgrade"`)
	assert.Contains(t, out.String(), `row 3: unknown match method "guess"`)
	assert.Contains(t, out.String(), "row 2: Match_Score 1.4 out of range")
	assert.Contains(t, out.String(), "row 2: Relevance_Score 7 out of range")
	assert.Contains(t, out.String(), "Validation FAILED.")
}

func TestRun_WeatherMissingColumns(t *testing.T) {
	path := writeReport(t, []string{domain.ColLocation, domain.ColClassification}, [][]string{{"Miami", "Good"}})

	var out bytes.Buffer
	assert.Equal(t, 1, run(&out, path, "", config.ModeWeather))
	assert.Contains(t, out.String(), `missing column "Sky Condition"`)
}

func TestRun_MissingFile(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, run(&out, filepath.Join(t.TempDir(), "nope.xlsx"), "", config.ModeTime))
}
