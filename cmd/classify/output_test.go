package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pavnask/rag-local-fork/internal/adapter/report"
	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteReports_Time(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Mode: config.ModeTime, ReportDir: filepath.Join(dir, "out")}
	results := []domain.Classification{
		{ObservationID: "1", Text: "legacy batch", Action: domain.ActionEliminate, Method: domain.MethodKeyword},
		{ObservationID: "2", Text: "stable", Action: domain.ActionTolerate, Method: domain.MethodKeyword},
	}

	require.NoError(t, writeReports(cfg, results, discardLogger()))

	got, err := spreadsheet.ReadTable(filepath.Join(cfg.ReportDir, timeWorkbook), "TIME Classification")
	require.NoError(t, err)
	assert.Equal(t, report.TimeColumns, got.Header[:len(report.TimeColumns)])
	assert.Len(t, got.Rows, 2)

	md, err := os.ReadFile(filepath.Join(cfg.ReportDir, timeMarkdown))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# IT Systems TIME Classification Report")
	assert.Contains(t, string(md), "| Eliminate | 1 |")
}

func TestWriteReports_Weather(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeWeather, ReportDir: t.TempDir()}
	results := []domain.Classification{{
		ObservationID: "w1",
		Text:          "Sunny all day",
		Fields:        map[string]string{domain.ColLocation: "Miami", domain.ColSky: "Sunny"},
		Action:        "Good",
	}}

	require.NoError(t, writeReports(cfg, results, discardLogger()))

	for _, name := range []string{weatherWorkbook, weatherHTML, weatherTrends} {
		info, err := os.Stat(filepath.Join(cfg.ReportDir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
	html, err := os.ReadFile(filepath.Join(cfg.ReportDir, weatherHTML))
	require.NoError(t, err)
	assert.Contains(t, string(html), weatherTrends)
}

func TestPieCounts(t *testing.T) {
	got := pieCounts([]report.Count{{Name: "Good", Value: 2}})
	assert.Equal(t, []spreadsheet.Count{{Name: "Good", Value: 2}}, got)
}
