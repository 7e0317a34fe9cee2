package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pavnask/rag-local-fork/internal/adapter/report"
	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/domain"
)

// Report file names inside REPORT_DIR.
const (
	timeWorkbook    = "IT_Systems_TIME_Report.xlsx"
	timeMarkdown    = "IT_Systems_TIME_Report.md"
	weatherWorkbook = "AI_Weather_Report.xlsx"
	weatherHTML     = "AI_Weather_Report.html"
	weatherTrends   = "weather_trends.html"
)

func writeReports(cfg *config.Config, results []domain.Classification, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	summary := report.Summary(report.Actions(results))

	var files []string
	var err error
	if cfg.Mode == config.ModeWeather {
		files, err = writeWeatherReports(cfg.ReportDir, results, summary)
	} else {
		files, err = writeTimeReports(cfg.ReportDir, results, summary)
	}
	if err != nil {
		return err
	}

	title := "IT Systems TIME Classification Summary"
	if cfg.Mode == config.ModeWeather {
		title = "Weather Classification Summary"
	}
	fmt.Println(report.ConsoleTable(title, summary))
	logger.Info("reports written", "classified", len(results), "files", files)
	return nil
}

func writeTimeReports(dir string, results []domain.Classification, summary []report.Count) ([]string, error) {
	rows := report.TimeRows(results)

	xlsx := filepath.Join(dir, timeWorkbook)
	table := spreadsheet.Table{Header: report.TimeColumns, Rows: rows}
	pie := &spreadsheet.PieChart{Title: "TIME Classification Distribution", Counts: pieCounts(summary)}
	if err := spreadsheet.WriteTable(xlsx, "TIME Classification", table, pie); err != nil {
		return nil, err
	}

	md := filepath.Join(dir, timeMarkdown)
	body := report.Markdown("IT Systems TIME Classification Report", summary, report.TimeColumns, rows)
	if err := os.WriteFile(md, []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("write markdown report: %w", err)
	}
	return []string{xlsx, md}, nil
}

func writeWeatherReports(dir string, results []domain.Classification, summary []report.Count) ([]string, error) {
	xlsx := filepath.Join(dir, weatherWorkbook)
	table := spreadsheet.Table{Header: report.WeatherColumns, Rows: report.WeatherTableRows(results)}
	pie := &spreadsheet.PieChart{Title: "Weather Classification Distribution", Counts: pieCounts(summary)}
	if err := spreadsheet.WriteTable(xlsx, "Weather Classification", table, pie); err != nil {
		return nil, err
	}

	trends := filepath.Join(dir, weatherTrends)
	if err := writeFile(trends, func(f *os.File) error { return report.TrendChart(f, results) }); err != nil {
		return nil, err
	}

	html := filepath.Join(dir, weatherHTML)
	if err := writeFile(html, func(f *os.File) error {
		return report.HTML(f, report.WeatherRows(results), weatherTrends)
	}); err != nil {
		return nil, err
	}
	return []string{xlsx, trends, html}, nil
}

func pieCounts(summary []report.Count) []spreadsheet.Count {
	out := make([]spreadsheet.Count, len(summary))
	for i, c := range summary {
		out[i] = spreadsheet.Count{Name: c.Name, Value: c.Value}
	}
	return out
}

func writeFile(path string, render func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return render(f)
}
