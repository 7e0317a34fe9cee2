// Command validate checks a classification report workbook written by the
// classify command: required columns, labels and score ranges.
//
// Usage:
//
//	go run ./cmd/validate -report reports/IT_Systems_TIME_Report.xlsx -mode time
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/pavnask/rag-local-fork/internal/adapter/report"
	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/domain"
)

var timeActions = []string{
	domain.ActionTolerate, domain.ActionInvest, domain.ActionMigrate, domain.ActionEliminate, domain.NoMatchLabel,
}

var methods = []string{
	domain.MethodSemantic, domain.MethodKeyword, domain.MethodFuzzy, domain.MethodRule, domain.MethodNone,
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	path := flag.String("report", "", "path to the report workbook")
	mode := flag.String("mode", config.ModeTime, "report mode: time or weather")
	sheet := flag.String("sheet", "", "sheet name (default: first sheet)")
	flag.Parse()

	if *path == "" || (*mode != config.ModeTime && *mode != config.ModeWeather) {
		flag.Usage()
		os.Exit(1)
	}
	if code := run(os.Stdout, *path, *sheet, *mode); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, path, sheet, mode string) int {
	fmt.Fprintln(out, "=== Classification Report Validation ===")

	t, err := spreadsheet.ReadTable(path, sheet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load report: %v\n", err)
		return 1
	}

	var phases []*phase
	if mode == config.ModeWeather {
		phases = []*phase{
			validateColumns(t, report.WeatherColumns),
			validateLabels(t, domain.ColClassification, nil),
			validateMethods(t),
			validateScores(t, report.ColMatchScore, 0, 1, false),
		}
	} else {
		phases = []*phase{
			validateColumns(t, report.TimeColumns),
			validateLabels(t, report.ColTimeClass, timeActions),
			validateMethods(t),
			validateScores(t, report.ColMatchScore, 0, 1, false),
			validateScores(t, report.ColRelevanceScore, 1, 5, true),
		}
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}
	fmt.Fprintf(out, "\nRows: %d\n", len(t.Rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validateColumns(t spreadsheet.Table, required []string) *phase {
	p := &phase{name: "Required columns"}
	for _, c := range required {
		if !t.Has(c) {
			p.errorf("missing column %q", c)
		}
	}
	if len(t.Rows) == 0 {
		p.errorf("report has no rows")
	}
	return p
}

// validateLabels checks that every row has a label, and that it is one of
// allowed when allowed is non-nil.
func validateLabels(t spreadsheet.Table, column string, allowed []string) *phase {
	p := &phase{name: "Labels in " + column}
	for i, v := range t.Column(column) {
		switch {
		case v == "":
			p.errorf("row %d: empty %s", i+2, column)
		case allowed != nil && !slices.Contains(allowed, v):
			p.errorf("row %d: unexpected %s %q", i+2, column, v)
		}
	}
	return p
}

func validateMethods(t spreadsheet.Table) *phase {
	p := &phase{name: "Match methods"}
	for i, v := range t.Column(report.ColMatchMethod) {
		if !slices.Contains(methods, v) {
			p.errorf("row %d: unknown match method %q", i+2, v)
		}
	}
	return p
}

func validateScores(t spreadsheet.Table, column string, lo, hi float64, optional bool) *phase {
	p := &phase{name: fmt.Sprintf("%s in [%g, %g]", column, lo, hi)}
	for i, v := range t.Column(column) {
		if v == "" && optional {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.errorf("row %d: %s %q is not a number", i+2, column, v)
			continue
		}
		if f < lo || f > hi {
			p.errorf("row %d: %s %g out of range", i+2, column, f)
		}
	}
	return p
}
