package spreadsheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// PieChart describes an optional category summary written next to the data:
// a Category / Count block and a pie chart with percentage labels.
type PieChart struct {
	Title  string
	Counts []Count
}

// Count is one slice of the pie.
type Count struct {
	Name  string
	Value int
}

// ReadTable reads a sheet, treating the first row as the header. An empty
// sheet name selects the first sheet.
func ReadTable(path, sheet string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Table{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Table{}, nil
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return Table{}, fmt.Errorf("%w: sheet %q in %s", ErrNotFound, sheet, path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return Table{}, nil
	}

	t := Table{Header: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		t.Header[i] = strings.TrimSpace(h)
	}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteTable writes the table to a new workbook at path. When pie is non-nil
// a summary block and pie chart are added to the right of the data.
func WriteTable(path, sheet string, t Table, pie *PieChart) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeRow(f, sheet, 1, 1, t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := writeRow(f, sheet, 1, i+2, row); err != nil {
			return err
		}
	}

	if pie != nil && len(pie.Counts) > 0 {
		if err := addPieChart(f, sheet, len(t.Header)+2, pie); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func addPieChart(f *excelize.File, sheet string, col int, pie *PieChart) error {
	if err := writeRow(f, sheet, col, 1, []string{"Category", "Count"}); err != nil {
		return err
	}
	for i, c := range pie.Counts {
		nameCell, _ := excelize.CoordinatesToCellName(col, i+2)
		countCell, _ := excelize.CoordinatesToCellName(col+1, i+2)
		if err := f.SetCellValue(sheet, nameCell, c.Name); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		if err := f.SetCellValue(sheet, countCell, c.Value); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	nameCol, _ := excelize.ColumnNumberToName(col)
	countCol, _ := excelize.ColumnNumberToName(col + 1)
	last := len(pie.Counts) + 1
	anchor, _ := excelize.CoordinatesToCellName(col+3, 2)
	ref := quoteSheet(sheet)

	err := f.AddChart(sheet, anchor, &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$%s$1", ref, countCol),
			Categories: fmt.Sprintf("%s!$%s$2:$%s$%d", ref, nameCol, nameCol, last),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", ref, countCol, countCol, last),
		}},
		Title:    []excelize.RichTextRun{{Text: pie.Title}},
		PlotArea: excelize.ChartPlotArea{ShowPercent: true},
	})
	if err != nil {
		return fmt.Errorf("add pie chart: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, col, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
