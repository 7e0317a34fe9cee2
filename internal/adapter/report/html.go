package report

import (
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// GoodClassification is the weather label rendered with the "good" style.
const GoodClassification = "Good"

// WeatherRow is one line of the weather HTML report.
type WeatherRow struct {
	Location       string
	Weather        string
	Observation    string
	Recommendation string
	Classification string
}

// Class returns the CSS class for the classification cell.
func (r WeatherRow) Class() string {
	if r.Classification == GoodClassification {
		return "good"
	}
	return "bad"
}

// WeatherRows converts classifications to report rows.
func WeatherRows(results []domain.Classification) []WeatherRow {
	rows := make([]WeatherRow, 0, len(results))
	for _, c := range results {
		rows = append(rows, WeatherRow{
			Location:       c.Fields[domain.ColLocation],
			Weather:        fmt.Sprintf("%s, %s, %s", c.Fields[domain.ColSky], c.Fields[domain.ColRain], c.Fields[domain.ColWind]),
			Observation:    c.Text,
			Recommendation: c.Suggestion,
			Classification: c.Action,
		})
	}
	return rows
}

var htmlTemplate = template.Must(template.New("weather").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AI Weather Report</title>
    <style>
        body { padding: 20px; font-family: sans-serif; }
        .good { color: green; font-weight: bold; }
        .bad { color: red; font-weight: bold; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 10px; border: 1px solid #ddd; }
        th { background-color: #f4f4f4; }
        iframe { width: 100%; height: 520px; border: none; }
    </style>
</head>
<body>
    <h1>AI Weather Analysis Report</h1>
{{- if .ChartFile}}
    <h2>Weather Trends</h2>
    <iframe src="{{.ChartFile}}" title="Weather Trends"></iframe>
{{- end}}
    <h2>Detailed Weather Data</h2>
    <table>
        <thead>
            <tr><th>Location</th><th>Weather</th><th>Observation</th><th>AI Suggestion</th><th>Classification</th></tr>
        </thead>
        <tbody>
{{- range .Rows}}
            <tr><td>{{.Location}}</td><td>{{.Weather}}</td><td>{{.Observation}}</td><td>{{.Recommendation}}</td><td class="{{.Class}}">{{.Classification}}</td></tr>
{{- end}}
        </tbody>
    </table>
</body>
</html>
`))

// HTML writes the weather report. chartFile, when set, is embedded as the
// trends frame.
func HTML(w io.Writer, rows []WeatherRow, chartFile string) error {
	data := struct {
		Rows      []WeatherRow
		ChartFile string
	}{rows, chartFile}
	if err := htmlTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// TrendChart writes a stacked bar chart of sky conditions per location.
func TrendChart(w io.Writer, results []domain.Classification) error {
	locations, skies, counts := skyCounts(results)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Most Frequent Sky Conditions by Location"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Location"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Occurrences"}),
	)
	bar.SetXAxis(locations)
	for _, sky := range skies {
		data := make([]opts.BarData, len(locations))
		for i, loc := range locations {
			data[i] = opts.BarData{Value: counts[loc][sky]}
		}
		bar.AddSeries(sky, data, charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))
	}
	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render trend chart: %w", err)
	}
	return nil
}

// skyCounts groups sky conditions per location, both axes sorted.
func skyCounts(results []domain.Classification) (locations, skies []string, counts map[string]map[string]int) {
	counts = make(map[string]map[string]int)
	skySet := make(map[string]bool)
	for _, c := range results {
		loc, sky := c.Fields[domain.ColLocation], c.Fields[domain.ColSky]
		if counts[loc] == nil {
			counts[loc] = make(map[string]int)
			locations = append(locations, loc)
		}
		counts[loc][sky]++
		if !skySet[sky] {
			skySet[sky] = true
			skies = append(skies, sky)
		}
	}
	sort.Strings(locations)
	sort.Strings(skies)
	return locations, skies, counts
}
