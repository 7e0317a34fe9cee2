// Command genmock writes sample spreadsheets for the TIME and weather
// classifiers: rules, free-text observations, structured observations and
// weather rules and observations. Output is reproducible for a given seed.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/domain"
)

// Sample file names.
const (
	RulesFile              = "rules.xlsx"
	ObservationsFile       = "observations.xlsx"
	StructuredFile         = "structured_observations.xlsx"
	WeatherRulesFile       = "weather_rules.xlsx"
	WeatherObservationFile = "weather_observations.xlsx"
)

// ColReportedAt stamps free-text observations.
const ColReportedAt = "Reported_At"

var generatedAt = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

var timeRules = [][]string{
	{"High CPU usage on legacy servers", domain.ActionMigrate, "Move the workload to scalable cloud instances"},
	{"Frequent security vulnerabilities reported", domain.ActionEliminate, "Retire the system and replace it with a supported product"},
	{"System stable with low maintenance cost", domain.ActionTolerate, "Keep running and review yearly"},
	{"Growing user demand and strategic importance", domain.ActionInvest, "Fund feature development and capacity"},
	{"Database response time degrading", domain.ActionMigrate, "Plan a move to a managed database service"},
	{"Unsupported operating system version", domain.ActionEliminate, "Decommission after data migration"},
}

var freeText = []string{
	"The billing server shows high CPU usage every evening",
	"Security audit found unpatched vulnerabilities in the HR portal",
	"Inventory app has been stable for months with no incidents",
	"Customer portal traffic doubled after the product launch",
	"Reports database queries take longer each week",
	"Mail relay still runs on an unsupported OS release",
	"Legacy COBOL batch jobs are hard to staff",
	"Cost of maintenance for the print server keeps rising",
}

var structured = [][]string{
	{"Billing Server", "CPU Usage", "92%"},
	{"HR Portal", "Security Vulnerabilities", "14"},
	{"Reports DB", "Database Response Time", "850ms"},
	{"Mail Relay", "Operating System Version", "EOL"},
}

var weatherRules = [][]string{
	{"Sunny", "None", "Calm", "", "Good", "Wear sunglasses and a hat"},
	{"Cloudy", "Light", "Calm", "", "Fair", "Carry an umbrella"},
	{"Cloudy", "Heavy", "Windy", "", "Bad", "Stay inside or wear a raincoat and boots"},
	{"Cloudy", "Heavy", "Windy", "Seattle", "Fair", "Raincoat is enough, locals are used to it"},
	{"Snowy", "None", "Windy", "", "Bad", "Wear a coat, gloves and boots"},
	{"Snowy", "None", "Windy", "Denver", "Fair", "Wear a coat and gloves"},
}

var weatherObservations = [][]string{
	{"Miami", "Sunny", "None", "Calm", "Hot and sunny, wore sunglasses and a hat"},
	{"Seattle", "Cloudy", "Heavy", "Windy", "Heavy rain and wind all day, took my umbrella"},
	{"Boston", "Cloudy", "Heavy", "Windy", "Rain in the morning but the streets stayed dry, umbrella broke"},
	{"Denver", "Snowy", "None", "Windy", "Snow overnight, cold and windy"},
	{"Chicago", "Cloudy", "Light", "Calm", "Light rain, forgot my raincoat"},
	{"Phoenix", "Sunny", "None", "Calm", "Sun came out after the rain"},
}

var (
	severities   = []string{"Critical", "High", "Medium", "Low", "Info"}
	recurrences  = []string{"Frequent", "Often", "Occasionally", "Rare", "First Time"}
	anomalies    = []string{"Extreme", "High", "Moderate", "Low", "Normal"}
	sensitivites = []string{"Immediate", "Urgent", "Soon", "Monitor", "Not urgent"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", ".", "directory to write the sample spreadsheets to")
	seed := flag.Uint64("seed", 42, "seed for the ranking columns")
	flag.Parse()

	// Fixed clock for reproducible Reported_At stamps.
	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewPCG(*seed, *seed))
	files := map[string]spreadsheet.Table{
		RulesFile:              timeRulesTable(),
		ObservationsFile:       observationsTable(rng),
		StructuredFile:         structuredTable(),
		WeatherRulesFile:       weatherRulesTable(),
		WeatherObservationFile: weatherObservationsTable(),
	}
	for name, t := range files {
		path := filepath.Join(*outDir, name)
		if err := spreadsheet.WriteTable(path, "Sheet1", t, nil); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		fmt.Printf("Wrote %d rows to %s\n", len(t.Rows), path)
	}
	return nil
}

func timeRulesTable() spreadsheet.Table {
	t := spreadsheet.Table{Header: []string{"Rule_ID", domain.ColCondition, domain.ColAction, domain.ColRecommendation}}
	for i, r := range timeRules {
		t.Rows = append(t.Rows, append([]string{"R" + strconv.Itoa(i+1)}, r...))
	}
	return t
}

func observationsTable(rng *rand.Rand) spreadsheet.Table {
	t := spreadsheet.Table{Header: []string{
		domain.ColObservationID, domain.ColObservationText, ColReportedAt,
		domain.ColSeverity, domain.ColRecurrence, domain.ColAnomaly, domain.ColTimeSensitivity,
	}}
	now := domain.Now()
	for i, text := range freeText {
		t.Rows = append(t.Rows, []string{
			"OBS" + strconv.Itoa(i+1),
			text,
			now.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339),
			pick(rng, severities),
			pick(rng, recurrences),
			pick(rng, anomalies),
			pick(rng, sensitivites),
		})
	}
	return t
}

func structuredTable() spreadsheet.Table {
	t := spreadsheet.Table{Header: []string{domain.ColObservationID, domain.ColEntity, domain.ColMetric, domain.ColValue}}
	for i, r := range structured {
		t.Rows = append(t.Rows, append([]string{"STR" + strconv.Itoa(i+1)}, r...))
	}
	return t
}

func weatherRulesTable() spreadsheet.Table {
	return spreadsheet.Table{
		Header: []string{
			domain.ColSky, domain.ColRain, domain.ColWind, domain.ColLocationException,
			domain.ColClassification, domain.ColRecommendation,
		},
		Rows: weatherRules,
	}
}

func weatherObservationsTable() spreadsheet.Table {
	return spreadsheet.Table{
		Header: []string{domain.ColLocation, domain.ColSky, domain.ColRain, domain.ColWind, domain.ColFreeText},
		Rows:   weatherObservations,
	}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}
