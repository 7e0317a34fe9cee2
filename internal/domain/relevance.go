package domain

import (
	"math"
	"strings"
)

type relevanceFactor struct {
	column   string
	weight   float64
	scale    map[string]float64
	fallback string
}

var relevanceFactors = []relevanceFactor{
	{
		column: ColSeverity, weight: 0.4, fallback: "medium",
		scale: map[string]float64{"critical": 5, "high": 4, "medium": 3, "low": 2, "info": 1},
	},
	{
		column: ColRecurrence, weight: 0.2, fallback: "occasionally",
		scale: map[string]float64{"frequent": 5, "often": 4, "occasionally": 3, "rare": 2, "first time": 1},
	},
	{
		column: ColAnomaly, weight: 0.2, fallback: "normal",
		scale: map[string]float64{"extreme": 5, "high": 4, "moderate": 3, "low": 2, "normal": 1},
	},
	{
		column: ColTimeSensitivity, weight: 0.2, fallback: "monitor",
		scale: map[string]float64{"immediate": 5, "urgent": 4, "soon": 3, "monitor": 2, "not urgent": 1},
	},
}

// HasRelevanceColumns reports whether any ranking column is present.
func HasRelevanceColumns(fields map[string]string) bool {
	for _, f := range relevanceFactors {
		if _, ok := fields[f.column]; ok {
			return true
		}
	}
	return false
}

// RelevanceScore weights the Severity, Recurrence, Anomaly and Time Sensitivity
// labels into a 1..5 score rounded to two decimals. Missing or unknown labels use
// each factor's default.
func RelevanceScore(fields map[string]string) float64 {
	var total float64
	for _, f := range relevanceFactors {
		v, ok := f.scale[strings.ToLower(strings.TrimSpace(fields[f.column]))]
		if !ok {
			v = f.scale[f.fallback]
		}
		total += v * f.weight
	}
	return math.Round(total*100) / 100
}
