package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func weatherObs(location, sky, rain, wind, text string) *Observation {
	return NewObservation("", text, map[string]string{
		ColLocation: location, ColSky: sky, ColRain: rain, ColWind: wind, ColFreeText: text,
	})
}

func TestExtractEntities(t *testing.T) {
	weather, items := ExtractEntities("Heavy rain and wind; took my Umbrella and boots. Rain again!")
	assert.Equal(t, []string{"rain", "wind"}, weather)
	assert.Equal(t, []string{"boots", "umbrella"}, items)

	w, i := ExtractEntities("nothing here")
	assert.Empty(t, w)
	assert.Empty(t, i)
	assert.Equal(t, "None", JoinOrNone(w))
}

func TestMatchWeatherRule(t *testing.T) {
	rules := []Rule{
		{ID: "generic", Sky: "Cloudy", Rain: "Heavy", Wind: "Calm", Action: "Bad", Recommendation: "Stay inside"},
		{ID: "denver", Sky: "Cloudy", Rain: "Heavy", Wind: "Calm", LocationException: "Denver", Action: "Fair"},
		{ID: "miami", Sky: "Sunny", Rain: "None", Wind: "Calm", LocationException: "Miami", Action: "Good"},
	}

	tests := []struct {
		name   string
		obs    *Observation
		wantID string
		wantOK bool
	}{
		{"location exception wins", weatherObs("Denver", "Cloudy", "Heavy", "Calm", ""), "denver", true},
		{"generic fallback", weatherObs("Boston", "Cloudy", "Heavy", "Calm", ""), "generic", true},
		{"other location exception never applies", weatherObs("Boston", "Sunny", "None", "Calm", ""), "", false},
		{"no categorical match", weatherObs("Miami", "Sunny", "Light", "Calm", ""), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := MatchWeatherRule(tt.obs, rules)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, r.ID)
		})
	}
}

func TestDetectContradictions(t *testing.T) {
	tests := []struct {
		name string
		sky  string
		text string
		want string
	}{
		{"consistent", "Cloudy", "Overcast all day", "None"},
		{"sunny sky but rain", "Sunny", "Light rain at noon", "Contradiction: Sunny but mentions rain in free text."},
		{"sun and rain in text", "Cloudy", "Sun came out after the rain",
			"Sun & Rain Contradiction Detected"},
		{"all three", "Sunny", "sun then rain, umbrella but dry",
			"Contradiction: Sunny but mentions rain in free text. | Sun & Rain Contradiction Detected | Umbrella mentioned but 'dry' stated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContradictionText(DetectContradictions(tt.sky, tt.text)))
		})
	}
}

func TestMissingGear(t *testing.T) {
	tests := []struct {
		name     string
		location string
		text     string
		items    []string
		want     []string
	}{
		{"rain without gear", "Boston", "Rain all morning", nil, []string{"boots", "raincoat", "umbrella"}},
		{"rain covered by umbrella", "Boston", "rain again", []string{"umbrella"}, []string{}},
		{"denver snow drops boots", "Denver", "Snow overnight", nil, []string{"coat", "gloves"}},
		{"cold and windy", "Chicago", "windy and cold", []string{"scarf"}, []string{"gloves", "jacket"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingGear(tt.location, tt.text, tt.items)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MissingGear() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGearRecommendation(t *testing.T) {
	assert.Equal(t, "Carry an umbrella.", GearRecommendation("Carry an umbrella", nil))
	assert.Equal(t, "Stay warm. Consider using: coat, gloves.", GearRecommendation("Stay warm.", []string{"coat", "gloves"}))
}

func TestLocationHistory(t *testing.T) {
	h := NewLocationHistory()

	assert.Equal(t, NoAdditionalSuggestions, h.Observe("Seattle", []string{"umbrella", "raincoat"}))
	assert.Equal(t,
		"Consider using raincoat, umbrella in Denver, based on past observations in Seattle.",
		h.Observe("Denver", nil))
	assert.Equal(t,
		"Consider using raincoat in Chicago, based on past observations in Seattle.",
		h.Observe("Chicago", []string{"umbrella"}))
}
