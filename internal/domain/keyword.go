package domain

import "strings"

// TIME actions.
const (
	ActionTolerate  = "Tolerate"
	ActionInvest    = "Invest"
	ActionMigrate   = "Migrate"
	ActionEliminate = "Eliminate"
)

// TimeActions lists the TIME categories in report order.
var TimeActions = []string{ActionTolerate, ActionInvest, ActionMigrate, ActionEliminate}

type keywordRule struct {
	keyword string
	action  string
}

// keywordRules is checked in order; the first keyword found wins.
var keywordRules = []keywordRule{
	{"performance", ActionMigrate},
	{"security", ActionEliminate},
	{"legacy", ActionEliminate},
	{"stable", ActionTolerate},
	{"high cost", ActionMigrate},
}

// KeywordAction returns the action of the first keyword contained in text.
func KeywordAction(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range keywordRules {
		if strings.Contains(lower, r.keyword) {
			return r.action, true
		}
	}
	return "", false
}

// IsTimeAction reports whether s is one of the TIME categories.
func IsTimeAction(s string) bool {
	for _, a := range TimeActions {
		if a == s {
			return true
		}
	}
	return false
}
