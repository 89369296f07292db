package budget

import (
	"math"
	"strings"
	"time"
)

// Division codes derived from free-text organization names.
const (
	DivisionUpperSchool = "US"
	DivisionLowerSchool = "LS"
	DivisionKeswickKids = "KK"
	DivisionAdmin       = "AD"
)

// OrganizationBudget is one budget line for a named organization (a club,
// department account, or program). Division is derived, not stored.
type OrganizationBudget struct {
	Org        string  `json:"org"`
	Division   string  `json:"division"`
	Allocated  float64 `json:"allocated"`
	Spent      float64 `json:"spent"`
	Encumbered float64 `json:"encumbered"`
	Available  float64 `json:"available"`
}

// Transaction is a single ledger entry. Read-only to this engine.
type Transaction struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Division    string    `json:"division"`
	Department  string    `json:"department"`
	Org         string    `json:"org"`
	Form        string    `json:"form"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Approver    string    `json:"approver,omitempty"`
}

// DivisionSummary is recomputed per request from OrganizationBudget rows
// grouped by derived division; it is never persisted.
type DivisionSummary struct {
	Division    string  `json:"division"`
	Allocated   float64 `json:"allocated"`
	Spent       float64 `json:"spent"`
	Encumbered  float64 `json:"encumbered"`
	Available   float64 `json:"available"`
	Utilization float64 `json:"utilization"`
	Trend       string  `json:"trend"`
}

const (
	TrendUp     = "up"
	TrendStable = "stable"
)

type KPI struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Urgent bool    `json:"urgent,omitempty"`
}

type TrendPoint struct {
	Month string  `json:"month"`
	Spent float64 `json:"spent"`
}

type divisionRule struct {
	keyword  string
	division string
}

// divisionRules is evaluated top to bottom, first match wins. The order is
// part of the contract: "us" also matches words like "house", so the more
// specific keywords must stay ahead of their abbreviations and "upper"
// must stay ahead of "us". Reordering entries changes bucket assignment.
var divisionRules = []divisionRule{
	{"upper", DivisionUpperSchool},
	{"us", DivisionUpperSchool},
	{"lower", DivisionLowerSchool},
	{"ls", DivisionLowerSchool},
	{"keswick kids", DivisionKeswickKids},
	{"kk", DivisionKeswickKids},
	{"admin", DivisionAdmin},
	{"ad", DivisionAdmin},
}

// DeriveDivision classifies an organization name into a division code by
// case-insensitive substring match. Unmatched names fall back to the
// uppercased 3-character prefix of the name.
func DeriveDivision(org string) string {
	lowered := strings.ToLower(org)
	for _, rule := range divisionRules {
		if strings.Contains(lowered, rule.keyword) {
			return rule.division
		}
	}
	trimmed := strings.TrimSpace(org)
	if len(trimmed) >= 3 {
		trimmed = trimmed[:3]
	}
	return strings.ToUpper(trimmed)
}

// roundCurrency rounds to the nearest whole unit.
func roundCurrency(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v)
}

// sanitize coerces malformed numeric input to zero.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
