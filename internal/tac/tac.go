// Package tac computes the per-student Technology/Activities/Curriculum
// fee model: grade-level allocation, categorized spend, variance and
// Step-Up scholarship reconciliation.
package tac

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	CategoryCurricular = "curricular"
	CategoryFieldTrip  = "field_trip"
	CategoryTech       = "tech"
)

const (
	StatusOverBudget    = "over_budget"
	StatusWarning       = "warning"
	StatusUnderUtilized = "under_utilized"
	StatusOnTrack       = "on_track"
)

type SpendBreakdown struct {
	Curricular float64 `json:"curricular"`
	FieldTrip  float64 `json:"field_trip"`
	Tech       float64 `json:"tech"`
}

func (s SpendBreakdown) Total() float64 {
	return s.Curricular + s.FieldTrip + s.Tech
}

// GradeRecord is the derived fee view for one grade level. Enrollment is
// the only persisted input; everything else is recomputed per request.
type GradeRecord struct {
	Grade                   string         `json:"grade"`
	Division                string         `json:"division"`
	Enrollment              int            `json:"enrollment"`
	FeeRate                 float64        `json:"fee_rate"`
	Budgeted                float64        `json:"budgeted"`
	Spent                   SpendBreakdown `json:"spent"`
	SpentTotal              float64        `json:"spent_total"`
	Variance                float64        `json:"variance"`
	VariancePercent         float64        `json:"variance_percent"`
	StepUpExpectedQuarterly float64        `json:"step_up_expected_quarterly"`
	Status                  string         `json:"status"`
}

type Totals struct {
	Enrollment int     `json:"enrollment"`
	Budgeted   float64 `json:"budgeted"`
	Spent      float64 `json:"spent"`
	Variance   float64 `json:"variance"`
}

type StepUpQuarter struct {
	Quarter  string  `json:"quarter"`
	Expected float64 `json:"expected"`
	Received float64 `json:"received"`
	Variance float64 `json:"variance"`
}

type StepUpReconciliation struct {
	AnnualExpected    float64         `json:"annual_expected"`
	QuarterlyExpected float64         `json:"quarterly_expected"`
	CurrentQuarter    string          `json:"current_quarter"`
	Quarters          []StepUpQuarter `json:"quarters"`
}

type CategoryAllocation struct {
	Category  string  `json:"category"`
	Weight    float64 `json:"weight"`
	Allocated float64 `json:"allocated"`
}

type Summary struct {
	Grades      []GradeRecord        `json:"grades"`
	Totals      Totals               `json:"totals"`
	StepUp      StepUpReconciliation `json:"step_up"`
	Allocations []CategoryAllocation `json:"allocations"`
}

type categoryRule struct {
	keyword  string
	category string
}

// categoryRules is evaluated in order, first match wins; unmatched spend
// defaults to curricular.
var categoryRules = []categoryRule{
	{"curriculum", CategoryCurricular},
	{"textbook", CategoryCurricular},
	{"field trip", CategoryFieldTrip},
	{"excursion", CategoryFieldTrip},
	{"tech", CategoryTech},
	{"device", CategoryTech},
	{"chromebook", CategoryTech},
}

// CategorizeSpend buckets a transaction description into a TAC spend
// category by keyword precedence.
func CategorizeSpend(text string) string {
	lowered := strings.ToLower(text)
	for _, rule := range categoryRules {
		if strings.Contains(lowered, rule.keyword) {
			return rule.category
		}
	}
	return CategoryCurricular
}

type gradeMatcher struct {
	grade   string
	pattern *regexp.Regexp
}

// compileGradeMatchers builds one whole-word pattern per grade label. The
// matchers run in the configured grade order and the first match wins,
// which is the explicit tie-break when a free-text description mentions
// more than one grade.
func compileGradeMatchers(gradeOrder []string) ([]gradeMatcher, error) {
	matchers := make([]gradeMatcher, 0, len(gradeOrder))
	for _, grade := range gradeOrder {
		expr := gradePattern(grade)
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("grade %s: %w", grade, err)
		}
		matchers = append(matchers, gradeMatcher{grade: grade, pattern: pattern})
	}
	return matchers, nil
}

func gradePattern(grade string) string {
	lowered := strings.ToLower(grade)
	if lowered == "k" {
		return `(?i)\b(?:k|kinder(?:garten)?|grade\s*k)\b`
	}
	escaped := regexp.QuoteMeta(lowered)
	return `(?i)\b(?:grade\s*` + escaped + `|` + escaped + ordinalSuffix(lowered) + `)\b`
}

func ordinalSuffix(grade string) string {
	switch grade {
	case "1":
		return `(?:st)?`
	case "2":
		return `(?:nd)?`
	case "3":
		return `(?:rd)?`
	default:
		return `(?:th)?`
	}
}

// GradeDivision maps a grade label onto the housing division: kindergarten
// sits with Keswick Kids, grades 1-4 in Lower School, 5 and up in Upper
// School.
func GradeDivision(grade string) string {
	switch grade {
	case "K":
		return "KK"
	case "1", "2", "3", "4":
		return "LS"
	default:
		return "US"
	}
}

// QuarterOf maps a calendar month onto the fiscal quarter, Jul-Sep = Q1
// through Apr-Jun = Q4.
func QuarterOf(month int) string {
	switch {
	case month >= 7 && month <= 9:
		return "Q1"
	case month >= 10 && month <= 12:
		return "Q2"
	case month >= 1 && month <= 3:
		return "Q3"
	default:
		return "Q4"
	}
}

var quarterOrder = []string{"Q1", "Q2", "Q3", "Q4"}
