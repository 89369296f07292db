// Package report filters and groups ledger transactions into the four
// business-office report views.
package report

import (
	"regexp"
	"strings"

	"github.com/keswickschool/budget-dashboard/internal/budget"
)

const (
	TypeAdmin      = "admin"
	TypeCurriculum = "curriculum"
	TypeFieldTrip  = "field_trip"
	TypeSupply     = "supply"
)

// Types lists the valid report types in presentation order.
var Types = []string{TypeAdmin, TypeCurriculum, TypeFieldTrip, TypeSupply}

// Filters narrows a report to a slice of the ledger. Zero values mean no
// restriction on that axis.
type Filters struct {
	Divisions  []string `json:"divisions,omitempty"`
	Department string   `json:"department,omitempty"`
}

// Report is the composed output: matching transactions plus rollups.
type Report struct {
	Type         string               `json:"type"`
	Transactions []budget.Transaction `json:"transactions"`
	Total        float64              `json:"total"`
	ByDivision   map[string]float64   `json:"by_division"`
	Count        int                  `json:"count"`
}

type classifierRule struct {
	pattern    *regexp.Regexp
	reportType string
}

// wordRule matches the keyword on word boundaries so short keywords do not
// fire inside longer words ("bus" must not catch "business").
func wordRule(keyword, reportType string) classifierRule {
	return classifierRule{
		pattern:    regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`),
		reportType: reportType,
	}
}

// classifierRules is evaluated in order, first match wins; descriptions
// that match nothing fall into the admin report.
var classifierRules = []classifierRule{
	wordRule("curriculum", TypeCurriculum),
	wordRule("textbook", TypeCurriculum),
	wordRule("course", TypeCurriculum),
	wordRule("field trip", TypeFieldTrip),
	wordRule("excursion", TypeFieldTrip),
	wordRule("bus", TypeFieldTrip),
	wordRule("supply", TypeSupply),
	wordRule("supplies", TypeSupply),
	wordRule("consumable", TypeSupply),
	wordRule("paper", TypeSupply),
}

// Classify buckets one transaction into a report type by keyword
// precedence over its description and form.
func Classify(tx budget.Transaction) string {
	haystack := strings.ToLower(tx.Description + " " + tx.Form)
	for _, rule := range classifierRules {
		if rule.pattern.MatchString(haystack) {
			return rule.reportType
		}
	}
	return TypeAdmin
}

// ValidType reports whether the requested report type exists.
func ValidType(reportType string) bool {
	for _, t := range Types {
		if t == reportType {
			return true
		}
	}
	return false
}
