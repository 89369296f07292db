// Package pacing classifies aggregate spend against an expected
// fiscal-month milestone curve. The fiscal year starts July 1; curve
// index 0 is July and index 11 is June.
package pacing

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

type Pace string

const (
	PaceOnTrack Pace = "on_track"
	PaceOver    Pace = "over_pace"
	PaceUnder   Pace = "under_pace"
)

// Health is the derived financial-health view for an aggregate.
type Health struct {
	Status          Status  `json:"status"`
	Pace            Pace    `json:"pace"`
	UtilizationRate float64 `json:"utilization_rate"`
	ExpectedRate    float64 `json:"expected_rate"`
	MonthlyBurnRate float64 `json:"monthly_burn_rate"`
	RunwayMonths    int     `json:"runway_months"`
	MonthsElapsed   int     `json:"months_elapsed"`
}
