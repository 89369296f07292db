package pacing

import (
	"log/slog"
	"math"
	"time"

	"github.com/keswickschool/budget-dashboard/internal"
)

const fiscalYearStartMonth = time.July

// Engine evaluates spend pacing against the configured milestone curve.
// Curve and tolerance are configuration inputs, not constants.
type Engine struct {
	curve     []float64
	tolerance float64
	runwayCap int
	logger    *slog.Logger
	now       func() time.Time
}

func NewEngine(cfg internal.FiscalConfig, logger *slog.Logger) *Engine {
	curve := make([]float64, len(cfg.MilestoneCurve))
	copy(curve, cfg.MilestoneCurve)
	return &Engine{
		curve:     curve,
		tolerance: cfg.TolerancePercent,
		runwayCap: cfg.RunwayCapMonths,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock is used by tests to pin the evaluation time.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// FiscalMonthIndex maps a calendar time onto the milestone curve,
// 0 = July through 11 = June.
func FiscalMonthIndex(t time.Time) int {
	return (int(t.Month()) - int(fiscalYearStartMonth) + 12) % 12
}

// MonthsElapsed is the whole calendar months since the fiscal-year start
// (July 1), floored at 1 so burn-rate division never hits zero.
func MonthsElapsed(t time.Time) int {
	startYear := t.Year()
	if t.Month() < fiscalYearStartMonth {
		startYear--
	}
	months := (t.Year()-startYear)*12 + int(t.Month()) - int(fiscalYearStartMonth)
	if months < 1 {
		return 1
	}
	return months
}

// Classify grades cumulative spend against the expected milestone for the
// given fiscal month. Status escalates one band past the tolerance
// (warning) and another full tolerance beyond that (critical). Pace is an
// independent axis around the same expected value.
func (e *Engine) Classify(totalBudget, totalSpent, totalEncumbered float64, fiscalMonth int) Health {
	totalBudget = coerce(totalBudget)
	totalSpent = coerce(totalSpent)
	totalEncumbered = coerce(totalEncumbered)

	if fiscalMonth < 0 || fiscalMonth >= len(e.curve) {
		e.logger.Warn("fiscal month out of range, clamping", "fiscal_month", fiscalMonth)
		fiscalMonth = clamp(fiscalMonth, 0, len(e.curve)-1)
	}
	expected := e.curve[fiscalMonth]

	utilization := 0.0
	if totalBudget > 0 {
		utilization = totalSpent / totalBudget * 100
	}

	status := StatusHealthy
	switch {
	case utilization > expected+2*e.tolerance:
		status = StatusCritical
	case utilization > expected+e.tolerance:
		status = StatusWarning
	}

	pace := PaceOnTrack
	switch {
	case utilization > expected+e.tolerance:
		pace = PaceOver
	case utilization < expected-e.tolerance:
		pace = PaceUnder
	}

	monthsElapsed := MonthsElapsed(e.now())
	burnRate := totalSpent / float64(monthsElapsed)

	runway := e.runwayCap
	if burnRate > 0 {
		runway = int(math.Floor((totalBudget - totalSpent - totalEncumbered) / burnRate))
		if runway < 0 {
			runway = 0
		}
	}

	return Health{
		Status:          status,
		Pace:            pace,
		UtilizationRate: round1(utilization),
		ExpectedRate:    round1(expected),
		MonthlyBurnRate: math.Round(burnRate),
		RunwayMonths:    runway,
		MonthsElapsed:   monthsElapsed,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
