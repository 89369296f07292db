package tac

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/budget"
	"github.com/keswickschool/budget-dashboard/internal/core/common/validation"
	"github.com/keswickschool/budget-dashboard/internal/core/events"
)

// stepUpKeyword marks ledger entries that are Step-Up scholarship receipts
// rather than grade spend.
const stepUpKeyword = "step-up"

// EnrollmentRepository persists the per-grade head counts. They are the
// only TAC state that outlives a request.
type EnrollmentRepository interface {
	GetEnrollment(ctx context.Context) (map[string]int, error)
	SaveEnrollment(ctx context.Context, counts map[string]int) error
}

// TransactionSource supplies ledger entries; the budget repository
// satisfies it.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]budget.Transaction, error)
}

type Service struct {
	cfg        internal.TACConfig
	enrollment EnrollmentRepository
	ledger     TransactionSource
	bus        *events.EventBus
	matchers   []gradeMatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(cfg internal.TACConfig, enrollment EnrollmentRepository, ledger TransactionSource, bus *events.EventBus, logger *slog.Logger) (*Service, error) {
	matchers, err := compileGradeMatchers(cfg.GradeOrder)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:        cfg,
		enrollment: enrollment,
		ledger:     ledger,
		bus:        bus,
		matchers:   matchers,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// WithClock is used by tests to pin quarter derivation.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ByGrade computes the full TAC summary: per-grade allocation, categorized
// spend, variance, Step-Up reconciliation and the org-level category
// split. Missing enrollment falls back to zero defaults and an unreadable
// ledger yields zero spend; neither aborts the computation.
func (s *Service) ByGrade(ctx context.Context) (*Summary, error) {
	enrollment, err := s.enrollment.GetEnrollment(ctx)
	if err != nil {
		s.logger.Warn("enrollment unavailable, using zero defaults", "error", err)
		enrollment = map[string]int{}
	}

	txs, err := s.ledger.Transactions(ctx)
	if err != nil {
		s.logger.Warn("ledger unavailable, computing with zero spend", "error", err)
		txs = nil
	}

	spendByGrade, receipts := s.splitLedger(txs)

	summary := &Summary{
		Grades: make([]GradeRecord, 0, len(s.cfg.GradeOrder)),
	}

	var totalCollected float64
	for _, grade := range s.cfg.GradeOrder {
		record := s.gradeRecord(grade, enrollment[grade], spendByGrade[grade])
		summary.Grades = append(summary.Grades, record)

		summary.Totals.Enrollment += record.Enrollment
		summary.Totals.Budgeted += record.Budgeted
		summary.Totals.Spent += record.SpentTotal
		summary.Totals.Variance += record.Variance
		totalCollected += record.Budgeted
	}

	summary.StepUp = s.reconcileStepUp(enrollment, receipts)
	summary.Allocations = s.CategoryAllocations(totalCollected)
	return summary, nil
}

func (s *Service) gradeRecord(grade string, enrollment int, spent SpendBreakdown) GradeRecord {
	if enrollment < 0 {
		enrollment = 0
	}
	feeRate := s.cfg.FeeRates[grade]
	budgeted := float64(enrollment) * feeRate
	spentTotal := spent.Total()
	variance := budgeted - spentTotal

	variancePercent := 0.0
	if budgeted > 0 {
		variancePercent = variance / budgeted * 100
	}

	// ordered thresholds, first match wins
	status := StatusOnTrack
	switch {
	case variancePercent < -10:
		status = StatusOverBudget
	case variancePercent < 0:
		status = StatusWarning
	case variancePercent > 20:
		status = StatusUnderUtilized
	}

	return GradeRecord{
		Grade:                   grade,
		Division:                GradeDivision(grade),
		Enrollment:              enrollment,
		FeeRate:                 feeRate,
		Budgeted:                math.Round(budgeted),
		Spent:                   spent,
		SpentTotal:              math.Round(spentTotal),
		Variance:                math.Round(variance),
		VariancePercent:         math.Round(variancePercent*10) / 10,
		StepUpExpectedQuarterly: math.Round(float64(enrollment) * s.cfg.StepUpRates[grade] / 4),
		Status:                  status,
	}
}

// splitLedger separates Step-Up receipts from grade spend and buckets the
// spend per grade and category.
func (s *Service) splitLedger(txs []budget.Transaction) (map[string]SpendBreakdown, []budget.Transaction) {
	spend := make(map[string]SpendBreakdown)
	var receipts []budget.Transaction

	for _, tx := range txs {
		if s.isStepUpReceipt(tx) {
			receipts = append(receipts, tx)
			continue
		}

		grade, ok := s.MatchGrade(tx.Department + " " + tx.Description)
		if !ok {
			continue
		}

		breakdown := spend[grade]
		switch CategorizeSpend(tx.Form + " " + tx.Description) {
		case CategoryFieldTrip:
			breakdown.FieldTrip += coerce(tx.Amount)
		case CategoryTech:
			breakdown.Tech += coerce(tx.Amount)
		default:
			breakdown.Curricular += coerce(tx.Amount)
		}
		spend[grade] = breakdown
	}
	return spend, receipts
}

func (s *Service) isStepUpReceipt(tx budget.Transaction) bool {
	text := strings.ToLower(tx.Form + " " + tx.Description)
	return strings.Contains(text, stepUpKeyword) || strings.Contains(text, "step up")
}

// MatchGrade resolves a grade label from free-text department/description
// content. Matchers run in configured grade order; the first match wins.
func (s *Service) MatchGrade(text string) (string, bool) {
	for _, matcher := range s.matchers {
		if matcher.pattern.MatchString(text) {
			return matcher.grade, true
		}
	}
	return "", false
}

func (s *Service) reconcileStepUp(enrollment map[string]int, receipts []budget.Transaction) StepUpReconciliation {
	var annual float64
	for _, grade := range s.cfg.GradeOrder {
		count := enrollment[grade]
		if count < 0 {
			count = 0
		}
		annual += float64(count) * s.cfg.StepUpRates[grade]
	}
	quarterly := annual / 4

	received := make(map[string]float64)
	for _, tx := range receipts {
		received[QuarterOf(int(tx.Date.Month()))] += coerce(tx.Amount)
	}

	quarters := make([]StepUpQuarter, 0, len(quarterOrder))
	for _, quarter := range quarterOrder {
		quarters = append(quarters, StepUpQuarter{
			Quarter:  quarter,
			Expected: math.Round(quarterly),
			Received: math.Round(received[quarter]),
			Variance: math.Round(received[quarter] - quarterly),
		})
	}

	return StepUpReconciliation{
		AnnualExpected:    math.Round(annual),
		QuarterlyExpected: math.Round(quarterly),
		CurrentQuarter:    QuarterOf(int(s.now().Month())),
		Quarters:          quarters,
	}
}

// CategoryAllocations splits the collected fee pool across the configured
// category weights. The weights are validated to sum to 1.0 at config load.
func (s *Service) CategoryAllocations(totalCollected float64) []CategoryAllocation {
	categories := make([]string, 0, len(s.cfg.CategoryWeights))
	for category := range s.cfg.CategoryWeights {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	allocations := make([]CategoryAllocation, 0, len(categories))
	for _, category := range categories {
		weight := s.cfg.CategoryWeights[category]
		allocations = append(allocations, CategoryAllocation{
			Category:  category,
			Weight:    weight,
			Allocated: math.Round(totalCollected * weight),
		})
	}
	return allocations
}

// SaveEnrollment validates and persists the per-grade head counts, then
// invalidates dependent aggregates through the event bus.
func (s *Service) SaveEnrollment(ctx context.Context, counts map[string]int) error {
	validator := validation.NewValidator()
	validator.Field("enrollment", counts).Required()
	for grade, count := range counts {
		validator.Field("grade", grade).OneOf(s.cfg.GradeOrder, internal.ErrCodeUnknownGrade)
		validator.Field("enrollment["+grade+"]", count).MinInt(0, internal.ErrCodeInvalidEnrollment)
	}
	if err := validator.Validate(); err != nil {
		s.logger.Warn("enrollment validation failed", "error", err)
		return err
	}

	if err := s.enrollment.SaveEnrollment(ctx, counts); err != nil {
		s.logger.Error("enrollment save failed", "error", err)
		return internal.NewInternalError("failed to save enrollment", err)
	}

	grades := make([]string, 0, len(counts))
	for grade := range counts {
		grades = append(grades, grade)
	}
	sort.Strings(grades)

	if s.bus != nil {
		if err := s.bus.PublishSync(ctx, events.NewEnrollmentUpdatedEvent(grades)); err != nil {
			s.logger.Warn("enrollment update event failed", "error", err)
		}
	}

	s.logger.Info("enrollment saved", "grades", grades)
	return nil
}

func coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
