package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/access"
)

// ResilienceWrapper is the outermost guard around the composer. Whatever
// goes wrong inside, the caller gets a well-formed payload: panics and
// non-denial errors both collapse into the synthetic fallback with a
// warning. Denial is the one outcome that must stay an error, because a
// fabricated payload for an unauthorized caller would be a leak.
type ResilienceWrapper struct {
	inner  Service
	logger *slog.Logger
	now    func() time.Time
}

func NewResilienceWrapper(inner Service, logger *slog.Logger) *ResilienceWrapper {
	return &ResilienceWrapper{
		inner:  inner,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock is used by tests to pin fallback timestamps.
func (w *ResilienceWrapper) WithClock(now func() time.Time) *ResilienceWrapper {
	w.now = now
	return w
}

func (w *ResilienceWrapper) Dashboard(ctx context.Context, identity string) (payload *Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("dashboard composition panicked, serving synthetic payload",
				"identity", identity, "panic", r)
			payload = w.fallback(identity)
			err = nil
		}
	}()

	payload, err = w.inner.Dashboard(ctx, identity)
	if err != nil {
		if errors.Is(err, internal.ErrAccessDenied) {
			return nil, err
		}
		w.logger.Error("dashboard composition failed, serving synthetic payload",
			"identity", identity, "error", err)
		return w.fallback(identity), nil
	}
	if payload == nil {
		return w.fallback(identity), nil
	}

	sanitizePayload(payload)
	return payload, nil
}

func (w *ResilienceWrapper) fallback(identity string) *Payload {
	return syntheticPayload(identity, access.RoleDepartmentHead, w.now(),
		"dashboard temporarily unavailable, showing synthetic figures")
}

// sanitizePayload coerces any non-finite number to zero so the payload
// always serializes. The compute layers already guard their own math; this
// is the final pass over everything that reaches the wire.
func sanitizePayload(p *Payload) {
	for i := range p.KPIs {
		p.KPIs[i].Value = finite(p.KPIs[i].Value)
	}
	for i := range p.Divisions {
		d := &p.Divisions[i]
		d.Allocated = finite(d.Allocated)
		d.Spent = finite(d.Spent)
		d.Encumbered = finite(d.Encumbered)
		d.Available = finite(d.Available)
		d.Utilization = finite(d.Utilization)
	}
	if p.Health != nil {
		p.Health.UtilizationRate = finite(p.Health.UtilizationRate)
		p.Health.ExpectedRate = finite(p.Health.ExpectedRate)
		p.Health.MonthlyBurnRate = finite(p.Health.MonthlyBurnRate)
	}
	if p.TAC != nil {
		for i := range p.TAC.Grades {
			g := &p.TAC.Grades[i]
			g.FeeRate = finite(g.FeeRate)
			g.Budgeted = finite(g.Budgeted)
			g.Spent.Curricular = finite(g.Spent.Curricular)
			g.Spent.FieldTrip = finite(g.Spent.FieldTrip)
			g.Spent.Tech = finite(g.Spent.Tech)
			g.SpentTotal = finite(g.SpentTotal)
			g.Variance = finite(g.Variance)
			g.VariancePercent = finite(g.VariancePercent)
			g.StepUpExpectedQuarterly = finite(g.StepUpExpectedQuarterly)
		}
		p.TAC.Totals.Budgeted = finite(p.TAC.Totals.Budgeted)
		p.TAC.Totals.Spent = finite(p.TAC.Totals.Spent)
		p.TAC.Totals.Variance = finite(p.TAC.Totals.Variance)
	}
	for i := range p.RecentTransactions {
		p.RecentTransactions[i].Amount = finite(p.RecentTransactions[i].Amount)
	}
	for i := range p.Trends {
		p.Trends[i].Spent = finite(p.Trends[i].Spent)
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
