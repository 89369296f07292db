package dashboard_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/access"
	"github.com/keswickschool/budget-dashboard/internal/budget"
	"github.com/keswickschool/budget-dashboard/internal/dashboard"
)

// Mock inner service for the wrapper
type mockService struct {
	payload *dashboard.Payload
	err     error
	panics  bool
}

func (m *mockService) Dashboard(ctx context.Context, identity string) (*dashboard.Payload, error) {
	if m.panics {
		panic("composer blew up")
	}
	return m.payload, m.err
}

var _ = Describe("ResilienceWrapper", func() {
	var (
		wrapper *dashboard.ResilienceWrapper
		inner   *mockService
		ctx     context.Context
		now     time.Time
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		now = time.Date(2025, time.November, 15, 9, 0, 0, 0, time.UTC)
		inner = &mockService{}
		wrapper = dashboard.NewResilienceWrapper(inner, logger).
			WithClock(func() time.Time { return now })
		ctx = context.Background()
	})

	Context("when the composer panics", func() {
		BeforeEach(func() {
			inner.panics = true
		})

		It("should serve the synthetic fallback instead of failing", func() {
			payload, err := wrapper.Dashboard(ctx, "head@keswick.org")
			Expect(err).NotTo(HaveOccurred())
			Expect(payload).NotTo(BeNil())
			Expect(payload.DataMode).To(Equal(dashboard.DataModeSynthetic))
			Expect(payload.Warning).NotTo(BeEmpty())
			Expect(payload.Identity).To(Equal("head@keswick.org"))
			Expect(payload.KPIs).NotTo(BeEmpty())
		})
	})

	Context("when the composer denies access", func() {
		BeforeEach(func() {
			inner.err = internal.ErrAccessDenied
		})

		It("should pass the denial through untouched", func() {
			payload, err := wrapper.Dashboard(ctx, "stranger@elsewhere.org")
			Expect(err).To(MatchError(internal.ErrAccessDenied))
			Expect(payload).To(BeNil())
		})
	})

	Context("when the composer returns an unexpected error", func() {
		BeforeEach(func() {
			inner.err = errors.New("datamodel drift")
		})

		It("should downgrade the error to a synthetic payload", func() {
			payload, err := wrapper.Dashboard(ctx, "head@keswick.org")
			Expect(err).NotTo(HaveOccurred())
			Expect(payload.DataMode).To(Equal(dashboard.DataModeSynthetic))
			Expect(payload.Warning).NotTo(BeEmpty())
		})
	})

	Context("when the composed payload carries non-finite numbers", func() {
		BeforeEach(func() {
			inner.payload = &dashboard.Payload{
				GeneratedAt: now,
				Identity:    "head@keswick.org",
				Role:        access.RoleExecutive,
				DataMode:    dashboard.DataModeLive,
				KPIs: []budget.KPI{
					{ID: "utilization", Value: math.NaN()},
					{ID: "total_budget", Value: math.Inf(1)},
				},
				Divisions: []budget.DivisionSummary{
					{Division: "US", Utilization: math.Inf(-1), Allocated: 1000},
				},
			}
		})

		It("should coerce them to zero so the payload serializes", func() {
			payload, err := wrapper.Dashboard(ctx, "head@keswick.org")
			Expect(err).NotTo(HaveOccurred())
			Expect(payload.KPIs[0].Value).To(BeZero())
			Expect(payload.KPIs[1].Value).To(BeZero())
			Expect(payload.Divisions[0].Utilization).To(BeZero())
			Expect(payload.Divisions[0].Allocated).To(Equal(1000.0))
		})
	})

	Context("when the composer succeeds", func() {
		BeforeEach(func() {
			inner.payload = &dashboard.Payload{
				GeneratedAt: now,
				Identity:    "head@keswick.org",
				Role:        access.RoleExecutive,
				DataMode:    dashboard.DataModeLive,
				KPIs:        []budget.KPI{{ID: "total_budget", Value: 1000}},
			}
		})

		It("should return the payload unchanged", func() {
			payload, err := wrapper.Dashboard(ctx, "head@keswick.org")
			Expect(err).NotTo(HaveOccurred())
			Expect(payload.DataMode).To(Equal(dashboard.DataModeLive))
			Expect(payload.KPIs[0].Value).To(Equal(1000.0))
		})
	})
})
