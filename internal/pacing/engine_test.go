package pacing_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/pacing"
)

func TestPacing(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pacing Suite")
}

var _ = Describe("Engine", func() {
	var engine *pacing.Engine

	// milestone(month=4)=58, tolerance=12: warning above 70, critical above 82
	cfg := internal.FiscalConfig{
		MilestoneCurve:   []float64{8, 16, 25, 33, 58, 66, 75, 83, 87, 92, 96, 100},
		TolerancePercent: 12,
		RunwayCapMonths:  12,
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		engine = pacing.NewEngine(cfg, logger).WithClock(func() time.Time {
			// November: four full months into the fiscal year
			return time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)
		})
	})

	Describe("Classify", func() {
		Context("around the November milestone", func() {
			It("should stay healthy and on track inside the tolerance band", func() {
				health := engine.Classify(100000, 66000, 0, 4)
				Expect(health.UtilizationRate).To(Equal(66.0))
				Expect(health.ExpectedRate).To(Equal(58.0))
				Expect(health.Status).To(Equal(pacing.StatusHealthy))
				Expect(health.Pace).To(Equal(pacing.PaceOnTrack))
			})

			It("should warn one band past the tolerance", func() {
				health := engine.Classify(100000, 75000, 0, 4)
				Expect(health.Status).To(Equal(pacing.StatusWarning))
				Expect(health.Pace).To(Equal(pacing.PaceOver))
			})

			It("should go critical two bands past the milestone", func() {
				health := engine.Classify(100000, 85000, 0, 4)
				Expect(health.Status).To(Equal(pacing.StatusCritical))
				Expect(health.Pace).To(Equal(pacing.PaceOver))
			})

			It("should report under pace below the tolerance band", func() {
				health := engine.Classify(100000, 40000, 0, 4)
				Expect(health.Status).To(Equal(pacing.StatusHealthy))
				Expect(health.Pace).To(Equal(pacing.PaceUnder))
			})
		})

		Context("with degenerate inputs", func() {
			It("should report zero utilization for a zero budget", func() {
				health := engine.Classify(0, 5000, 0, 4)
				Expect(health.UtilizationRate).To(Equal(0.0))
			})

			It("should cap runway at the configured default when nothing was spent", func() {
				health := engine.Classify(100000, 0, 0, 4)
				Expect(health.RunwayMonths).To(Equal(12))
			})

			It("should clamp an out-of-range fiscal month", func() {
				health := engine.Classify(100000, 66000, 0, 99)
				Expect(health.ExpectedRate).To(Equal(100.0))
			})

			It("should coerce non-finite spend to zero", func() {
				nan := 0.0
				nan = nan / nan
				health := engine.Classify(100000, nan, 0, 4)
				Expect(health.UtilizationRate).To(Equal(0.0))
			})
		})

		Context("runway", func() {
			It("should floor remaining budget over the burn rate", func() {
				// 4 months elapsed, spent 40000 -> burn 10000/month,
				// remaining 100000-40000-10000 = 50000 -> 5 months
				health := engine.Classify(100000, 40000, 10000, 4)
				Expect(health.MonthsElapsed).To(Equal(4))
				Expect(health.MonthlyBurnRate).To(Equal(10000.0))
				Expect(health.RunwayMonths).To(Equal(5))
			})

			It("should not report negative runway when overspent", func() {
				health := engine.Classify(100000, 120000, 0, 4)
				Expect(health.RunwayMonths).To(Equal(0))
			})
		})
	})

	Describe("FiscalMonthIndex", func() {
		It("should map July to index 0", func() {
			Expect(pacing.FiscalMonthIndex(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))).To(Equal(0))
		})

		It("should map June to index 11", func() {
			Expect(pacing.FiscalMonthIndex(time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC))).To(Equal(11))
		})

		It("should map November to index 4", func() {
			Expect(pacing.FiscalMonthIndex(time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC))).To(Equal(4))
		})
	})

	Describe("MonthsElapsed", func() {
		It("should floor at one month right after the fiscal-year start", func() {
			Expect(pacing.MonthsElapsed(time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC))).To(Equal(1))
		})

		It("should count whole months since July 1", func() {
			Expect(pacing.MonthsElapsed(time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC))).To(Equal(4))
		})

		It("should stay exact across month boundaries after the year turn", func() {
			Expect(pacing.MonthsElapsed(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))).To(Equal(7))
			Expect(pacing.MonthsElapsed(time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC))).To(Equal(7))
			Expect(pacing.MonthsElapsed(time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC))).To(Equal(11))
		})
	})
})
