package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/access"
	"github.com/keswickschool/budget-dashboard/internal/budget"
	"github.com/keswickschool/budget-dashboard/internal/cache"
	"github.com/keswickschool/budget-dashboard/internal/dashboard"
	"github.com/keswickschool/budget-dashboard/internal/pacing"
	"github.com/keswickschool/budget-dashboard/internal/tac"
)

func TestDashboard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dashboard Suite")
}

// Mock access resolver for testing
type mockResolver struct {
	grants map[string]access.Grant
}

func (m *mockResolver) Resolve(ctx context.Context, identity string) access.Grant {
	if grant, ok := m.grants[identity]; ok {
		return grant
	}
	return access.DeniedGrant(identity)
}

// Mock budget repository backing a real aggregator
type mockBudgetRepo struct {
	budgets     []budget.OrganizationBudget
	txs         []budget.Transaction
	budgetErr   error
	txErr       error
	budgetCalls int
	panicOnRead bool
}

func (m *mockBudgetRepo) OrganizationBudgets(ctx context.Context) ([]budget.OrganizationBudget, error) {
	m.budgetCalls++
	if m.panicOnRead {
		panic("storage driver corrupted")
	}
	return m.budgets, m.budgetErr
}

func (m *mockBudgetRepo) Transactions(ctx context.Context) ([]budget.Transaction, error) {
	return m.txs, m.txErr
}

// Mock TAC source
type mockTAC struct {
	summary *tac.Summary
	err     error
	panics  bool
}

func (m *mockTAC) ByGrade(ctx context.Context) (*tac.Summary, error) {
	if m.panics {
		panic("fee model misconfigured")
	}
	return m.summary, m.err
}

// Mock settings reader
type mockSettings struct {
	demo bool
	err  error
}

func (m *mockSettings) DemoMode(ctx context.Context) (bool, error) {
	return m.demo, m.err
}

var _ = Describe("Composer", func() {
	var (
		composer *dashboard.Composer
		resolver *mockResolver
		repo     *mockBudgetRepo
		tacSrc   *mockTAC
		settings *mockSettings
		ctx      context.Context
		now      time.Time
	)

	fiscalCfg := internal.FiscalConfig{
		MilestoneCurve:   []float64{8, 16, 25, 33, 58, 66, 75, 83, 87, 92, 96, 100},
		TolerancePercent: 12,
		RunwayCapMonths:  12,
	}
	cacheCfg := internal.CacheConfig{
		ShortTTL:  5 * time.Minute,
		MediumTTL: 10 * time.Minute,
		LongTTL:   30 * time.Minute,
	}
	dashCfg := internal.DashboardConfig{
		DemoModeDefault:    false,
		RecentTransactions: 10,
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		now = time.Date(2025, time.November, 15, 9, 0, 0, 0, time.UTC)

		resolver = &mockResolver{grants: map[string]access.Grant{
			"head@keswick.org": {
				Identity: "head@keswick.org",
				Role:     access.RoleExecutive,
			},
			"principal.us@keswick.org": {
				Identity:  "principal.us@keswick.org",
				Role:      access.RolePrincipal,
				Divisions: []string{"US"},
			},
			"science.head@keswick.org": {
				Identity:    "science.head@keswick.org",
				Role:        access.RoleDepartmentHead,
				Divisions:   []string{"US"},
				Departments: []string{"Science"},
			},
		}}
		repo = &mockBudgetRepo{
			budgets: []budget.OrganizationBudget{
				{Org: "Upper School Science", Allocated: 100000, Spent: 40000, Encumbered: 5000, Available: 55000},
				{Org: "Lower School Arts", Allocated: 50000, Spent: 10000, Encumbered: 0, Available: 40000},
			},
			txs: []budget.Transaction{
				{ID: "t1", Date: now.AddDate(0, 0, -1), Division: "US", Org: "Upper School Science", Department: "Science", Amount: 500, Description: "lab kits"},
				{ID: "t2", Date: now.AddDate(0, 0, -3), Division: "LS", Org: "Lower School Arts", Department: "Arts", Amount: 300, Description: "paint", Approver: "biz@keswick.org"},
				{ID: "t3", Date: now.AddDate(0, 0, -2), Division: "US", Org: "Upper School Athletics", Department: "Athletics", Amount: 900, Description: "team uniforms"},
			},
		}
		tacSrc = &mockTAC{summary: &tac.Summary{
			Grades: []tac.GradeRecord{{Grade: "K", Division: "KK", Enrollment: 20}},
			Totals: tac.Totals{Enrollment: 20},
		}}
		settings = &mockSettings{}

		engine := pacing.NewEngine(fiscalCfg, logger).WithClock(func() time.Time { return now })
		aggregator := budget.NewAggregator(repo, logger)
		composer = dashboard.NewComposer(resolver, aggregator, engine, tacSrc, settings,
			cache.New(), cacheCfg, dashCfg, logger).
			WithClock(func() time.Time { return now })
		ctx = context.Background()
	})

	Describe("Dashboard", func() {
		Context("with an unknown identity", func() {
			It("should deny rather than default to a privileged view", func() {
				payload, err := composer.Dashboard(ctx, "stranger@elsewhere.org")
				Expect(err).To(MatchError(internal.ErrAccessDenied))
				Expect(payload).To(BeNil())
			})
		})

		Context("with an executive grant", func() {
			It("should compose a live payload over every division", func() {
				payload, err := composer.Dashboard(ctx, "head@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.DataMode).To(Equal(dashboard.DataModeLive))
				Expect(payload.Warning).To(BeEmpty())
				Expect(payload.Role).To(Equal(access.RoleExecutive))

				divisions := make([]string, 0, len(payload.Divisions))
				for _, d := range payload.Divisions {
					divisions = append(divisions, d.Division)
				}
				Expect(divisions).To(ConsistOf("US", "LS"))
				Expect(payload.RecentTransactions).To(HaveLen(3))
				Expect(payload.Health).NotTo(BeNil())
				Expect(payload.TAC.Totals.Enrollment).To(Equal(20))
			})
		})

		Context("with a division-scoped grant", func() {
			It("should hide divisions outside the grant", func() {
				payload, err := composer.Dashboard(ctx, "principal.us@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.Divisions).To(HaveLen(1))
				Expect(payload.Divisions[0].Division).To(Equal("US"))

				for _, tx := range payload.RecentTransactions {
					Expect(tx.Division).To(Equal("US"))
				}
			})
		})

		Context("with a department-head grant", func() {
			It("should narrow the ledger to the granted departments", func() {
				payload, err := composer.Dashboard(ctx, "science.head@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.Role).To(Equal(access.RoleDepartmentHead))

				Expect(payload.RecentTransactions).To(HaveLen(1))
				Expect(payload.RecentTransactions[0].ID).To(Equal("t1"))
				Expect(payload.RecentTransactions[0].Department).To(Equal("Science"))
			})

			It("should not narrow a principal in the same division", func() {
				payload, err := composer.Dashboard(ctx, "principal.us@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.RecentTransactions).To(HaveLen(2))
			})
		})

		Context("with repeated identical requests inside the TTL", func() {
			It("should serve byte-identical sections from the cache", func() {
				first, err := composer.Dashboard(ctx, "head@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				second, err := composer.Dashboard(ctx, "head@keswick.org")
				Expect(err).NotTo(HaveOccurred())

				firstJSON, err := json.Marshal(first)
				Expect(err).NotTo(HaveOccurred())
				secondJSON, err := json.Marshal(second)
				Expect(err).NotTo(HaveOccurred())
				Expect(secondJSON).To(Equal(firstJSON))

				Expect(repo.budgetCalls).To(Equal(1))
			})
		})

		Context("when the budget source fails", func() {
			BeforeEach(func() {
				repo.budgetErr = errors.New("connection refused")
			})

			It("should substitute synthetic figures and warn", func() {
				payload, err := composer.Dashboard(ctx, "head@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.KPIs).NotTo(BeEmpty())
				Expect(payload.Warning).To(ContainSubstring("budget"))
				Expect(payload.Degraded()).To(BeTrue())
			})
		})

		Context("when the budget source panics", func() {
			BeforeEach(func() {
				repo.panicOnRead = true
			})

			It("should contain the panic to the section", func() {
				payload, err := composer.Dashboard(ctx, "head@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.Warning).To(ContainSubstring("budget"))
				Expect(payload.TAC).NotTo(BeNil())
				Expect(payload.TAC.Totals.Enrollment).To(Equal(20))
			})
		})

		Context("when the fee summary panics", func() {
			BeforeEach(func() {
				tacSrc.panics = true
			})

			It("should keep the live sections and substitute the fee summary", func() {
				payload, err := composer.Dashboard(ctx, "head@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.Warning).To(ContainSubstring("tac"))
				Expect(payload.TAC).NotTo(BeNil())
				Expect(payload.KPIs).NotTo(BeEmpty())
				Expect(payload.DataMode).To(Equal(dashboard.DataModeLive))
			})
		})

		Context("with demo mode enabled", func() {
			BeforeEach(func() {
				settings.demo = true
			})

			It("should serve demo data without a warning", func() {
				payload, err := composer.Dashboard(ctx, "head@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.DataMode).To(Equal(dashboard.DataModeDemo))
				Expect(payload.Warning).To(BeEmpty())
				Expect(payload.KPIs).NotTo(BeEmpty())
			})

			It("should still deny unknown identities", func() {
				_, err := composer.Dashboard(ctx, "stranger@elsewhere.org")
				Expect(err).To(MatchError(internal.ErrAccessDenied))
			})
		})

		Context("when the demo-mode flag is unreadable", func() {
			BeforeEach(func() {
				settings.err = errors.New("settings table missing")
			})

			It("should fall back to the configured default", func() {
				payload, err := composer.Dashboard(ctx, "head@keswick.org")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload.DataMode).To(Equal(dashboard.DataModeLive))
			})
		})
	})
})
