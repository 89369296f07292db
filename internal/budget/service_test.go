package budget_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keswickschool/budget-dashboard/internal/budget"
)

func TestBudget(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Budget Suite")
}

// Mock repository for testing
type mockBudgetRepository struct {
	orgs      []budget.OrganizationBudget
	txs       []budget.Transaction
	orgsError error
	txsError  error
}

func (m *mockBudgetRepository) OrganizationBudgets(ctx context.Context) ([]budget.OrganizationBudget, error) {
	if m.orgsError != nil {
		return nil, m.orgsError
	}
	return m.orgs, nil
}

func (m *mockBudgetRepository) Transactions(ctx context.Context) ([]budget.Transaction, error) {
	if m.txsError != nil {
		return nil, m.txsError
	}
	return m.txs, nil
}

var _ = Describe("Aggregator", func() {
	var (
		aggregator *budget.Aggregator
		mockRepo   *mockBudgetRepository
		logger     *slog.Logger
		ctx        context.Context
	)

	BeforeEach(func() {
		mockRepo = &mockBudgetRepository{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		aggregator = budget.NewAggregator(mockRepo, logger)
		ctx = context.Background()
	})

	Describe("DeriveDivision", func() {
		It("should resolve Upper School org names to US", func() {
			Expect(budget.DeriveDivision("Upper School Supplies")).To(Equal("US"))
		})

		It("should resolve Lower School org names to LS", func() {
			Expect(budget.DeriveDivision("Lower School Art")).To(Equal("LS"))
		})

		It("should resolve Keswick Kids org names to KK", func() {
			Expect(budget.DeriveDivision("Keswick Kids Fund")).To(Equal("KK"))
		})

		It("should resolve Admin org names to AD", func() {
			Expect(budget.DeriveDivision("Admin Office")).To(Equal("AD"))
		})

		It("should fall back to a 3-char uppercase prefix for unmatched names", func() {
			Expect(budget.DeriveDivision("Unknown Org Name")).To(Equal("UNK"))
		})

		It("should let the first matching rule win", func() {
			// "upper" beats the "ls" substring inside the same name
			Expect(budget.DeriveDivision("Upper School Wheels")).To(Equal("US"))
		})
	})

	Describe("RollupByOrg", func() {
		It("should derive a division for every row", func() {
			mockRepo.orgs = []budget.OrganizationBudget{
				{Org: "Upper School Athletics", Allocated: 1000, Spent: 400, Encumbered: 100, Available: 500},
				{Org: "Admin Office", Allocated: 500, Spent: 100, Encumbered: 0, Available: 400},
			}

			orgs := aggregator.RollupByOrg(ctx)
			Expect(orgs).To(HaveLen(2))
			Expect(orgs[0].Division).To(Equal("US"))
			Expect(orgs[1].Division).To(Equal("AD"))
		})

		It("should recompute available when it does not reconcile", func() {
			mockRepo.orgs = []budget.OrganizationBudget{
				{Org: "Upper School Athletics", Allocated: 1000, Spent: 400, Encumbered: 100, Available: 999},
			}

			orgs := aggregator.RollupByOrg(ctx)
			Expect(orgs[0].Available).To(Equal(500.0))
		})

		It("should return an empty slice when the source errors", func() {
			mockRepo.orgsError = errors.New("sheet missing")

			orgs := aggregator.RollupByOrg(ctx)
			Expect(orgs).NotTo(BeNil())
			Expect(orgs).To(BeEmpty())
		})
	})

	Describe("RollupByDivision", func() {
		It("should sum figures per derived division", func() {
			orgs := []budget.OrganizationBudget{
				{Org: "Upper School Athletics", Division: "US", Allocated: 1000, Spent: 800, Encumbered: 50, Available: 150},
				{Org: "Upper School Arts", Division: "US", Allocated: 500, Spent: 100, Encumbered: 0, Available: 400},
				{Org: "Lower School Library", Division: "LS", Allocated: 300, Spent: 100, Encumbered: 0, Available: 200},
			}

			summaries := aggregator.RollupByDivision(orgs)
			Expect(summaries).To(HaveLen(2))

			Expect(summaries[0].Division).To(Equal("LS"))
			Expect(summaries[0].Allocated).To(Equal(300.0))

			Expect(summaries[1].Division).To(Equal("US"))
			Expect(summaries[1].Allocated).To(Equal(1500.0))
			Expect(summaries[1].Spent).To(Equal(900.0))
			Expect(summaries[1].Utilization).To(Equal(60.0))
			Expect(summaries[1].Trend).To(Equal(budget.TrendStable))
		})

		It("should report zero utilization for zero-allocation divisions", func() {
			orgs := []budget.OrganizationBudget{
				{Org: "Upper School Pending", Division: "US", Allocated: 0, Spent: 0},
			}

			summaries := aggregator.RollupByDivision(orgs)
			Expect(summaries).To(HaveLen(1))
			Expect(summaries[0].Utilization).To(Equal(0.0))
		})

		It("should flag the trend up above 75 percent utilization", func() {
			orgs := []budget.OrganizationBudget{
				{Org: "Lower School Library", Division: "LS", Allocated: 100, Spent: 80},
			}

			summaries := aggregator.RollupByDivision(orgs)
			Expect(summaries[0].Utilization).To(Equal(80.0))
			Expect(summaries[0].Trend).To(Equal(budget.TrendUp))
		})
	})

	Describe("KPIs", func() {
		It("should mark pending approvals urgent above the threshold", func() {
			kpis := aggregator.KPIs(nil, 11)

			var pending *budget.KPI
			for i := range kpis {
				if kpis[i].ID == "pending_approvals" {
					pending = &kpis[i]
				}
			}
			Expect(pending).NotTo(BeNil())
			Expect(pending.Value).To(Equal(11.0))
			Expect(pending.Urgent).To(BeTrue())
		})

		It("should not mark pending approvals urgent at the threshold", func() {
			kpis := aggregator.KPIs(nil, 10)
			for _, kpi := range kpis {
				if kpi.ID == "pending_approvals" {
					Expect(kpi.Urgent).To(BeFalse())
				}
			}
		})
	})

	Describe("PendingApprovals", func() {
		It("should count transactions lacking an approver", func() {
			txs := []budget.Transaction{
				{ID: "t1", Approver: "head@keswick.org"},
				{ID: "t2"},
				{ID: "t3"},
			}
			Expect(aggregator.PendingApprovals(txs)).To(Equal(2))
		})
	})

	Describe("RecentTransactions", func() {
		It("should return newest first, capped at the limit", func() {
			now := time.Now()
			txs := []budget.Transaction{
				{ID: "old", Date: now.Add(-48 * time.Hour)},
				{ID: "new", Date: now},
				{ID: "mid", Date: now.Add(-24 * time.Hour)},
			}

			recent := aggregator.RecentTransactions(txs, 2)
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].ID).To(Equal("new"))
			Expect(recent[1].ID).To(Equal("mid"))
		})
	})

	Describe("FilterByDivisions", func() {
		It("should drop summaries outside the granted divisions", func() {
			summaries := []budget.DivisionSummary{
				{Division: "US"}, {Division: "LS"}, {Division: "KK"}, {Division: "AD"},
			}

			filtered := budget.FilterByDivisions(summaries, []string{"US"})
			Expect(filtered).To(HaveLen(1))
			Expect(filtered[0].Division).To(Equal("US"))
		})

		It("should pass everything through for an empty filter", func() {
			summaries := []budget.DivisionSummary{{Division: "US"}, {Division: "LS"}}
			Expect(budget.FilterByDivisions(summaries, nil)).To(HaveLen(2))
		})
	})

	Describe("FilterTransactionsByDepartments", func() {
		txs := []budget.Transaction{
			{ID: "a", Department: "Science"},
			{ID: "b", Department: "Athletics"},
			{ID: "c", Department: "Science"},
		}

		It("should keep only the granted departments", func() {
			filtered := budget.FilterTransactionsByDepartments(txs, []string{"Science"})
			Expect(filtered).To(HaveLen(2))
			for _, tx := range filtered {
				Expect(tx.Department).To(Equal("Science"))
			}
		})

		It("should pass everything through for an empty filter", func() {
			Expect(budget.FilterTransactionsByDepartments(txs, nil)).To(HaveLen(3))
		})
	})
})
