package dashboard

import (
	"time"

	"github.com/keswickschool/budget-dashboard/internal/access"
	"github.com/keswickschool/budget-dashboard/internal/budget"
	"github.com/keswickschool/budget-dashboard/internal/pacing"
	"github.com/keswickschool/budget-dashboard/internal/tac"
)

// Synthetic sections stand in for any real section whose computation
// failed, so a dashboard request always produces something a viewer can
// read. The figures are recognizably round demo numbers.

func syntheticKPIs() []budget.KPI {
	return []budget.KPI{
		{ID: "total_budget", Label: "Total Budget", Value: 2400000, Unit: "currency"},
		{ID: "total_spent", Label: "Total Spent", Value: 1380000, Unit: "currency"},
		{ID: "encumbered", Label: "Encumbered", Value: 120000, Unit: "currency"},
		{ID: "available", Label: "Available", Value: 900000, Unit: "currency"},
		{ID: "utilization", Label: "Utilization", Value: 58, Unit: "percent"},
		{ID: "pending_approvals", Label: "Pending Approvals", Value: 4, Unit: "count"},
	}
}

func syntheticDivisions() []budget.DivisionSummary {
	return []budget.DivisionSummary{
		{Division: "AD", Allocated: 300000, Spent: 150000, Encumbered: 20000, Available: 130000, Utilization: 50, Trend: budget.TrendStable},
		{Division: "KK", Allocated: 300000, Spent: 180000, Encumbered: 10000, Available: 110000, Utilization: 60, Trend: budget.TrendStable},
		{Division: "LS", Allocated: 800000, Spent: 450000, Encumbered: 40000, Available: 310000, Utilization: 56, Trend: budget.TrendStable},
		{Division: "US", Allocated: 1000000, Spent: 600000, Encumbered: 50000, Available: 350000, Utilization: 60, Trend: budget.TrendStable},
	}
}

func syntheticHealth() *pacing.Health {
	return &pacing.Health{
		Status:          pacing.StatusHealthy,
		Pace:            pacing.PaceOnTrack,
		UtilizationRate: 58,
		ExpectedRate:    58,
		MonthlyBurnRate: 276000,
		RunwayMonths:    3,
		MonthsElapsed:   5,
	}
}

func syntheticTAC() *tac.Summary {
	grades := []tac.GradeRecord{
		{Grade: "K", Division: "KK", Enrollment: 20, FeeRate: 850, Budgeted: 17000, Spent: tac.SpendBreakdown{Curricular: 6000, FieldTrip: 2000, Tech: 4000}, SpentTotal: 12000, Variance: 5000, VariancePercent: 29.4, StepUpExpectedQuarterly: 1600, Status: tac.StatusUnderUtilized},
		{Grade: "1", Division: "LS", Enrollment: 22, FeeRate: 900, Budgeted: 19800, Spent: tac.SpendBreakdown{Curricular: 9000, FieldTrip: 3000, Tech: 5000}, SpentTotal: 17000, Variance: 2800, VariancePercent: 14.1, StepUpExpectedQuarterly: 1870, Status: tac.StatusOnTrack},
		{Grade: "5", Division: "US", Enrollment: 25, FeeRate: 1000, Budgeted: 25000, Spent: tac.SpendBreakdown{Curricular: 12000, FieldTrip: 5000, Tech: 9000}, SpentTotal: 26000, Variance: -1000, VariancePercent: -4, StepUpExpectedQuarterly: 2375, Status: tac.StatusWarning},
	}

	totals := tac.Totals{Enrollment: 67, Budgeted: 61800, Spent: 55000, Variance: 6800}
	return &tac.Summary{
		Grades: grades,
		Totals: totals,
		StepUp: tac.StepUpReconciliation{
			AnnualExpected:    26800,
			QuarterlyExpected: 6700,
			CurrentQuarter:    "Q2",
			Quarters: []tac.StepUpQuarter{
				{Quarter: "Q1", Expected: 6700, Received: 6700, Variance: 0},
				{Quarter: "Q2", Expected: 6700, Received: 6000, Variance: -700},
				{Quarter: "Q3", Expected: 6700},
				{Quarter: "Q4", Expected: 6700},
			},
		},
		Allocations: []tac.CategoryAllocation{
			{Category: "activities", Weight: 0.25, Allocated: 15450},
			{Category: "consumables", Weight: 0.20, Allocated: 12360},
			{Category: "technology", Weight: 0.55, Allocated: 33990},
		},
	}
}

func syntheticTransactions(now time.Time) []budget.Transaction {
	return []budget.Transaction{
		{ID: "demo-1", Date: now.AddDate(0, 0, -2), Division: "US", Department: "Science", Org: "Upper School Science", Form: "purchase_order", Amount: 1840, Description: "Lab consumables restock", Approver: "business.office@keswick.org"},
		{ID: "demo-2", Date: now.AddDate(0, 0, -5), Division: "LS", Department: "Grade 2", Org: "Lower School Classrooms", Form: "reimbursement", Amount: 420, Description: "Field trip bus deposit"},
		{ID: "demo-3", Date: now.AddDate(0, 0, -9), Division: "KK", Department: "Kindergarten", Org: "Keswick Kids", Form: "purchase_order", Amount: 960, Description: "Classroom reading sets", Approver: "business.office@keswick.org"},
	}
}

func syntheticTrends(now time.Time) []budget.TrendPoint {
	points := make([]budget.TrendPoint, 0, 5)
	amounts := []float64{210000, 240000, 280000, 320000, 330000}
	for i, amount := range amounts {
		month := now.AddDate(0, i-4, 0)
		points = append(points, budget.TrendPoint{
			Month: month.Format("Jan 2006"),
			Spent: amount,
		})
	}
	return points
}

// syntheticPayload is the full fallback payload used when composition
// fails wholesale or validation rejects the composed result.
func syntheticPayload(identity string, role access.Role, now time.Time, warning string) *Payload {
	return &Payload{
		GeneratedAt:        now,
		Identity:           identity,
		Role:               role,
		DataMode:           DataModeSynthetic,
		KPIs:               syntheticKPIs(),
		Divisions:          syntheticDivisions(),
		Health:             syntheticHealth(),
		TAC:                syntheticTAC(),
		RecentTransactions: syntheticTransactions(now),
		Trends:             syntheticTrends(now),
		Warning:            warning,
	}
}
