package budget

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"
)

// availableTolerance is the allowed drift between the stored available
// figure and allocated - spent - encumbered before the row is corrected.
const availableTolerance = 0.01

// urgentApprovalThreshold flags the pending-approvals KPI when the backlog
// grows past it.
const urgentApprovalThreshold = 10

// Repository is the opaque tabular store behind the aggregator.
type Repository interface {
	OrganizationBudgets(ctx context.Context) ([]OrganizationBudget, error)
	Transactions(ctx context.Context) ([]Transaction, error)
}

// Aggregator produces per-organization and per-division rollups plus the
// dashboard KPI set. Read failures never surface as errors: the aggregator
// returns empty slices and the caller decides whether to substitute
// synthetic data.
type Aggregator struct {
	repo   Repository
	logger *slog.Logger
}

func NewAggregator(repo Repository, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		repo:   repo,
		logger: logger,
	}
}

// RollupByOrg loads budget rows, derives each row's division and enforces
// the available = allocated - spent - encumbered invariant. The source does
// not enforce it, so drifted rows are corrected here with a logged warning.
func (a *Aggregator) RollupByOrg(ctx context.Context) []OrganizationBudget {
	rows, err := a.repo.OrganizationBudgets(ctx)
	if err != nil {
		a.logger.Warn("organization budgets unavailable, returning empty rollup", "error", err)
		return []OrganizationBudget{}
	}

	orgs := make([]OrganizationBudget, 0, len(rows))
	for _, row := range rows {
		row.Allocated = sanitize(row.Allocated)
		row.Spent = sanitize(row.Spent)
		row.Encumbered = sanitize(row.Encumbered)
		row.Available = sanitize(row.Available)
		row.Division = DeriveDivision(row.Org)

		expected := row.Allocated - row.Spent - row.Encumbered
		if math.Abs(row.Available-expected) > availableTolerance {
			a.logger.Warn("available does not reconcile, recomputing",
				"org", row.Org,
				"stored", row.Available,
				"expected", expected)
			row.Available = expected
		}
		orgs = append(orgs, row)
	}
	return orgs
}

// RollupByDivision groups organization rows by derived division and sums
// their figures. Utilization is a whole-number percentage; zero-allocation
// divisions report zero utilization rather than dividing by zero.
func (a *Aggregator) RollupByDivision(orgs []OrganizationBudget) []DivisionSummary {
	byDivision := make(map[string]*DivisionSummary)
	order := make([]string, 0)

	for _, org := range orgs {
		division := org.Division
		if division == "" {
			division = DeriveDivision(org.Org)
		}
		summary, ok := byDivision[division]
		if !ok {
			summary = &DivisionSummary{Division: division}
			byDivision[division] = summary
			order = append(order, division)
		}
		summary.Allocated += org.Allocated
		summary.Spent += org.Spent
		summary.Encumbered += org.Encumbered
		summary.Available += org.Available
	}

	sort.Strings(order)
	summaries := make([]DivisionSummary, 0, len(order))
	for _, division := range order {
		summary := byDivision[division]
		if summary.Allocated > 0 {
			summary.Utilization = math.Round(summary.Spent / summary.Allocated * 100)
		} else {
			summary.Utilization = 0
		}
		if summary.Utilization > 75 {
			summary.Trend = TrendUp
		} else {
			summary.Trend = TrendStable
		}
		summary.Allocated = roundCurrency(summary.Allocated)
		summary.Spent = roundCurrency(summary.Spent)
		summary.Encumbered = roundCurrency(summary.Encumbered)
		summary.Available = roundCurrency(summary.Available)
		summaries = append(summaries, *summary)
	}
	return summaries
}

// KPIs derives the headline numbers from the per-organization rollup.
func (a *Aggregator) KPIs(orgs []OrganizationBudget, pendingApprovals int) []KPI {
	var allocated, spent, encumbered, available float64
	for _, org := range orgs {
		allocated += org.Allocated
		spent += org.Spent
		encumbered += org.Encumbered
		available += org.Available
	}

	utilization := 0.0
	if allocated > 0 {
		utilization = math.Round(spent / allocated * 100)
	}

	return []KPI{
		{ID: "total_budget", Label: "Total Budget", Value: roundCurrency(allocated), Unit: "currency"},
		{ID: "total_spent", Label: "Total Spent", Value: roundCurrency(spent), Unit: "currency"},
		{ID: "encumbered", Label: "Encumbered", Value: roundCurrency(encumbered), Unit: "currency"},
		{ID: "available", Label: "Available", Value: roundCurrency(available), Unit: "currency"},
		{ID: "utilization", Label: "Utilization", Value: utilization, Unit: "percent"},
		{
			ID:     "pending_approvals",
			Label:  "Pending Approvals",
			Value:  float64(pendingApprovals),
			Unit:   "count",
			Urgent: pendingApprovals > urgentApprovalThreshold,
		},
	}
}

// PendingApprovals counts transactions still lacking an approver.
func (a *Aggregator) PendingApprovals(txs []Transaction) int {
	count := 0
	for _, tx := range txs {
		if tx.Approver == "" {
			count++
		}
	}
	return count
}

// LoadTransactions reads the ledger; a read failure yields an empty list.
func (a *Aggregator) LoadTransactions(ctx context.Context) []Transaction {
	txs, err := a.repo.Transactions(ctx)
	if err != nil {
		a.logger.Warn("transactions unavailable, returning empty list", "error", err)
		return []Transaction{}
	}
	return txs
}

// RecentTransactions returns the newest transactions first, capped at limit.
func (a *Aggregator) RecentTransactions(txs []Transaction, limit int) []Transaction {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// MonthlyTrend buckets transaction amounts by calendar month.
func (a *Aggregator) MonthlyTrend(txs []Transaction) []TrendPoint {
	totals := make(map[string]float64)
	keys := make([]string, 0)
	for _, tx := range txs {
		key := tx.Date.Format("2006-01")
		if _, ok := totals[key]; !ok {
			keys = append(keys, key)
		}
		totals[key] += sanitize(tx.Amount)
	}
	sort.Strings(keys)

	points := make([]TrendPoint, 0, len(keys))
	for _, key := range keys {
		month, err := time.Parse("2006-01", key)
		if err != nil {
			continue
		}
		points = append(points, TrendPoint{
			Month: month.Format("Jan 2006"),
			Spent: roundCurrency(totals[key]),
		})
	}
	return points
}

// FilterByDivisions keeps only the summaries a grant may see. An empty
// filter means unrestricted (executive scope).
func FilterByDivisions(summaries []DivisionSummary, divisions []string) []DivisionSummary {
	if len(divisions) == 0 {
		return summaries
	}
	allowed := make(map[string]bool, len(divisions))
	for _, d := range divisions {
		allowed[d] = true
	}
	filtered := make([]DivisionSummary, 0, len(summaries))
	for _, summary := range summaries {
		if allowed[summary.Division] {
			filtered = append(filtered, summary)
		}
	}
	return filtered
}

// FilterTransactionsByDivisions keeps ledger entries within the granted
// divisions, matching the stored division or the one derived from the org.
func FilterTransactionsByDivisions(txs []Transaction, divisions []string) []Transaction {
	if len(divisions) == 0 {
		return txs
	}
	allowed := make(map[string]bool, len(divisions))
	for _, d := range divisions {
		allowed[d] = true
	}
	filtered := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		division := tx.Division
		if division == "" {
			division = DeriveDivision(tx.Org)
		}
		if allowed[division] {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// FilterTransactionsByDepartments narrows ledger entries to the granted
// departments. An empty filter means no department restriction applies.
func FilterTransactionsByDepartments(txs []Transaction, departments []string) []Transaction {
	if len(departments) == 0 {
		return txs
	}
	allowed := make(map[string]bool, len(departments))
	for _, d := range departments {
		allowed[d] = true
	}
	filtered := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if allowed[tx.Department] {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
