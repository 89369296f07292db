package report

import (
	"context"
	"log/slog"
	"math"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/budget"
)

// LedgerSource supplies the transactions to report over; the budget
// repository satisfies it.
type LedgerSource interface {
	Transactions(ctx context.Context) ([]budget.Transaction, error)
}

// Service generates report views over the shared ledger. A requested type
// outside the known set is the only hard failure; an unreadable ledger
// yields an empty report.
type Service struct {
	ledger LedgerSource
	logger *slog.Logger
}

func NewService(ledger LedgerSource, logger *slog.Logger) *Service {
	return &Service{
		ledger: ledger,
		logger: logger,
	}
}

// ReportData builds the requested report, applying the division and
// department filters after classification.
func (s *Service) ReportData(ctx context.Context, reportType string, filters Filters) (*Report, error) {
	if !ValidType(reportType) {
		return nil, internal.ErrUnknownReportType
	}

	txs, err := s.ledger.Transactions(ctx)
	if err != nil {
		s.logger.Warn("ledger unavailable, returning empty report",
			"type", reportType, "error", err)
		txs = nil
	}

	report := &Report{
		Type:         reportType,
		Transactions: make([]budget.Transaction, 0),
		ByDivision:   make(map[string]float64),
	}

	scoped := budget.FilterTransactionsByDivisions(txs, filters.Divisions)
	for _, tx := range scoped {
		if Classify(tx) != reportType {
			continue
		}
		if filters.Department != "" && tx.Department != filters.Department {
			continue
		}

		division := tx.Division
		if division == "" {
			division = budget.DeriveDivision(tx.Org)
		}

		amount := tx.Amount
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			s.logger.Warn("non-finite amount coerced to zero", "transaction", tx.ID)
			amount = 0
			tx.Amount = 0
		}

		report.Transactions = append(report.Transactions, tx)
		report.Total += amount
		report.ByDivision[division] += amount
	}

	report.Count = len(report.Transactions)
	report.Total = math.Round(report.Total*100) / 100
	for division, total := range report.ByDivision {
		report.ByDivision[division] = math.Round(total*100) / 100
	}
	return report, nil
}
