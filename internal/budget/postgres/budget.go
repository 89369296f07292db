package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/keswickschool/budget-dashboard/internal/budget"
	budgetDatamodel "github.com/keswickschool/budget-dashboard/internal/core/datamodel/budget"
)

// BudgetRepository implements budget.Repository using GORM.
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) budget.Repository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) OrganizationBudgets(ctx context.Context) ([]budget.OrganizationBudget, error) {
	var rows []budgetDatamodel.OrganizationBudgetRow
	if err := r.db.WithContext(ctx).Order("org ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	orgs := make([]budget.OrganizationBudget, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, budget.OrganizationBudget{
			Org:        row.Org,
			Allocated:  row.Allocated,
			Spent:      row.Spent,
			Encumbered: row.Encumbered,
			Available:  row.Available,
		})
	}
	return orgs, nil
}

func (r *BudgetRepository) Transactions(ctx context.Context) ([]budget.Transaction, error) {
	var rows []budgetDatamodel.TransactionRow
	if err := r.db.WithContext(ctx).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	txs := make([]budget.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, budget.Transaction{
			ID:          row.ID,
			Date:        row.Date,
			Division:    row.Division,
			Department:  row.Department,
			Org:         row.Org,
			Form:        row.Form,
			Amount:      row.Amount,
			Description: row.Description,
			Approver:    row.Approver,
		})
	}
	return txs, nil
}
