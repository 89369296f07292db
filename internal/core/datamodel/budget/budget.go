package budget

import "time"

type OrganizationBudgetRow struct {
	ID         int64     `gorm:"primaryKey"`
	Org        string    `gorm:"column:org;not null"`
	Allocated  float64   `gorm:"column:allocated;not null"`
	Spent      float64   `gorm:"column:spent;not null"`
	Encumbered float64   `gorm:"column:encumbered;not null"`
	Available  float64   `gorm:"column:available;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrganizationBudgetRow) TableName() string {
	return "organization_budgets"
}

type TransactionRow struct {
	ID          string    `gorm:"primaryKey;column:id"`
	Date        time.Time `gorm:"column:date;not null"`
	Division    string    `gorm:"column:division"`
	Department  string    `gorm:"column:department"`
	Org         string    `gorm:"column:org;not null"`
	Form        string    `gorm:"column:form"`
	Amount      float64   `gorm:"column:amount;not null"`
	Description string    `gorm:"column:description"`
	Approver    string    `gorm:"column:approver"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TransactionRow) TableName() string {
	return "transactions"
}
