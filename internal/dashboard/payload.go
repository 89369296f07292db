package dashboard

import (
	"time"

	"github.com/keswickschool/budget-dashboard/internal/access"
	"github.com/keswickschool/budget-dashboard/internal/budget"
	"github.com/keswickschool/budget-dashboard/internal/pacing"
	"github.com/keswickschool/budget-dashboard/internal/tac"
)

// DataMode labels where the numbers in a payload came from.
const (
	DataModeLive      = "live"
	DataModeDemo      = "demo"
	DataModeSynthetic = "synthetic"
)

// Payload is the composed, role-shaped dashboard response. It is a plain
// serializable structure: no cycles, and non-finite numbers are coerced
// before it leaves the composer. Warning is informational; its presence
// does not make the response a failure.
type Payload struct {
	GeneratedAt        time.Time                `json:"generated_at"`
	Identity           string                   `json:"identity"`
	Role               access.Role              `json:"role"`
	DataMode           string                   `json:"data_mode"`
	KPIs               []budget.KPI             `json:"kpis"`
	Divisions          []budget.DivisionSummary `json:"divisions"`
	Health             *pacing.Health           `json:"health,omitempty"`
	TAC                *tac.Summary             `json:"tac,omitempty"`
	RecentTransactions []budget.Transaction     `json:"recent_transactions"`
	Trends             []budget.TrendPoint      `json:"trends"`
	Warning            string                   `json:"warning,omitempty"`
}

// Degraded reports whether any section was substituted.
func (p *Payload) Degraded() bool {
	return p.Warning != ""
}
