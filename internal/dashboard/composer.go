package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/access"
	"github.com/keswickschool/budget-dashboard/internal/budget"
	"github.com/keswickschool/budget-dashboard/internal/cache"
	"github.com/keswickschool/budget-dashboard/internal/pacing"
	"github.com/keswickschool/budget-dashboard/internal/tac"
)

// Service is the dashboard entry point the transport layer depends on.
// The only error a caller ever sees is internal.ErrAccessDenied;
// everything else degrades into a payload with a warning.
type Service interface {
	Dashboard(ctx context.Context, identity string) (*Payload, error)
}

// AccessResolver yields the grant for an identity. Resolution is total:
// it never fails, it only denies.
type AccessResolver interface {
	Resolve(ctx context.Context, identity string) access.Grant
}

// TACSource computes the fee summary section.
type TACSource interface {
	ByGrade(ctx context.Context) (*tac.Summary, error)
}

// SettingsReader reads the persisted demo-mode flag. It is consulted once
// per request so a toggle takes effect on the next compose, not mid-way
// through one.
type SettingsReader interface {
	DemoMode(ctx context.Context) (bool, error)
}

// budgetSection is the cached unit for the spend rollup. Divisions here
// are unscoped; the per-grant filter is applied after the cache read so
// every role shares one entry.
type budgetSection struct {
	Orgs      []budget.OrganizationBudget `json:"orgs"`
	Divisions []budget.DivisionSummary    `json:"divisions"`
	KPIs      []budget.KPI                `json:"kpis"`
}

// ledgerSection is the cached unit for transaction-derived data.
type ledgerSection struct {
	Recent []budget.Transaction `json:"recent"`
	Trends []budget.TrendPoint  `json:"trends"`
}

// Composer assembles the role-shaped dashboard payload. Each section is
// computed independently: a section that panics or comes back empty is
// replaced by its synthetic counterpart and noted in the warning, and the
// surviving sections are kept.
type Composer struct {
	resolver    AccessResolver
	aggregator  *budget.Aggregator
	health      *pacing.Engine
	tac         TACSource
	settings    SettingsReader
	cache       *cache.Cache
	cacheTTL    internal.CacheConfig
	recentLimit int
	demoDefault bool
	logger      *slog.Logger
	now         func() time.Time
}

func NewComposer(
	resolver AccessResolver,
	aggregator *budget.Aggregator,
	health *pacing.Engine,
	tacSource TACSource,
	settings SettingsReader,
	c *cache.Cache,
	cacheCfg internal.CacheConfig,
	dashCfg internal.DashboardConfig,
	logger *slog.Logger,
) *Composer {
	return &Composer{
		resolver:    resolver,
		aggregator:  aggregator,
		health:      health,
		tac:         tacSource,
		settings:    settings,
		cache:       c,
		cacheTTL:    cacheCfg,
		recentLimit: dashCfg.RecentTransactions,
		demoDefault: dashCfg.DemoModeDefault,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock is used by tests to pin GeneratedAt and fiscal-month math.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// Dashboard resolves access, picks the data mode and composes the payload.
// A denied grant is the single hard failure; any other trouble downgrades
// the affected section and the response still goes out.
func (c *Composer) Dashboard(ctx context.Context, identity string) (*Payload, error) {
	grant := c.resolver.Resolve(ctx, identity)
	if grant.Denied() {
		return nil, internal.ErrAccessDenied
	}

	now := c.now()
	if c.demoMode(ctx) {
		// Demo numbers are a deliberate presentation choice, not a
		// degradation, so no warning is attached.
		payload := syntheticPayload(grant.Identity, grant.Role, now, "")
		payload.DataMode = DataModeDemo
		return payload, nil
	}

	payload := c.composeLive(ctx, grant, now)
	return c.validated(payload, grant, now), nil
}

func (c *Composer) demoMode(ctx context.Context) bool {
	enabled, err := c.settings.DemoMode(ctx)
	if err != nil {
		c.logger.Warn("demo-mode flag unreadable, using configured default",
			"error", err, "default", c.demoDefault)
		return c.demoDefault
	}
	return enabled
}

func (c *Composer) composeLive(ctx context.Context, grant access.Grant, now time.Time) *Payload {
	payload := &Payload{
		GeneratedAt: now,
		Identity:    grant.Identity,
		Role:        grant.Role,
		DataMode:    DataModeLive,
	}
	scope := grant.ScopedDivisions()
	var degraded []string

	spend, ok := c.spendSection(ctx)
	if ok {
		payload.KPIs = spend.KPIs
		payload.Divisions = budget.FilterByDivisions(spend.Divisions, scope)
		payload.Health = c.healthSection(spend.Orgs, now)
	} else {
		payload.KPIs = syntheticKPIs()
		payload.Divisions = budget.FilterByDivisions(syntheticDivisions(), scope)
		payload.Health = syntheticHealth()
		degraded = append(degraded, "budget")
	}

	if summary, ok := c.tacSection(ctx); ok {
		payload.TAC = summary
	} else {
		payload.TAC = syntheticTAC()
		degraded = append(degraded, "tac")
	}

	deptScope := grant.ScopedDepartments()
	if ledger, ok := c.ledgerSection(ctx); ok {
		payload.RecentTransactions = scopeTransactions(ledger.Recent, scope, deptScope)
		payload.Trends = ledger.Trends
	} else {
		payload.RecentTransactions = scopeTransactions(syntheticTransactions(now), scope, deptScope)
		payload.Trends = syntheticTrends(now)
		degraded = append(degraded, "ledger")
	}

	if len(degraded) > 0 {
		sort.Strings(degraded)
		payload.Warning = "showing substitute data for: " + strings.Join(degraded, ", ")
	}
	return payload
}

// spendSection loads the budget rollup, preferring the cached copy. The
// cache entry is shared across grants; scoping happens on the way out.
func (c *Composer) spendSection(ctx context.Context) (section budgetSection, ok bool) {
	defer c.recoverSection("budget", &ok)

	const key = "dashboard:budget"
	if c.cache.Get(key, &section) {
		return section, len(section.KPIs) > 0
	}

	orgs := c.aggregator.RollupByOrg(ctx)
	if len(orgs) == 0 {
		return budgetSection{}, false
	}
	txs := c.aggregator.LoadTransactions(ctx)
	section = budgetSection{
		Orgs:      orgs,
		Divisions: c.aggregator.RollupByDivision(orgs),
		KPIs:      c.aggregator.KPIs(orgs, c.aggregator.PendingApprovals(txs)),
	}
	if err := c.cache.Put(key, section, c.cacheTTL.MediumTTL); err != nil {
		c.logger.Warn("budget section not cacheable", "error", err)
	}
	return section, true
}

// healthSection derives pacing from the same rollup the KPIs came from, so
// the two never disagree within a response.
func (c *Composer) healthSection(orgs []budget.OrganizationBudget, now time.Time) *pacing.Health {
	var allocated, spent, encumbered float64
	for _, org := range orgs {
		allocated += org.Allocated
		spent += org.Spent
		encumbered += org.Encumbered
	}
	health := c.health.Classify(allocated, spent, encumbered, pacing.FiscalMonthIndex(now))
	return &health
}

func (c *Composer) tacSection(ctx context.Context) (summary *tac.Summary, ok bool) {
	defer c.recoverSection("tac", &ok)

	const key = "tac:summary"
	var cached tac.Summary
	if c.cache.Get(key, &cached) {
		return &cached, true
	}

	summary, err := c.tac.ByGrade(ctx)
	if err != nil || summary == nil {
		c.logger.Warn("tac summary unavailable", "error", err)
		return nil, false
	}
	if err := c.cache.Put(key, summary, c.cacheTTL.LongTTL); err != nil {
		c.logger.Warn("tac section not cacheable", "error", err)
	}
	return summary, true
}

func (c *Composer) ledgerSection(ctx context.Context) (section ledgerSection, ok bool) {
	defer c.recoverSection("ledger", &ok)

	const key = "dashboard:ledger"
	if c.cache.Get(key, &section) {
		return section, true
	}

	txs := c.aggregator.LoadTransactions(ctx)
	if len(txs) == 0 {
		return ledgerSection{}, false
	}
	section = ledgerSection{
		Recent: c.aggregator.RecentTransactions(txs, c.recentLimit),
		Trends: c.aggregator.MonthlyTrend(txs),
	}
	if err := c.cache.Put(key, section, c.cacheTTL.ShortTTL); err != nil {
		c.logger.Warn("ledger section not cacheable", "error", err)
	}
	return section, true
}

// scopeTransactions applies both grant axes to ledger entries: division
// first, then department for department heads.
func scopeTransactions(txs []budget.Transaction, divisions, departments []string) []budget.Transaction {
	return budget.FilterTransactionsByDepartments(
		budget.FilterTransactionsByDivisions(txs, divisions), departments)
}

func (c *Composer) recoverSection(name string, ok *bool) {
	if r := recover(); r != nil {
		c.logger.Error("dashboard section panicked, substituting", "section", name, "panic", r)
		*ok = false
	}
}

// validated is the last gate before a payload leaves the composer: a
// payload with no KPI section at all is beyond partial repair and is
// replaced wholesale with the synthetic one.
func (c *Composer) validated(payload *Payload, grant access.Grant, now time.Time) *Payload {
	if payload == nil || len(payload.KPIs) == 0 {
		return syntheticPayload(grant.Identity, grant.Role, now,
			"dashboard data unavailable, showing synthetic figures")
	}
	return payload
}
