package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"moneylog/internal/cache"
	"moneylog/internal/categories"
	"moneylog/internal/core"
	applog "moneylog/internal/log"
	"moneylog/internal/report"
)

const (
	DefaultCacheSize   = 64
	DefaultCacheTTL    = 5 * time.Minute
	DashboardTrendSize = 6
	MaxTrendMonths     = 36
)

// LedgerReader is the read side of ledger.Store.
type LedgerReader interface {
	Revision() uint64
	Snapshot() (core.Snapshot, error)
}

type (
	CategoryBreakdown struct {
		Category   string                `json:"category"`
		Amount     core.Money            `json:"amount"`
		Percentage decimal.Decimal       `json:"percentage"`
		Appearance categories.Appearance `json:"appearance"`
	}

	// Dashboard is everything the overview screen shows for one period.
	Dashboard struct {
		Period        report.Period          `json:"period"`
		Start         core.Date              `json:"start"`
		End           core.Date              `json:"end"`
		TotalExpenses core.Money             `json:"totalExpenses"`
		TotalIncome   core.Money             `json:"totalIncome"`
		Net           core.Money             `json:"net"`
		Formatted     FormattedTotals        `json:"formatted"`
		Categories    []CategoryBreakdown    `json:"categories"`
		Budgets       []report.BudgetStatus  `json:"budgets"`
		Comparison    *report.Comparison     `json:"comparison,omitempty"`
		Cashflow      []report.CashflowPoint `json:"cashflow"`
		Revision      uint64                 `json:"revision"`
	}

	FormattedTotals struct {
		Expenses string `json:"expenses"`
		Income   string `json:"income"`
		Net      string `json:"net"`
	}
)

type summaryKey struct {
	kind   string
	period report.Period
	day    string
	months int
}

// SummaryService computes dashboard aggregates on top of the report package
// and caches them until the ledger revision moves.
type SummaryService struct {
	ledger LedgerReader
	cache  *cache.Versioned[summaryKey, any]
	logger *applog.Logger
}

// NewSummaryService caches up to size results, each for at most ttl.
// Non-positive values fall back to the defaults.
func NewSummaryService(ledger LedgerReader, size int, ttl time.Duration, logger *applog.Logger) *SummaryService {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &SummaryService{
		ledger: ledger,
		cache:  cache.NewVersioned[summaryKey, any](size, ttl),
		logger: logger.WithComponent(applog.ComponentSummary),
	}
}

// Cache exposes the result cache for periodic cleanup.
func (s *SummaryService) Cache() cache.Cleaner { return s.cache }

// Dashboard summarizes the ledger for period as seen on day now.
func (s *SummaryService) Dashboard(period report.Period, now core.Date) (Dashboard, error) {
	if !period.IsValid() {
		return Dashboard{}, fmt.Errorf("dashboard: %w: %q", report.ErrUnknownPeriod, period)
	}

	// revision first: the snapshot read after it is never older
	rev := s.ledger.Revision()
	key := summaryKey{kind: "dashboard", period: period, day: now.String()}
	if v, ok := s.cache.Get(rev, key); ok {
		return v.(Dashboard), nil
	}

	snap, err := s.ledger.Snapshot()
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}

	d, err := buildDashboard(snap, period, now)
	if err != nil {
		s.logger.Error("Dashboard failed", applog.FieldPeriod, string(period), applog.FieldError, err)
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	d.Revision = rev
	s.cache.Set(rev, key, d)
	s.logger.Debug("Dashboard computed",
		applog.FieldPeriod, string(period),
		applog.FieldRevision, rev,
		applog.FieldExpenses, len(snap.Expenses))
	return d, nil
}

// Cashflow returns the monthly expenses, income and savings series ending
// at now's month. months is clamped to [1, MaxTrendMonths].
func (s *SummaryService) Cashflow(months int, now core.Date) ([]report.CashflowPoint, error) {
	months = max(1, min(months, MaxTrendMonths))

	rev := s.ledger.Revision()
	key := summaryKey{kind: "cashflow", day: now.String(), months: months}
	if v, ok := s.cache.Get(rev, key); ok {
		return v.([]report.CashflowPoint), nil
	}

	snap, err := s.ledger.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("cashflow: %w", err)
	}
	points, err := report.Cashflow(snap.Expenses, snap.Income, months, now)
	if err != nil {
		s.logger.Error("Cashflow trends misaligned", applog.FieldRevision, rev, applog.FieldError, err)
		return nil, err
	}
	s.cache.Set(rev, key, points)
	return points, nil
}

func buildDashboard(snap core.Snapshot, period report.Period, now core.Date) (Dashboard, error) {
	cashflow, err := report.Cashflow(snap.Expenses, snap.Income, DashboardTrendSize, now)
	if err != nil {
		return Dashboard{}, err
	}

	r := report.DateRangeForPeriod(period, now)
	expenses := report.FilterByDateRange(snap.Expenses, r)
	income := report.FilterByDateRange(snap.Income, r)

	totalExp := report.Sum(expenses)
	totalInc := report.Sum(income)
	net := totalInc.Sub(totalExp)
	symbol := snap.Settings.CurrencySymbol

	d := Dashboard{
		Period:        period,
		Start:         r.Start,
		End:           r.End,
		TotalExpenses: totalExp,
		TotalIncome:   totalInc,
		Net:           net,
		Formatted: FormattedTotals{
			Expenses: core.FormatCurrency(totalExp, symbol),
			Income:   core.FormatCurrency(totalInc, symbol),
			Net:      core.FormatCurrency(net, symbol),
		},
		Categories: breakdown(expenses, totalExp, snap.CustomCategories),
		// budgets are monthly limits, so progress always uses the current month
		Budgets:  report.BudgetProgress(report.MonthlyExpenses(snap.Expenses, now), snap.Budgets),
		Cashflow: cashflow,
	}

	if !r.IsAllTime() {
		cmp := report.Compare(snap.Expenses, r, report.PreviousRange(r))
		d.Comparison = &cmp
	}
	return d, nil
}

func breakdown(expenses []core.ExpenseRecord, total core.Money, custom []core.Category) []CategoryBreakdown {
	top := report.TopCategories(report.TotalByCategory(expenses), 0)
	out := make([]CategoryBreakdown, 0, len(top))
	for _, ct := range top {
		out = append(out, CategoryBreakdown{
			Category:   ct.Category,
			Amount:     ct.Amount,
			Percentage: ct.Amount.PercentOf(total),
			Appearance: categories.AppearanceOf(ct.Category, custom),
		})
	}
	return out
}
