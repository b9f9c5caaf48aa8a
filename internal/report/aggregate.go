// Package report derives every displayed statistic from ledger records.
// Functions are pure: they never mutate their inputs and tolerate empty
// collections, returning zero values rather than errors.
package report

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"moneylog/internal/core"
)

var ErrTrendMisaligned = errors.New("trend series are misaligned")

type (
	// BudgetStatus is the progress of one budgeted category.
	BudgetStatus struct {
		Category   string          `json:"category"`
		Budget     core.Money      `json:"budget"`
		Spent      core.Money      `json:"spent"`
		Remaining  core.Money      `json:"remaining"`
		Percentage decimal.Decimal `json:"percentage"`
	}

	CategoryTotal struct {
		Category string     `json:"category"`
		Amount   core.Money `json:"amount"`
	}

	// TrendPoint is one calendar month of a time series.
	TrendPoint struct {
		Month      string     `json:"month"` // YYYY-MM
		Label      string     `json:"label"`
		ShortMonth string     `json:"shortMonth"`
		Total      core.Money `json:"total"`
	}

	CashflowPoint struct {
		Month      string     `json:"month"`
		ShortMonth string     `json:"shortMonth"`
		Expenses   core.Money `json:"expenses"`
		Income     core.Money `json:"income"`
		Savings    core.Money `json:"savings"`
	}

	Comparison struct {
		Current       core.Money      `json:"current"`
		Previous      core.Money      `json:"previous"`
		Change        core.Money      `json:"change"`
		ChangePercent decimal.Decimal `json:"changePercent"`
	}
)

// OverBudget reports whether spending exceeded a positive budget.
func (b BudgetStatus) OverBudget() bool {
	return b.Budget.IsPositive() && b.Remaining.IsNegative()
}

// Sum adds every record's amount. An empty list sums to zero.
func Sum[E core.Entry](records []E) core.Money {
	total := core.Zero
	for _, r := range records {
		total = total.Add(r.EntryAmount())
	}
	return total
}

// TotalByCategory groups expenses by category. Categories without expenses are absent.
func TotalByCategory(expenses []core.ExpenseRecord) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, e := range expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals
}

// TopCategories orders totals by amount descending, ties by id. n <= 0 keeps all.
func TopCategories(totals map[string]core.Money, n int) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for id, amount := range totals {
		out = append(out, CategoryTotal{Category: id, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// BudgetProgress yields one entry per budget key, ordered by category id.
// Spending in categories without a budget is ignored.
func BudgetProgress(expenses []core.ExpenseRecord, budgets core.BudgetMap) []BudgetStatus {
	spent := TotalByCategory(expenses)
	out := make([]BudgetStatus, 0, len(budgets))
	for category, budget := range budgets {
		s := spent[category]
		out = append(out, BudgetStatus{
			Category:   category,
			Budget:     budget,
			Spent:      s,
			Remaining:  budget.Sub(s),
			Percentage: s.PercentOf(budget),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// FilterByDateRange keeps records dated inside r, endpoints included.
func FilterByDateRange[E core.Entry](records []E, r DateRange) []E {
	out := make([]E, 0)
	for _, rec := range records {
		if r.Contains(rec.EntryDate()) {
			out = append(out, rec)
		}
	}
	return out
}

// MonthlyRecords keeps records in the calendar month containing ref.
func MonthlyRecords[E core.Entry](records []E, ref core.Date) []E {
	return FilterByDateRange(records, DateRange{Start: ref.StartOfMonth(), End: ref.EndOfMonth()})
}

// MonthlyExpenses keeps expenses in the calendar month containing ref.
func MonthlyExpenses(expenses []core.ExpenseRecord, ref core.Date) []core.ExpenseRecord {
	return MonthlyRecords(expenses, ref)
}

func monthKey(d core.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year(), d.Month())
}

// MonthlyTrend returns exactly monthCount points, oldest first, for the months
// ending with the one containing now. Months without records total zero.
func MonthlyTrend[E core.Entry](records []E, monthCount int, now core.Date) []TrendPoint {
	if monthCount <= 0 {
		return []TrendPoint{}
	}
	first := now.StartOfMonth().AddMonths(-(monthCount - 1))
	window := DateRange{Start: first, End: now.EndOfMonth()}

	totals := make(map[string]core.Money)
	for _, rec := range records {
		d := rec.EntryDate()
		if !window.Contains(d) {
			continue
		}
		k := monthKey(d)
		totals[k] = totals[k].Add(rec.EntryAmount())
	}

	out := make([]TrendPoint, monthCount)
	for i := range out {
		m := first.AddMonths(i)
		k := monthKey(m)
		out[i] = TrendPoint{
			Month:      k,
			Label:      m.Format("Jan 2006"),
			ShortMonth: m.Format("Jan"),
			Total:      totals[k],
		}
	}
	return out
}

// MergeTrends zips an expense and an income trend into cashflow points.
// Both series must cover the same months in the same order.
func MergeTrends(expenses, income []TrendPoint) ([]CashflowPoint, error) {
	if len(expenses) != len(income) {
		return nil, fmt.Errorf("%w: %d expense months vs %d income months", ErrTrendMisaligned, len(expenses), len(income))
	}
	out := make([]CashflowPoint, len(expenses))
	for i := range expenses {
		if expenses[i].Month != income[i].Month {
			return nil, fmt.Errorf("%w: index %d has %s vs %s", ErrTrendMisaligned, i, expenses[i].Month, income[i].Month)
		}
		out[i] = CashflowPoint{
			Month:      expenses[i].Month,
			ShortMonth: expenses[i].ShortMonth,
			Expenses:   expenses[i].Total,
			Income:     income[i].Total,
			Savings:    income[i].Total.Sub(expenses[i].Total),
		}
	}
	return out, nil
}

// Cashflow builds the expense and income trends over the same months and
// merges them. A misaligned merge is returned as ErrTrendMisaligned.
func Cashflow(expenses []core.ExpenseRecord, income []core.IncomeRecord, monthCount int, now core.Date) ([]CashflowPoint, error) {
	points, err := MergeTrends(MonthlyTrend(expenses, monthCount, now), MonthlyTrend(income, monthCount, now))
	if err != nil {
		return nil, fmt.Errorf("cashflow: %w", err)
	}
	return points, nil
}

// Compare totals records in two windows. ChangePercent is relative to the
// previous total and is zero when there was nothing before.
func Compare[E core.Entry](records []E, current, previous DateRange) Comparison {
	cur := Sum(FilterByDateRange(records, current))
	prev := Sum(FilterByDateRange(records, previous))
	change := cur.Sub(prev)
	pct := decimal.Zero
	if prev.IsPositive() {
		pct = change.Decimal().Div(prev.Decimal()).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return Comparison{
		Current:       cur,
		Previous:      prev,
		Change:        change,
		ChangePercent: pct,
	}
}
