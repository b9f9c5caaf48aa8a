package services

import (
	"errors"
	"testing"

	"moneylog/internal/categories"
	"moneylog/internal/core"
	"moneylog/internal/report"
)

type fakeLedger struct {
	snap  core.Snapshot
	rev   uint64
	err   error
	reads int
}

func (f *fakeLedger) Revision() uint64 { return f.rev }

func (f *fakeLedger) Snapshot() (core.Snapshot, error) {
	f.reads++
	return f.snap, f.err
}

func expense(id, date, amount, category string) core.ExpenseRecord {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.ExpenseRecord{ID: id, Date: d, Amount: core.MustMoney(amount), Category: category, PaymentMethod: "cash"}
}

func income(id, date, amount string) core.IncomeRecord {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.IncomeRecord{ID: id, Date: d, Amount: core.MustMoney(amount), Source: "salary"}
}

func sampleSnapshot() core.Snapshot {
	snap := core.EmptySnapshot()
	snap.Expenses = []core.ExpenseRecord{
		expense("e1", "2024-03-05", "30.00", "food"),
		expense("e2", "2024-03-10", "70.00", "transport"),
		expense("e3", "2024-02-20", "50.00", "food"),
		expense("e4", "2023-12-01", "999.00", "custom-pets"),
	}
	snap.Income = []core.IncomeRecord{
		income("i1", "2024-03-01", "1000.00"),
		income("i2", "2024-02-01", "900.00"),
	}
	snap.Budgets = core.BudgetMap{"food": core.MustMoney("100")}
	snap.CustomCategories = []core.Category{categories.NewCustomCategory("Pets")}
	return snap
}

func TestSummaryService_Dashboard(t *testing.T) {
	led := &fakeLedger{snap: sampleSnapshot(), rev: 1}
	svc := NewSummaryService(led, 0, 0, nil)
	now := core.NewDate(2024, 3, 15)

	d, err := svc.Dashboard(report.ThisMonth, now)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	checks := []struct {
		name string
		got  core.Money
		want string
	}{
		{"expenses", d.TotalExpenses, "100"},
		{"income", d.TotalIncome, "1000"},
		{"net", d.Net, "900"},
	}
	for _, c := range checks {
		if !c.got.Equal(core.MustMoney(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if d.Formatted.Expenses != "$100.00" {
		t.Errorf("Formatted.Expenses = %q, want $100.00", d.Formatted.Expenses)
	}

	if len(d.Categories) != 2 || d.Categories[0].Category != "transport" {
		t.Fatalf("Categories = %+v, want transport first", d.Categories)
	}
	if got := d.Categories[0].Percentage.String(); got != "70" {
		t.Errorf("transport percentage = %s, want 70", got)
	}

	if len(d.Budgets) != 1 || !d.Budgets[0].Spent.Equal(core.MustMoney("30")) {
		t.Errorf("Budgets = %+v, want food spent 30", d.Budgets)
	}

	if d.Comparison == nil {
		t.Fatal("Comparison should be set for this_month")
	}
	if !d.Comparison.Previous.Equal(core.MustMoney("50")) {
		t.Errorf("Comparison.Previous = %s, want 50", d.Comparison.Previous)
	}
	if got := d.Comparison.ChangePercent.String(); got != "100" {
		t.Errorf("ChangePercent = %s, want 100", got)
	}

	if len(d.Cashflow) != DashboardTrendSize {
		t.Errorf("len(Cashflow) = %d, want %d", len(d.Cashflow), DashboardTrendSize)
	}
}

func TestSummaryService_DashboardAllTime(t *testing.T) {
	led := &fakeLedger{snap: sampleSnapshot(), rev: 1}
	svc := NewSummaryService(led, 0, 0, nil)

	d, err := svc.Dashboard(report.AllTime, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !d.TotalExpenses.Equal(core.MustMoney("1149")) {
		t.Errorf("TotalExpenses = %s, want 1149", d.TotalExpenses)
	}
	if d.Comparison != nil {
		t.Error("all_time has no previous period")
	}

	var pets *CategoryBreakdown
	for i := range d.Categories {
		if d.Categories[i].Category == "custom-pets" {
			pets = &d.Categories[i]
		}
	}
	if pets == nil {
		t.Fatal("custom-pets missing from breakdown")
	}
	if pets.Appearance.Kind != categories.KindCustom || pets.Appearance.Name != "Pets" {
		t.Errorf("custom appearance = %+v", pets.Appearance)
	}
}

func TestSummaryService_CachesPerRevision(t *testing.T) {
	led := &fakeLedger{snap: sampleSnapshot(), rev: 1}
	svc := NewSummaryService(led, 8, 0, nil)
	now := core.NewDate(2024, 3, 15)

	for i := 0; i < 3; i++ {
		if _, err := svc.Dashboard(report.ThisMonth, now); err != nil {
			t.Fatalf("Dashboard() error = %v", err)
		}
	}
	if led.reads != 1 {
		t.Errorf("snapshot read %d times, want 1", led.reads)
	}

	if _, err := svc.Dashboard(report.LastMonth, now); err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if led.reads != 2 {
		t.Errorf("other period should miss the cache, reads = %d", led.reads)
	}

	led.rev = 2
	led.snap.Expenses = led.snap.Expenses[:1]
	d, err := svc.Dashboard(report.ThisMonth, now)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if led.reads != 3 {
		t.Errorf("new revision should recompute, reads = %d", led.reads)
	}
	if !d.TotalExpenses.Equal(core.MustMoney("30")) || d.Revision != 2 {
		t.Errorf("got total %s at revision %d, want 30 at 2", d.TotalExpenses, d.Revision)
	}
}

func TestSummaryService_Errors(t *testing.T) {
	t.Run("unknown period", func(t *testing.T) {
		svc := NewSummaryService(&fakeLedger{snap: core.EmptySnapshot()}, 0, 0, nil)
		_, err := svc.Dashboard(report.Period("fortnight"), core.NewDate(2024, 1, 1))
		if !errors.Is(err, report.ErrUnknownPeriod) {
			t.Errorf("error = %v, want ErrUnknownPeriod", err)
		}
	})

	t.Run("ledger not ready", func(t *testing.T) {
		boom := errors.New("not ready")
		svc := NewSummaryService(&fakeLedger{err: boom}, 0, 0, nil)
		if _, err := svc.Dashboard(report.ThisMonth, core.NewDate(2024, 1, 1)); !errors.Is(err, boom) {
			t.Errorf("Dashboard() error = %v, want %v", err, boom)
		}
		if _, err := svc.Cashflow(3, core.NewDate(2024, 1, 1)); !errors.Is(err, boom) {
			t.Errorf("Cashflow() error = %v, want %v", err, boom)
		}
	})
}

func TestSummaryService_Cashflow(t *testing.T) {
	led := &fakeLedger{snap: sampleSnapshot(), rev: 1}
	svc := NewSummaryService(led, 0, 0, nil)
	now := core.NewDate(2024, 3, 15)

	tests := []struct {
		months int
		want   int
	}{
		{0, 1},
		{3, 3},
		{100, MaxTrendMonths},
	}
	for _, tt := range tests {
		points, err := svc.Cashflow(tt.months, now)
		if err != nil {
			t.Fatalf("Cashflow(%d) error = %v", tt.months, err)
		}
		if len(points) != tt.want {
			t.Errorf("Cashflow(%d) returned %d points, want %d", tt.months, len(points), tt.want)
		}
	}

	points, _ := svc.Cashflow(3, now)
	last := points[len(points)-1]
	if last.Month != "2024-03" || !last.Savings.Equal(core.MustMoney("900")) {
		t.Errorf("last point = %+v, want 2024-03 with savings 900", last)
	}
}
