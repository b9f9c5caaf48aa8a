package sheets

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"moneylog/internal/backup"
	"moneylog/internal/core"
)

const (
	tabExpenses   = "Expenses"
	tabIncome     = "Income"
	tabBudgets    = "Budgets"
	tabCategories = "Categories"
	tabMeta       = "Meta"

	metaCurrency       = "currency"
	metaCurrencySymbol = "currencySymbol"
	metaAutoBackup     = "autoBackup"
	metaSetupComplete  = "setupComplete"
	metaModifiedTime   = "modifiedTime"
)

var (
	allTabs = []string{tabExpenses, tabIncome, tabBudgets, tabCategories, tabMeta}

	expenseHeader  = []string{"ID", "Date", "Amount", "Category", "Description", "PaymentMethod", "CreatedAt"}
	incomeHeader   = []string{"ID", "Date", "Amount", "Source", "Notes"}
	budgetHeader   = []string{"Category", "Amount"}
	categoryHeader = []string{"ID", "Name", "Icon", "Color"}
	metaHeader     = []string{"Key", "Value"}
)

// encodeTabs renders the snapshot as one header-first table per tab.
// Amounts are written as text so no precision is lost.
func encodeTabs(snap core.Snapshot, at time.Time) map[string][][]any {
	tables := map[string][][]any{
		tabExpenses:   {row(expenseHeader...)},
		tabIncome:     {row(incomeHeader...)},
		tabBudgets:    {row(budgetHeader...)},
		tabCategories: {row(categoryHeader...)},
		tabMeta:       {row(metaHeader...)},
	}
	for _, e := range snap.Expenses {
		created := ""
		if !e.CreatedAt.IsZero() {
			created = e.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		tables[tabExpenses] = append(tables[tabExpenses],
			row(e.ID, e.Date.String(), e.Amount.String(), e.Category, e.Description, e.PaymentMethod, created))
	}
	for _, r := range snap.Income {
		tables[tabIncome] = append(tables[tabIncome], row(r.ID, r.Date.String(), r.Amount.String(), r.Source, r.Notes))
	}
	for _, cat := range sortedKeys(snap.Budgets) {
		tables[tabBudgets] = append(tables[tabBudgets], row(cat, snap.Budgets[cat].String()))
	}
	for _, c := range snap.CustomCategories {
		tables[tabCategories] = append(tables[tabCategories], row(c.ID, c.Name, c.Icon, c.Color))
	}
	tables[tabMeta] = append(tables[tabMeta],
		row(metaCurrency, snap.Settings.Currency),
		row(metaCurrencySymbol, snap.Settings.CurrencySymbol),
		row(metaAutoBackup, strconv.FormatBool(snap.Settings.AutoBackup)),
		row(metaSetupComplete, strconv.FormatBool(snap.SetupComplete)),
		row(metaModifiedTime, at.UTC().Format(time.RFC3339Nano)),
	)
	return tables
}

// decodeTabs rebuilds a snapshot from tab tables. Columns are located by
// header so reordered columns still parse. A missing Meta tab means no backup.
func decodeTabs(tables map[string][][]any) (*backup.RemoteSnapshot, error) {
	meta := tables[tabMeta]
	if len(meta) == 0 {
		return nil, nil
	}
	snap := core.EmptySnapshot()

	kv, err := parseMeta(meta)
	if err != nil {
		return nil, err
	}
	if v := kv[metaCurrency]; v != "" {
		snap.Settings.Currency = v
	}
	if v := kv[metaCurrencySymbol]; v != "" {
		snap.Settings.CurrencySymbol = v
	}
	snap.Settings.AutoBackup, _ = strconv.ParseBool(kv[metaAutoBackup])
	snap.SetupComplete, _ = strconv.ParseBool(kv[metaSetupComplete])
	modified, _ := time.Parse(time.RFC3339Nano, kv[metaModifiedTime])

	if snap.Expenses, err = parseExpenses(tables[tabExpenses]); err != nil {
		return nil, err
	}
	if snap.Income, err = parseIncome(tables[tabIncome]); err != nil {
		return nil, err
	}
	if err := parseBudgets(tables[tabBudgets], snap.Budgets); err != nil {
		return nil, err
	}
	if snap.CustomCategories, err = parseCategories(tables[tabCategories]); err != nil {
		return nil, err
	}
	return &backup.RemoteSnapshot{Data: snap.Normalize(), ModifiedTime: modified}, nil
}

func parseMeta(values [][]any) (map[string]string, error) {
	cols, err := columns(tabMeta, values, metaHeader)
	if err != nil {
		return nil, err
	}
	kv := map[string]string{}
	for _, r := range values[1:] {
		cells := toStrings(r)
		if k := safeGet(cells, cols[0]); k != "" {
			kv[k] = safeGet(cells, cols[1])
		}
	}
	return kv, nil
}

func parseExpenses(values [][]any) ([]core.ExpenseRecord, error) {
	out := []core.ExpenseRecord{}
	if len(values) == 0 {
		return out, nil
	}
	cols, err := columns(tabExpenses, values, expenseHeader)
	if err != nil {
		return nil, err
	}
	for i, r := range values[1:] {
		cells := toStrings(r)
		if isBlank(cells) {
			continue
		}
		date, amount, err := parseDateAmount(safeGet(cells, cols[1]), safeGet(cells, cols[2]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", tabExpenses, i+2, err)
		}
		e := core.ExpenseRecord{
			ID:            safeGet(cells, cols[0]),
			Date:          date,
			Amount:        amount,
			Category:      safeGet(cells, cols[3]),
			Description:   safeGet(cells, cols[4]),
			PaymentMethod: safeGet(cells, cols[5]),
		}
		if s := safeGet(cells, cols[6]); s != "" {
			if e.CreatedAt, err = time.Parse(time.RFC3339Nano, s); err != nil {
				return nil, fmt.Errorf("%s row %d: created at: %w", tabExpenses, i+2, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func parseIncome(values [][]any) ([]core.IncomeRecord, error) {
	out := []core.IncomeRecord{}
	if len(values) == 0 {
		return out, nil
	}
	cols, err := columns(tabIncome, values, incomeHeader)
	if err != nil {
		return nil, err
	}
	for i, r := range values[1:] {
		cells := toStrings(r)
		if isBlank(cells) {
			continue
		}
		date, amount, err := parseDateAmount(safeGet(cells, cols[1]), safeGet(cells, cols[2]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", tabIncome, i+2, err)
		}
		out = append(out, core.IncomeRecord{
			ID:     safeGet(cells, cols[0]),
			Date:   date,
			Amount: amount,
			Source: safeGet(cells, cols[3]),
			Notes:  safeGet(cells, cols[4]),
		})
	}
	return out, nil
}

func parseBudgets(values [][]any, into core.BudgetMap) error {
	if len(values) == 0 {
		return nil
	}
	cols, err := columns(tabBudgets, values, budgetHeader)
	if err != nil {
		return err
	}
	for i, r := range values[1:] {
		cells := toStrings(r)
		cat := safeGet(cells, cols[0])
		if cat == "" {
			continue
		}
		amount, err := core.ParseMoney(safeGet(cells, cols[1]))
		if err != nil {
			return fmt.Errorf("%s row %d: %w", tabBudgets, i+2, err)
		}
		into[cat] = amount
	}
	return nil
}

func parseCategories(values [][]any) ([]core.Category, error) {
	out := []core.Category{}
	if len(values) == 0 {
		return out, nil
	}
	cols, err := columns(tabCategories, values, categoryHeader)
	if err != nil {
		return nil, err
	}
	for _, r := range values[1:] {
		cells := toStrings(r)
		id := safeGet(cells, cols[0])
		if id == "" {
			continue
		}
		out = append(out, core.Category{
			ID:    id,
			Name:  safeGet(cells, cols[1]),
			Icon:  safeGet(cells, cols[2]),
			Color: safeGet(cells, cols[3]),
		})
	}
	return out, nil
}

func parseDateAmount(dateStr, amountStr string) (core.Date, core.Money, error) {
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Date{}, core.Money{}, err
	}
	amount, err := core.ParseMoney(strings.ReplaceAll(amountStr, ",", "."))
	if err != nil {
		return core.Date{}, core.Money{}, err
	}
	return date, amount, nil
}

// columns maps each wanted header to its index in the first row.
func columns(tab string, values [][]any, want []string) ([]int, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("unexpected %s header: empty tab", tab)
	}
	headers := toStrings(values[0])
	idx := make([]int, len(want))
	var missing []string
	for i, h := range want {
		idx[i] = indexOf(headers, h)
		if idx[i] == -1 {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected %s header: missing %s; got headers=%v", tab, strings.Join(missing, ","), headers)
	}
	return idx, nil
}

func row(cells ...string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			// numbers typed into the sheet by hand come back unformatted
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func sortedKeys(m core.BudgetMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
