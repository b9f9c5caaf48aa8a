package ledger

import (
	"time"

	"moneylog/internal/core"
)

// Command names, used for logs and change events.
const (
	CmdAddExpense           = "add_expense"
	CmdUpdateExpense        = "update_expense"
	CmdDeleteExpense        = "delete_expense"
	CmdAddIncome            = "add_income"
	CmdUpdateIncome         = "update_income"
	CmdDeleteIncome         = "delete_income"
	CmdSetBudget            = "set_budget"
	CmdRemoveBudget         = "remove_budget"
	CmdAddCustomCategories  = "add_custom_categories"
	CmdRemoveCustomCategory = "remove_custom_category"
	CmdUpdateSettings       = "update_settings"
	CmdImportSnapshot       = "import_snapshot"
	CmdClearAll             = "clear_all"
	CmdCompleteSetup        = "complete_setup"
)

type (
	// NewExpense carries the caller-supplied fields of an expense. The store
	// assigns the id and creation time.
	NewExpense struct {
		Date          core.Date  `json:"date"`
		Amount        core.Money `json:"amount"`
		Category      string     `json:"category"`
		Description   string     `json:"description"`
		PaymentMethod string     `json:"paymentMethod"`
	}

	// ExpensePatch merges non-nil fields over an existing expense.
	ExpensePatch struct {
		Date          *core.Date  `json:"date,omitempty"`
		Amount        *core.Money `json:"amount,omitempty"`
		Category      *string     `json:"category,omitempty"`
		Description   *string     `json:"description,omitempty"`
		PaymentMethod *string     `json:"paymentMethod,omitempty"`
	}

	NewIncome struct {
		Date   core.Date  `json:"date"`
		Amount core.Money `json:"amount"`
		Source string     `json:"source"`
		Notes  string     `json:"notes"`
	}

	IncomePatch struct {
		Date   *core.Date  `json:"date,omitempty"`
		Amount *core.Money `json:"amount,omitempty"`
		Source *string     `json:"source,omitempty"`
		Notes  *string     `json:"notes,omitempty"`
	}

	// SettingsPatch is shallow-merged into the current settings.
	SettingsPatch struct {
		Currency       *string `json:"currency,omitempty"`
		CurrencySymbol *string `json:"currencySymbol,omitempty"`
		AutoBackup     *bool   `json:"autoBackup,omitempty"`
	}
)

func (n NewExpense) Record(id string, created time.Time) core.ExpenseRecord {
	return core.ExpenseRecord{
		ID:            id,
		Date:          n.Date,
		Amount:        n.Amount,
		Category:      n.Category,
		Description:   n.Description,
		PaymentMethod: n.PaymentMethod,
		CreatedAt:     created,
	}
}

func (n NewIncome) Record(id string) core.IncomeRecord {
	return core.IncomeRecord{
		ID:     id,
		Date:   n.Date,
		Amount: n.Amount,
		Source: n.Source,
		Notes:  n.Notes,
	}
}

// Apply returns e with the patch merged in.
func (p ExpensePatch) Apply(e core.ExpenseRecord) core.ExpenseRecord {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	return e
}

func (p IncomePatch) Apply(r core.IncomeRecord) core.IncomeRecord {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Source != nil {
		r.Source = *p.Source
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}

func (p SettingsPatch) Apply(s core.Settings) core.Settings {
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.CurrencySymbol != nil {
		s.CurrencySymbol = *p.CurrencySymbol
	}
	if p.AutoBackup != nil {
		s.AutoBackup = *p.AutoBackup
	}
	return s
}

func sameExpense(a, b core.ExpenseRecord) bool {
	return a.ID == b.ID && a.Date.Equal(b.Date) && a.Amount.Equal(b.Amount) && a.Category == b.Category &&
		a.Description == b.Description && a.PaymentMethod == b.PaymentMethod && a.CreatedAt.Equal(b.CreatedAt)
}

func sameIncome(a, b core.IncomeRecord) bool {
	return a.ID == b.ID && a.Date.Equal(b.Date) && a.Amount.Equal(b.Amount) && a.Source == b.Source && a.Notes == b.Notes
}
