package http

import (
	"fmt"
	"time"

	"moneylog/internal/categories"
	"moneylog/internal/core"
	"moneylog/internal/ledger"
)

// placeholder records give partial updates something valid to merge onto,
// so a patch is checked field by field with the record validators.
var (
	placeholderExpense = core.ExpenseRecord{Date: core.NewDate(2000, 1, 1), Amount: core.MoneyFromInt(1), Category: "other"}
	placeholderIncome  = core.IncomeRecord{Date: core.NewDate(2000, 1, 1), Amount: core.MoneyFromInt(1), Source: "other"}
)

func validateNewExpense(in *ledger.NewExpense) error {
	in.Category = sanitizeInput(in.Category)
	in.Description = sanitizeInput(in.Description)
	in.PaymentMethod = sanitizeInput(in.PaymentMethod)
	if err := in.Record("", time.Time{}).Validate(); err != nil {
		return err
	}
	return validatePaymentMethod(in.PaymentMethod)
}

func validateExpensePatch(p *ledger.ExpensePatch) error {
	sanitizePtr(p.Category)
	sanitizePtr(p.Description)
	sanitizePtr(p.PaymentMethod)
	if err := p.Apply(placeholderExpense).Validate(); err != nil {
		return err
	}
	if p.PaymentMethod != nil {
		return validatePaymentMethod(*p.PaymentMethod)
	}
	return nil
}

func validatePaymentMethod(id string) error {
	if id == "" {
		return nil
	}
	if _, ok := categories.LookupPaymentMethod(id); !ok {
		return fmt.Errorf("%w: unknown payment method %q", errBadRequest, id)
	}
	return nil
}

func validateNewIncome(in *ledger.NewIncome) error {
	in.Source = sanitizeInput(in.Source)
	in.Notes = sanitizeInput(in.Notes)
	return in.Record("").Validate()
}

func validateIncomePatch(p *ledger.IncomePatch) error {
	sanitizePtr(p.Source)
	sanitizePtr(p.Notes)
	return p.Apply(placeholderIncome).Validate()
}

type budgetRequest struct {
	Amount *core.Money `json:"amount"`
}

// validate allows zero: an explicit zero budget is kept.
func (b budgetRequest) validate() error {
	if b.Amount == nil {
		return fmt.Errorf("%w: amount is required", errBadRequest)
	}
	if b.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", core.ErrInvalidAmount)
	}
	return nil
}

type categoriesRequest struct {
	Names []string `json:"names"`
}

// categories builds custom categories for the non-empty names.
func (c categoriesRequest) categories() ([]core.Category, error) {
	var out []core.Category
	for _, name := range c.Names {
		name = sanitizeInput(name)
		if name == "" {
			continue
		}
		out = append(out, categories.NewCustomCategory(name))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one category name is required", errBadRequest)
	}
	return out, nil
}

func validateSettingsPatch(p *ledger.SettingsPatch) error {
	sanitizePtr(p.Currency)
	sanitizePtr(p.CurrencySymbol)
	if p.Currency != nil && *p.Currency == "" {
		return fmt.Errorf("%w: currency must not be empty", errBadRequest)
	}
	if p.CurrencySymbol != nil && *p.CurrencySymbol == "" {
		return fmt.Errorf("%w: currency symbol must not be empty", errBadRequest)
	}
	return nil
}
