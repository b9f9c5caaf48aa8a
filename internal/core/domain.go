package core

import (
	"errors"
	"strings"
	"time"
)

const (
	DefaultCurrency       = "USD"
	DefaultCurrencySymbol = "$"

	maxDescriptionLength = 200
)

type (
	// ExpenseRecord is a single spend. Amount is the magnitude; the sign is implicit.
	ExpenseRecord struct {
		ID            string    `json:"id"`
		Date          Date      `json:"date"`
		Amount        Money     `json:"amount"`
		Category      string    `json:"category"`
		Description   string    `json:"description"`
		PaymentMethod string    `json:"paymentMethod"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	IncomeRecord struct {
		ID     string `json:"id"`
		Date   Date   `json:"date"`
		Amount Money  `json:"amount"`
		Source string `json:"source"`
		Notes  string `json:"notes"`
	}

	// BudgetMap holds monthly limits keyed by category id. A missing key means
	// no budget; a present zero is kept as-is and reported with 0%.
	BudgetMap map[string]Money

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	Settings struct {
		Currency       string `json:"currency"`
		CurrencySymbol string `json:"currencySymbol"`
		// AutoBackup enables the debounced remote save after each mutation.
		AutoBackup bool `json:"autoBackup"`
	}

	// Entry is implemented by every dated, amount-carrying record.
	Entry interface {
		EntryDate() Date
		EntryAmount() Money
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptySource        = errors.New("empty income source")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (e ExpenseRecord) EntryDate() Date    { return e.Date }
func (e ExpenseRecord) EntryAmount() Money { return e.Amount }
func (i IncomeRecord) EntryDate() Date     { return i.Date }
func (i IncomeRecord) EntryAmount() Money  { return i.Amount }

// Validate checks the fields a caller must guarantee before handing an
// expense to the ledger.
func (e ExpenseRecord) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (i IncomeRecord) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if !i.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if len(i.Notes) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func DefaultSettings() Settings {
	return Settings{
		Currency:       DefaultCurrency,
		CurrencySymbol: DefaultCurrencySymbol,
	}
}
