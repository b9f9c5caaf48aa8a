package core

// Snapshot is the complete persisted state: the unit of load, save, export,
// import and backup.
type Snapshot struct {
	Expenses         []ExpenseRecord `json:"expenses"`
	Income           []IncomeRecord  `json:"income"`
	Budgets          BudgetMap       `json:"budgets"`
	CustomCategories []Category      `json:"customCategories"`
	Settings         Settings        `json:"settings"`
	SetupComplete    bool            `json:"setupComplete"`
}

// EmptySnapshot is the first-run state.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Expenses:         []ExpenseRecord{},
		Income:           []IncomeRecord{},
		Budgets:          BudgetMap{},
		CustomCategories: []Category{},
		Settings:         DefaultSettings(),
	}
}

// Normalize fills missing collections and settings with their defaults.
func (s Snapshot) Normalize() Snapshot {
	if s.Expenses == nil {
		s.Expenses = []ExpenseRecord{}
	}
	if s.Income == nil {
		s.Income = []IncomeRecord{}
	}
	if s.Budgets == nil {
		s.Budgets = BudgetMap{}
	}
	if s.CustomCategories == nil {
		s.CustomCategories = []Category{}
	}
	defaults := DefaultSettings()
	if s.Settings.Currency == "" {
		s.Settings.Currency = defaults.Currency
	}
	if s.Settings.CurrencySymbol == "" {
		s.Settings.CurrencySymbol = defaults.CurrencySymbol
	}
	return s
}

// Clone copies every collection so the result shares no backing storage with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Expenses = append([]ExpenseRecord(nil), s.Expenses...)
	out.Income = append([]IncomeRecord(nil), s.Income...)
	out.CustomCategories = append([]Category(nil), s.CustomCategories...)
	out.Budgets = s.Budgets.Clone()
	return out.Normalize()
}

func (b BudgetMap) Clone() BudgetMap {
	out := make(BudgetMap, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// ExpenseIndex returns the position of the expense with id, or -1.
func (s Snapshot) ExpenseIndex(id string) int {
	for i, e := range s.Expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// IncomeIndex returns the position of the income record with id, or -1.
func (s Snapshot) IncomeIndex(id string) int {
	for i, r := range s.Income {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// HasCustomCategory reports whether id is already in the custom list.
func (s Snapshot) HasCustomCategory(id string) bool {
	for _, c := range s.CustomCategories {
		if c.ID == id {
			return true
		}
	}
	return false
}
