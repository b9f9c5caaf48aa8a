// Package categories resolves expense categories, payment methods and income
// sources to display metadata. Lookups never fail: a miss returns ok=false
// and callers render the unknown fallback.
package categories

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"moneylog/internal/core"
)

// CatalogVersion identifies the predefined catalog below.
const CatalogVersion = 1

// CustomPrefix keeps user-created ids out of the predefined namespace.
const CustomPrefix = "custom-"

type predefined struct {
	kind     Kind
	category core.Category
}

var catalog = []predefined{
	{KindFood, core.Category{ID: "food", Name: "Food & Dining", Icon: string(IconUtensils), Color: "#F97316"}},
	{KindTransport, core.Category{ID: "transport", Name: "Transport", Icon: string(IconCar), Color: "#3B82F6"}},
	{KindShopping, core.Category{ID: "shopping", Name: "Shopping", Icon: string(IconShoppingBag), Color: "#EC4899"}},
	{KindEntertainment, core.Category{ID: "entertainment", Name: "Entertainment", Icon: string(IconFilm), Color: "#8B5CF6"}},
	{KindBills, core.Category{ID: "bills", Name: "Bills & Utilities", Icon: string(IconReceipt), Color: "#EF4444"}},
	{KindHealth, core.Category{ID: "health", Name: "Health", Icon: string(IconHeart), Color: "#10B981"}},
	{KindEducation, core.Category{ID: "education", Name: "Education", Icon: string(IconBook), Color: "#6366F1"}},
	{KindTravel, core.Category{ID: "travel", Name: "Travel", Icon: string(IconPlane), Color: "#06B6D4"}},
	{KindGroceries, core.Category{ID: "groceries", Name: "Groceries", Icon: string(IconCart), Color: "#84CC16"}},
	{KindHousing, core.Category{ID: "housing", Name: "Housing", Icon: string(IconHome), Color: "#F59E0B"}},
	{KindPersonal, core.Category{ID: "personal", Name: "Personal Care", Icon: string(IconUser), Color: "#D946EF"}},
	{KindOther, core.Category{ID: "other", Name: "Other", Icon: string(IconMore), Color: "#6B7280"}},
}

// Palette is the fixed set of colors custom categories draw from.
var Palette = []string{
	"#F97316", "#3B82F6", "#EC4899", "#8B5CF6", "#EF4444", "#10B981",
	"#6366F1", "#06B6D4", "#84CC16", "#F59E0B", "#D946EF", "#14B8A6",
}

type (
	PaymentMethod struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon Icon   `json:"icon"`
	}

	IncomeSource struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  Icon   `json:"icon"`
		Color string `json:"color"`
	}
)

var paymentMethods = []PaymentMethod{
	{ID: "cash", Name: "Cash", Icon: "banknote"},
	{ID: "credit_card", Name: "Credit Card", Icon: "credit-card"},
	{ID: "debit_card", Name: "Debit Card", Icon: "credit-card"},
	{ID: "bank_transfer", Name: "Bank Transfer", Icon: "landmark"},
	{ID: "digital_wallet", Name: "Digital Wallet", Icon: "smartphone"},
	{ID: "other", Name: "Other", Icon: IconMore},
}

var incomeSources = []IncomeSource{
	{ID: "salary", Name: "Salary", Icon: "briefcase", Color: "#10B981"},
	{ID: "freelance", Name: "Freelance", Icon: "laptop", Color: "#3B82F6"},
	{ID: "business", Name: "Business", Icon: "building", Color: "#8B5CF6"},
	{ID: "investments", Name: "Investments", Icon: "trending-up", Color: "#F59E0B"},
	{ID: "rental", Name: "Rental", Icon: IconHome, Color: "#06B6D4"},
	{ID: "gifts", Name: "Gifts", Icon: "gift", Color: "#EC4899"},
	{ID: "refunds", Name: "Refunds", Icon: "rotate-ccw", Color: "#84CC16"},
	{ID: "other", Name: "Other", Icon: IconMore, Color: "#6B7280"},
}

// Predefined returns a copy of the predefined category catalog.
func Predefined() []core.Category {
	out := make([]core.Category, len(catalog))
	for i, p := range catalog {
		out[i] = p.category
	}
	return out
}

// All returns the predefined catalog followed by the custom categories.
func All(custom []core.Category) []core.Category {
	return append(Predefined(), custom...)
}

// Lookup resolves id against the predefined catalog first, then the custom list.
func Lookup(id string, custom []core.Category) (core.Category, bool) {
	for _, p := range catalog {
		if p.category.ID == id {
			return p.category, true
		}
	}
	for _, c := range custom {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

// IsPredefined reports whether id belongs to the fixed catalog.
func IsPredefined(id string) bool {
	for _, p := range catalog {
		if p.category.ID == id {
			return true
		}
	}
	return false
}

// KindOf maps an id to its rendering variant.
func KindOf(id string, custom []core.Category) Kind {
	for _, p := range catalog {
		if p.category.ID == id {
			return p.kind
		}
	}
	for _, c := range custom {
		if c.ID == id {
			return KindCustom
		}
	}
	return KindUnknown
}

// AppearanceOf returns display metadata for id, falling back to the unknown
// appearance for ids that no longer resolve.
func AppearanceOf(id string, custom []core.Category) Appearance {
	c, ok := Lookup(id, custom)
	if !ok {
		return unknownAppearance
	}
	a := Appearance{
		Kind:  KindOf(id, custom),
		Name:  c.Name,
		Icon:  Icon(c.Icon),
		Color: c.Color,
	}
	if a.Icon == "" {
		a.Icon = IconTag
	}
	if a.Color == "" {
		a.Color = UnknownColor
	}
	return a
}

func PaymentMethods() []PaymentMethod {
	return append([]PaymentMethod(nil), paymentMethods...)
}

func LookupPaymentMethod(id string) (PaymentMethod, bool) {
	for _, pm := range paymentMethods {
		if pm.ID == id {
			return pm, true
		}
	}
	return PaymentMethod{}, false
}

func IncomeSources() []IncomeSource {
	return append([]IncomeSource(nil), incomeSources...)
}

func LookupIncomeSource(id string) (IncomeSource, bool) {
	for _, src := range incomeSources {
		if src.ID == id {
			return src, true
		}
	}
	return IncomeSource{}, false
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug lowercases name and joins whitespace runs with a hyphen.
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// NewCustomCategory builds a category for name with a palette color picked at
// random. Callers de-duplicate against existing ids before committing it.
func NewCustomCategory(name string) core.Category {
	return newCustomCategory(name, rand.IntN)
}

func newCustomCategory(name string, pick func(n int) int) core.Category {
	return core.Category{
		ID:    CustomPrefix + Slug(name),
		Name:  strings.TrimSpace(name),
		Icon:  string(IconTag),
		Color: Palette[pick(len(Palette))],
	}
}
