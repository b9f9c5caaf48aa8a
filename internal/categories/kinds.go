package categories

// Kind enumerates how a category id renders. Predefined ids map to their own
// kind; user-created ids map to KindCustom; anything else is KindUnknown.
type Kind int

const (
	KindUnknown Kind = iota
	KindFood
	KindTransport
	KindShopping
	KindEntertainment
	KindBills
	KindHealth
	KindEducation
	KindTravel
	KindGroceries
	KindHousing
	KindPersonal
	KindOther
	KindCustom
)

// Icon is a symbolic icon reference resolved by the presentation layer.
type Icon string

const (
	IconUtensils    Icon = "utensils"
	IconCar         Icon = "car"
	IconShoppingBag Icon = "shopping-bag"
	IconFilm        Icon = "film"
	IconReceipt     Icon = "receipt"
	IconHeart       Icon = "heart-pulse"
	IconBook        Icon = "book"
	IconPlane       Icon = "plane"
	IconCart        Icon = "shopping-cart"
	IconHome        Icon = "home"
	IconUser        Icon = "user"
	IconMore        Icon = "more-horizontal"
	IconTag         Icon = "tag"
	IconHelp        Icon = "help-circle"
)

const (
	UnknownColor = "#9CA3AF"
	UnknownName  = "Unknown"
)

// Appearance is what a view needs to draw a category chip.
type Appearance struct {
	Kind  Kind   `json:"kind"`
	Name  string `json:"name"`
	Icon  Icon   `json:"icon"`
	Color string `json:"color"`
}

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindFood:          "food",
	KindTransport:     "transport",
	KindShopping:      "shopping",
	KindEntertainment: "entertainment",
	KindBills:         "bills",
	KindHealth:        "health",
	KindEducation:     "education",
	KindTravel:        "travel",
	KindGroceries:     "groceries",
	KindHousing:       "housing",
	KindPersonal:      "personal",
	KindOther:         "other",
	KindCustom:        "custom",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// unknownAppearance is the fallback for dangling references.
var unknownAppearance = Appearance{
	Kind:  KindUnknown,
	Name:  UnknownName,
	Icon:  IconHelp,
	Color: UnknownColor,
}
