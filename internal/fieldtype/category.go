package fieldtype

import "fmt"

// Category identifies the validation and normalization behavior of a field.
// The set is closed: every dispatch point switches exhaustively over these
// values so that adding a category is a compile-time-checked change.
type Category int

const (
	CategoryUnit Category = iota + 1
	CategoryCurrency
	CategoryQuantity
	CategoryAmount
	CategoryDate
	CategoryDomain
	CategoryBoolean
	CategoryCodeArray
	CategoryChar
)

var categoryNames = map[Category]string{
	CategoryUnit:      "UNIT",
	CategoryCurrency:  "CURRENCY",
	CategoryQuantity:  "QUAN",
	CategoryAmount:    "CURR",
	CategoryDate:      "DATS",
	CategoryDomain:    "DOMAIN",
	CategoryBoolean:   "BOOLEAN",
	CategoryCodeArray: "CODE_ARRAY",
	CategoryChar:      "CHAR",
}

// String returns the canonical token for the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Valid reports whether the category is one of the nine known values.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory maps a canonical token back to its Category.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown field category: %q", s)
}

// Categories returns all known categories in declaration order.
func Categories() []Category {
	return []Category{
		CategoryUnit,
		CategoryCurrency,
		CategoryQuantity,
		CategoryAmount,
		CategoryDate,
		CategoryDomain,
		CategoryBoolean,
		CategoryCodeArray,
		CategoryChar,
	}
}
