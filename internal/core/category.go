package core

import "fmt"

// Category is a closed set of spending classifications. Unknown strings
// never become a Category through ParseCategory; display metadata lives
// in a table keyed by the enum so a lookup miss cannot happen at runtime.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTravel        Category = "Travel"
	CategoryShopping      Category = "Shopping"
	CategoryRent          Category = "Rent"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryEducation     Category = "Education"
	CategoryOthers        Category = "Others"
)

var categories = []Category{
	CategoryFood,
	CategoryTravel,
	CategoryShopping,
	CategoryRent,
	CategoryEntertainment,
	CategoryHealth,
	CategoryEducation,
	CategoryOthers,
}

// CategoryMeta carries display metadata for a category.
type CategoryMeta struct {
	Color string
	Icon  string
}

var categoryMeta = map[Category]CategoryMeta{
	CategoryFood:          {Color: "#10b981", Icon: "utensils"},
	CategoryTravel:        {Color: "#3b82f6", Icon: "plane"},
	CategoryShopping:      {Color: "#ec4899", Icon: "shopping-bag"},
	CategoryRent:          {Color: "#f59e0b", Icon: "home"},
	CategoryEntertainment: {Color: "#8b5cf6", Icon: "film"},
	CategoryHealth:        {Color: "#ef4444", Icon: "heart"},
	CategoryEducation:     {Color: "#06b6d4", Icon: "graduation-cap"},
	CategoryOthers:        {Color: "#6b7280", Icon: "more-horizontal"},
}

// Categories returns the full enumeration in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether the category belongs to the closed enumeration.
func (c Category) Valid() bool {
	_, ok := categoryMeta[c]
	return ok
}

// Meta returns display metadata for the category. Unknown categories get
// the Others metadata so callers always have something renderable.
func (c Category) Meta() CategoryMeta {
	if m, ok := categoryMeta[c]; ok {
		return m
	}
	return categoryMeta[CategoryOthers]
}

func (c Category) String() string {
	return string(c)
}
