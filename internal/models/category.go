package models

import "strings"

type Category string

const (
	CategoryGlider     Category = "glider"
	CategoryTMG        Category = "tmg"
	CategoryUltralight Category = "ultralight"
	CategoryAirplane   Category = "airplane"
	CategoryHelicopter Category = "helicopter"
	CategoryUnknown    Category = "unknown"
)

// Categories lists the categories offered as list filters.
var Categories = []Category{
	CategoryGlider,
	CategoryTMG,
	CategoryUltralight,
	CategoryAirplane,
}

// ParseCategory maps a raw category name to a Category. Empty input yields an
// empty category (no filter), anything unrecognised yields CategoryUnknown.
func ParseCategory(raw string) Category {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch Category(raw) {
	case "":
		return ""
	case CategoryGlider, CategoryTMG, CategoryUltralight, CategoryAirplane, CategoryHelicopter:
		return Category(raw)
	default:
		return CategoryUnknown
	}
}

func (c Category) String() string {
	return string(c)
}
