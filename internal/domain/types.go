// Package domain defines the core data types shared across the menu
// pipeline: fetch units, nutrition facts, menu items and sections, and the
// canonical menu document loaded into the index store.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the wire and filename format for menu dates.
const DateLayout = "2006-01-02"

// MealType is a named serving period at a dining location.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// FetchUnit identifies one provider request: a location serving a meal on a
// date. Units are immutable and consumed exactly once by the fetcher.
type FetchUnit struct {
	Location string
	Meal     MealType
	Date     time.Time
}

// String returns the unit identity used in logs and error messages.
func (u FetchUnit) String() string {
	return fmt.Sprintf("%s/%s/%s", u.Location, u.Meal, u.Date.Format(DateLayout))
}

// DietTag is a canonical dietary label. Provider-specific labels are mapped
// into this fixed vocabulary during transformation; labels outside it are
// dropped.
type DietTag string

const (
	DietVegetarian DietTag = "vegetarian"
	DietVegan      DietTag = "vegan"
	DietGlutenFree DietTag = "gluten-free"
	DietHalal      DietTag = "halal"
	DietKosher     DietTag = "kosher"
	DietDairyFree  DietTag = "dairy-free"
	DietNutFree    DietTag = "nut-free"
)

// SchemaURI returns the schema.org diet URI for the tag, for
// interoperability with consumers expecting JSON-LD diet annotations.
func (t DietTag) SchemaURI() string {
	switch t {
	case DietVegetarian:
		return "https://schema.org/VegetarianDiet"
	case DietVegan:
		return "https://schema.org/VeganDiet"
	case DietGlutenFree:
		return "https://schema.org/GlutenFreeDiet"
	case DietHalal:
		return "https://schema.org/HalalDiet"
	case DietKosher:
		return "https://schema.org/KosherDiet"
	case DietDairyFree:
		return "https://schema.org/LowLactoseDiet"
	case DietNutFree:
		return "https://schema.org/PeanutFreeDiet"
	}
	return ""
}

// Nutrition holds normalized nutrition facts for one menu item. Weight-bearing
// fields are always grams (sodium milligrams), calories always kcal,
// regardless of the units the provider reported.
type Nutrition struct {
	CaloriesKcal  float64 `json:"caloriesKcal"`
	ProteinG      float64 `json:"proteinG"`
	CarbohydrateG float64 `json:"carbohydrateG"`
	FatG          float64 `json:"fatG"`
	SodiumMg      float64 `json:"sodiumMg"`
	FiberG        float64 `json:"fiberG"`
	SugarG        float64 `json:"sugarG"`
}

// MenuItem is one dish on a serving line.
type MenuItem struct {
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Nutrition      Nutrition `json:"nutrition"`
	ServingSize    string    `json:"servingSize,omitempty"`
	ServingWeightG float64   `json:"servingWeightG,omitempty"`
	DietTags       []DietTag `json:"dietTags,omitempty"`
	VendorID       string    `json:"vendorID,omitempty"`
}

// MenuSection is a named serving line. Item order is source-preserving.
type MenuSection struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// MenuDocument is the canonical, schema-tagged representation of one
// (location, meal, date) menu. At most one document exists per identity
// triple, and the triple is embedded in the document's persisted name so
// date-suffix selection works without opening the file.
type MenuDocument struct {
	Context  string        `json:"@context"`
	Type     string        `json:"@type"`
	Location string        `json:"location"`
	Meal     MealType      `json:"meal"`
	Date     string        `json:"date"`
	Sections []MenuSection `json:"sections"`
}

// NewMenuDocument returns a schema-tagged document for the identity triple.
func NewMenuDocument(location string, meal MealType, date time.Time, sections []MenuSection) *MenuDocument {
	return &MenuDocument{
		Context:  "https://schema.org",
		Type:     "Menu",
		Location: location,
		Meal:     meal,
		Date:     date.Format(DateLayout),
		Sections: sections,
	}
}

// ID returns the deterministic document identity <location>_<meal>_<date>,
// used as both the filename stem and the index doc_id.
func (d *MenuDocument) ID() string {
	return fmt.Sprintf("%s_%s_%s", d.Location, d.Meal, d.Date)
}

// DietURIs returns the deduplicated schema.org diet URIs for every tagged
// item in the document, sorted for stable output.
func (d *MenuDocument) DietURIs() []string {
	seen := make(map[string]struct{})
	for _, sec := range d.Sections {
		for _, item := range sec.Items {
			for _, tag := range item.DietTags {
				if uri := tag.SchemaURI(); uri != "" {
					seen[uri] = struct{}{}
				}
			}
		}
	}
	uris := make([]string, 0, len(seen))
	for uri := range seen {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// ItemCount returns the total number of items across all sections.
func (d *MenuDocument) ItemCount() int {
	n := 0
	for _, sec := range d.Sections {
		n += len(sec.Items)
	}
	return n
}

// ScopeForDate derives the index scope tag for a date. Distinct dates always
// produce distinct tags, so scopes can be retired and reloaded independently.
func ScopeForDate(d time.Time) string {
	return "menus_" + d.Format(DateLayout)
}
