package provider

import (
	"bytes"
	"encoding/json"
	"strconv"

	"menupipe/internal/domain"
)

// Number is a tolerant numeric field. The provider reports nutrition values
// inconsistently as JSON numbers, numeric strings, or null; all decode to a
// plain float64, with null and empty string as zero.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// WeekMenu is the provider payload for one (location, meal) week request.
// The response covers every day of the serving week containing the
// requested date.
type WeekMenu struct {
	LocationSlug string `json:"school_slug"`
	Days         []Day  `json:"days"`
}

// Day is one serving day inside a weekly payload. SectionInfo maps a
// section id to its display metadata; items reference their section by
// MenuID.
type Day struct {
	Date        string                 `json:"date"`
	Items       []Item                 `json:"menu_items"`
	SectionInfo map[string]SectionInfo `json:"menu_info"`
}

// SectionInfo carries the display metadata of a serving section.
type SectionInfo struct {
	SectionOptions struct {
		DisplayName string `json:"display_name"`
	} `json:"section_options"`
}

// Item is one row of a day's menu. Rows without Food are structural
// (section titles, spacers) and carry no dish.
type Item struct {
	IsSectionTitle bool        `json:"is_section_title"`
	MenuID         json.Number `json:"menu_id"`
	Food           *Food       `json:"food"`
}

// Food is the dish payload of a menu row.
type Food struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	SyncedID    json.Number      `json:"synced_id"`
	ImageURL    string           `json:"image_url"`
	Nutrition   RoundedNutrition `json:"rounded_nutrition_info"`
	ServingSize *ServingSize     `json:"serving_size_info"`
	Icons       struct {
		FoodIcons []FoodIcon `json:"food_icons"`
	} `json:"icons"`
}

// RoundedNutrition is the provider's nutrition block. Field units follow
// the provider's naming (grams except sodium in milligrams).
type RoundedNutrition struct {
	Calories Number `json:"calories"`
	ProteinG Number `json:"g_protein"`
	FatG     Number `json:"g_fat"`
	CarbsG   Number `json:"g_carbs"`
	SodiumMg Number `json:"mg_sodium"`
	FiberG   Number `json:"g_fiber"`
	SugarG   Number `json:"g_sugar"`
}

// ServingSize is the provider's serving descriptor. Grams is authoritative
// when present; otherwise Amount+Unit may allow a conversion.
type ServingSize struct {
	Amount Number `json:"serving_size_amount"`
	Unit   string `json:"serving_size_unit"`
	Grams  Number `json:"serving_size_grams"`
}

// FoodIcon is a provider dietary/allergen label attached to a dish.
type FoodIcon struct {
	Slug        string `json:"slug"`
	SyncedName  string `json:"synced_name"`
	IsFilter    bool   `json:"is_filter"`
	IsHighlight bool   `json:"is_highlight"`
}

// Label returns the provider-side dietary label for the icon.
func (i FoodIcon) Label() string {
	if i.Slug != "" {
		return i.Slug
	}
	return i.SyncedName
}

// RawMenu is the fetch result for one unit: either a payload with content
// or an explicit closed/empty marker. Closed is intentional absence, not a
// failure.
type RawMenu struct {
	Unit   domain.FetchUnit
	Week   *WeekMenu
	Closed bool
	Reason string
}
