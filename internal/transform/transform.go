// Package transform converts raw provider payloads into canonical menu
// documents. Items are grouped by serving section in serving-line order,
// nutrition values are normalized to canonical units, and provider dietary
// labels are mapped into the fixed tag vocabulary.
package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"menupipe/internal/domain"
	"menupipe/internal/provider"
)

// Documents converts one raw weekly payload into canonical documents, one
// per day that carries real content. Days without dishes produce no
// document. The returned documents all share the raw menu's (location,
// meal) identity and carry their own dates.
func Documents(raw *provider.RawMenu) ([]*domain.MenuDocument, error) {
	if raw == nil || raw.Closed {
		return nil, nil
	}
	if raw.Week == nil {
		return nil, fmt.Errorf("transform %s: payload missing", raw.Unit)
	}

	var docs []*domain.MenuDocument
	for _, day := range raw.Week.Days {
		date, err := time.Parse(domain.DateLayout, day.Date)
		if err != nil {
			return nil, fmt.Errorf("transform %s: bad day date %q: %w", raw.Unit, day.Date, err)
		}
		sections := daySections(day)
		if len(sections) == 0 {
			continue
		}
		docs = append(docs, domain.NewMenuDocument(raw.Unit.Location, raw.Unit.Meal, date, sections))
	}
	return docs, nil
}

// daySections groups a day's items into named sections, preserving the
// serving-line order in which sections first appear among the items.
func daySections(day provider.Day) []domain.MenuSection {
	itemsBySection := make(map[string][]provider.Item)
	var sectionOrder []string
	for _, item := range day.Items {
		if item.IsSectionTitle || item.Food == nil {
			continue
		}
		id := item.MenuID.String()
		if _, seen := itemsBySection[id]; !seen {
			sectionOrder = append(sectionOrder, id)
		}
		itemsBySection[id] = append(itemsBySection[id], item)
	}

	var sections []domain.MenuSection
	for _, id := range sectionOrder {
		meta, ok := day.SectionInfo[id]
		if !ok || meta.SectionOptions.DisplayName == "" {
			continue
		}
		name := meta.SectionOptions.DisplayName
		var items []domain.MenuItem
		for _, raw := range itemsBySection[id] {
			if mi, ok := menuItem(raw.Food, name); ok {
				items = append(items, mi)
			}
		}
		if len(items) == 0 {
			continue
		}
		sections = append(sections, domain.MenuSection{Name: name, Items: items})
	}
	return sections
}

// menuItem converts one dish, applying the station-row filters: rows whose
// name merely repeats the section, and "per customer" serving rows, carry
// no food data worth indexing.
func menuItem(food *provider.Food, sectionName string) (domain.MenuItem, bool) {
	name := strings.TrimSpace(food.Name)
	if name == "" || strings.EqualFold(name, strings.TrimSpace(sectionName)) {
		return domain.MenuItem{}, false
	}

	servingText := servingSizeText(food.ServingSize)
	if strings.Contains(strings.ToLower(servingText), "customer") {
		return domain.MenuItem{}, false
	}

	var labels []string
	for _, icon := range food.Icons.FoodIcons {
		if icon.IsFilter || icon.IsHighlight {
			labels = append(labels, icon.Label())
		}
	}

	return domain.MenuItem{
		Name:           name,
		Description:    cleanDescription(food.Description),
		Nutrition:      NormalizeNutrition(food.Nutrition),
		ServingSize:    servingText,
		ServingWeightG: ServingWeightG(food.ServingSize),
		DietTags:       CanonicalDietTags(labels),
		VendorID:       food.SyncedID.String(),
	}, true
}

// servingSizeText renders the provider's textual serving descriptor.
func servingSizeText(s *provider.ServingSize) string {
	if s == nil || s.Amount == 0 {
		return ""
	}
	amount := strconv.FormatFloat(float64(s.Amount), 'f', -1, 64)
	return strings.TrimSpace(amount + " " + strings.TrimSpace(s.Unit))
}
