package transform

import (
	"math"
	"strings"

	"menupipe/internal/domain"
	"menupipe/internal/provider"
)

// gramsPerOunce is the avoirdupois conversion factor used when the
// provider reports serving weight in ounces.
const gramsPerOunce = 28.3495

// OzToGrams converts ounces to grams, rounded to 0.1 g.
func OzToGrams(oz float64) float64 {
	return round1(oz * gramsPerOunce)
}

// round1 rounds to one decimal place. All weight-bearing fields pass
// through it, so normalizing an already-normalized value is a no-op.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// NormalizeNutrition converts a provider nutrition block into canonical
// units: whole kcal for calories, grams to 0.1 g, sodium in milligrams.
// The function is idempotent over its own output.
func NormalizeNutrition(n provider.RoundedNutrition) domain.Nutrition {
	return domain.Nutrition{
		CaloriesKcal:  math.Round(float64(n.Calories)),
		ProteinG:      round1(float64(n.ProteinG)),
		CarbohydrateG: round1(float64(n.CarbsG)),
		FatG:          round1(float64(n.FatG)),
		SodiumMg:      math.Round(float64(n.SodiumMg)),
		FiberG:        round1(float64(n.FiberG)),
		SugarG:        round1(float64(n.SugarG)),
	}
}

// ServingWeightG resolves the numeric serving weight in grams. The
// provider's gram field wins; an ounce-denominated amount is converted;
// anything else yields zero (unknown).
func ServingWeightG(s *provider.ServingSize) float64 {
	if s == nil {
		return 0
	}
	if s.Grams > 0 {
		return round1(float64(s.Grams))
	}
	if s.Amount > 0 && strings.HasPrefix(strings.ToLower(strings.TrimSpace(s.Unit)), "oz") {
		return OzToGrams(float64(s.Amount))
	}
	return 0
}

// dietTagMap maps provider dietary labels to the canonical vocabulary.
// Labels outside the map are dropped, never invented.
var dietTagMap = map[string]domain.DietTag{
	"vegetarian":      domain.DietVegetarian,
	"vegan":           domain.DietVegan,
	"gluten-free":     domain.DietGlutenFree,
	"gluten_free":     domain.DietGlutenFree,
	"avoiding-gluten": domain.DietGlutenFree,
	"halal":           domain.DietHalal,
	"kosher":          domain.DietKosher,
	"dairy-free":      domain.DietDairyFree,
	"lactose-free":    domain.DietDairyFree,
	"nut-free":        domain.DietNutFree,
	"peanut-free":     domain.DietNutFree,
}

// CanonicalDietTags maps provider labels into the fixed vocabulary,
// deduplicated and order-preserving. Unrecognized labels are dropped.
func CanonicalDietTags(labels []string) []domain.DietTag {
	var tags []domain.DietTag
	seen := make(map[domain.DietTag]struct{})
	for _, label := range labels {
		tag, ok := dietTagMap[strings.ToLower(strings.TrimSpace(label))]
		if !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// cleanDescription strips provider boilerplate ("prep time", "cook time")
// and collapses whitespace.
func cleanDescription(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, bad := range []string{"prep time", "cook time"} {
		for {
			idx := strings.Index(lower, bad)
			if idx < 0 {
				break
			}
			text = text[:idx] + text[idx+len(bad):]
			lower = lower[:idx] + lower[idx+len(bad):]
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
