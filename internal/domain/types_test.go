package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMenuDocumentID(t *testing.T) {
	doc := NewMenuDocument("north-market", MealLunch,
		time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC), nil)
	if doc.ID() != "north-market_lunch_2025-08-04" {
		t.Errorf("ID = %q", doc.ID())
	}
	// The identity triple round-trips through the name: distinct triples
	// give distinct IDs.
	other := NewMenuDocument("north-market", MealDinner,
		time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC), nil)
	if doc.ID() == other.ID() {
		t.Error("different meals produced the same ID")
	}
}

func TestMenuDocumentSchemaTags(t *testing.T) {
	doc := NewMenuDocument("north-market", MealLunch,
		time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC), nil)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"@context":"https://schema.org"`) {
		t.Errorf("missing @context: %s", data)
	}
	if !strings.Contains(string(data), `"@type":"Menu"`) {
		t.Errorf("missing @type: %s", data)
	}
}

func TestDietURIs(t *testing.T) {
	doc := NewMenuDocument("north-market", MealLunch,
		time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC),
		[]MenuSection{{
			Name: "Grill",
			Items: []MenuItem{
				{Name: "a", DietTags: []DietTag{DietVegan, DietHalal}},
				{Name: "b", DietTags: []DietTag{DietVegan}},
			},
		}})
	uris := doc.DietURIs()
	// Deduplicated and sorted.
	want := []string{"https://schema.org/HalalDiet", "https://schema.org/VeganDiet"}
	if len(uris) != len(want) {
		t.Fatalf("uris = %v, want %v", uris, want)
	}
	for i := range want {
		if uris[i] != want[i] {
			t.Errorf("uris[%d] = %q, want %q", i, uris[i], want[i])
		}
	}
}

func TestDietTagURIsComplete(t *testing.T) {
	tags := []DietTag{DietVegetarian, DietVegan, DietGlutenFree, DietHalal,
		DietKosher, DietDairyFree, DietNutFree}
	for _, tag := range tags {
		if tag.SchemaURI() == "" {
			t.Errorf("tag %q has no schema URI", tag)
		}
	}
	if DietTag("unknown").SchemaURI() != "" {
		t.Error("unknown tag mapped to a URI")
	}
}

func TestScopeForDate(t *testing.T) {
	d := time.Date(2025, 8, 4, 13, 45, 0, 0, time.UTC)
	if got := ScopeForDate(d); got != "menus_2025-08-04" {
		t.Errorf("scope = %q", got)
	}
}

func TestFetchUnitString(t *testing.T) {
	u := FetchUnit{
		Location: "north-market",
		Meal:     MealBreakfast,
		Date:     time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC),
	}
	if u.String() != "north-market/breakfast/2025-08-03" {
		t.Errorf("String = %q", u.String())
	}
}
