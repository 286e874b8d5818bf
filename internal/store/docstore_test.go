package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"menupipe/internal/domain"
)

func newTestStore(t *testing.T) (*FSStore, *Manifest, string) {
	t.Helper()
	dir := t.TempDir()
	manifest, err := OpenManifest(filepath.Join(dir, "manifest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { manifest.Close() })
	fs, err := NewFSStore(dir, manifest)
	if err != nil {
		t.Fatal(err)
	}
	return fs, manifest, dir
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func testDoc(t *testing.T, location string, meal domain.MealType, day string) *domain.MenuDocument {
	t.Helper()
	return domain.NewMenuDocument(location, meal, date(t, day), []domain.MenuSection{{
		Name: "Grill",
		Items: []domain.MenuItem{
			{Name: "Grilled Chicken", Nutrition: domain.Nutrition{CaloriesKcal: 250}},
			{Name: "Veggie Burger"},
		},
	}})
}

func TestSaveListRoundTrip(t *testing.T) {
	fs, _, _ := newTestStore(t)
	ctx := context.Background()

	doc := testDoc(t, "north-market", domain.MealLunch, "2025-08-04")
	path, err := fs.Save(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "north-market_lunch_2025-08-04.json" {
		t.Errorf("path = %q, identity not embedded in filename", path)
	}

	got, err := fs.ListByDate(ctx, date(t, "2025-08-04"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d documents, want 1", len(got))
	}
	if got[0].ID() != doc.ID() {
		t.Errorf("ID = %q, want %q", got[0].ID(), doc.ID())
	}
	if got[0].ItemCount() != 2 {
		t.Errorf("item count = %d, want 2", got[0].ItemCount())
	}

	// Another date yields nothing.
	empty, err := fs.ListByDate(ctx, date(t, "2025-08-05"))
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d documents for unsaved date, want 0", len(empty))
	}
}

func TestSaveReplacesSameIdentity(t *testing.T) {
	fs, manifest, _ := newTestStore(t)
	ctx := context.Background()

	first := testDoc(t, "north-market", domain.MealLunch, "2025-08-04")
	if _, err := fs.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := domain.NewMenuDocument("north-market", domain.MealLunch, date(t, "2025-08-04"),
		[]domain.MenuSection{{Name: "Garden", Items: []domain.MenuItem{{Name: "Salad"}}}})
	if _, err := fs.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	entries, err := manifest.ListByDate(ctx, date(t, "2025-08-04"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d manifest rows, want 1 after replace", len(entries))
	}
	if entries[0].Items != 1 {
		t.Errorf("manifest items = %d, want counts from the replacement", entries[0].Items)
	}

	docs, err := fs.ListByDate(ctx, date(t, "2025-08-04"))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Sections[0].Name != "Garden" {
		t.Errorf("listed document not the replacement: %+v", docs)
	}
}

func TestListByDateGlobFallback(t *testing.T) {
	fs, _, _ := newTestStore(t)
	ctx := context.Background()

	// Write a file directly, bypassing the manifest, the way external
	// tooling would.
	doc := testDoc(t, "west-wing", domain.MealDinner, "2025-08-06")
	data := []byte(`{"@context":"https://schema.org","@type":"Menu","location":"west-wing","meal":"dinner","date":"2025-08-06"}`)
	if err := os.WriteFile(filepath.Join(fs.dir, doc.ID()+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := fs.ListByDate(ctx, date(t, "2025-08-06"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Location != "west-wing" {
		t.Fatalf("glob fallback missed the file: %+v", got)
	}
}

func TestRetireDocumentsSparesFollowingWeek(t *testing.T) {
	fs, _, _ := newTestStore(t)
	ctx := context.Background()

	// One document per day across the retired week, plus one in the week
	// after it.
	for d := date(t, "2025-08-03"); !d.After(date(t, "2025-08-09")); d = d.AddDate(0, 0, 1) {
		if _, err := fs.Save(ctx, testDoc(t, "north-market", domain.MealLunch, d.Format(domain.DateLayout))); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := fs.Save(ctx, testDoc(t, "north-market", domain.MealLunch, "2025-08-10")); err != nil {
		t.Fatal(err)
	}

	removed, err := fs.RetireDocuments(ctx, date(t, "2025-08-03"), date(t, "2025-08-09"))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 7 {
		t.Errorf("removed = %d, want 7", removed)
	}

	for d := date(t, "2025-08-03"); !d.After(date(t, "2025-08-09")); d = d.AddDate(0, 0, 1) {
		docs, err := fs.ListByDate(ctx, d)
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 0 {
			t.Errorf("documents dated %s survived retirement", d.Format(domain.DateLayout))
		}
	}

	// The boundary: the first day of the following week is untouched.
	survivors, err := fs.ListByDate(ctx, date(t, "2025-08-10"))
	if err != nil {
		t.Fatal(err)
	}
	if len(survivors) != 1 {
		t.Fatalf("document dated 2025-08-10 did not survive the prior-week retirement")
	}
}

func TestRetireDocumentsIdempotent(t *testing.T) {
	fs, _, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := fs.Save(ctx, testDoc(t, "north-market", domain.MealBreakfast, "2025-08-04")); err != nil {
		t.Fatal(err)
	}

	first, err := fs.RetireDocuments(ctx, date(t, "2025-08-03"), date(t, "2025-08-09"))
	if err != nil {
		t.Fatal(err)
	}
	if first != 1 {
		t.Errorf("first retirement removed %d, want 1", first)
	}

	second, err := fs.RetireDocuments(ctx, date(t, "2025-08-03"), date(t, "2025-08-09"))
	if err != nil {
		t.Fatalf("second retirement errored: %v", err)
	}
	if second != 0 {
		t.Errorf("second retirement removed %d, want 0", second)
	}
}

func TestRetireDocumentsSweepsUnmanifestedFiles(t *testing.T) {
	fs, _, _ := newTestStore(t)
	ctx := context.Background()

	path := filepath.Join(fs.dir, "stray_lunch_2025-08-05.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := fs.RetireDocuments(ctx, date(t, "2025-08-03"), date(t, "2025-08-09"))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want the stray file swept", removed)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("stray file still present after retirement")
	}
}

func TestNutritionExporterFlatten(t *testing.T) {
	doc := testDoc(t, "north-market", domain.MealLunch, "2025-08-04")
	doc.Sections[0].Items[0].DietTags = []domain.DietTag{domain.DietHalal, domain.DietGlutenFree}

	records := Flatten([]*domain.MenuDocument{doc})
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	r := records[0]
	if r.Date != "2025-08-04" || r.Location != "north-market" || r.Meal != "lunch" {
		t.Errorf("identity columns = %s/%s/%s", r.Location, r.Meal, r.Date)
	}
	if r.Section != "Grill" || r.Item != "Grilled Chicken" {
		t.Errorf("row = %s/%s", r.Section, r.Item)
	}
	if r.CaloriesKcal != 250 {
		t.Errorf("calories = %v, want 250", r.CaloriesKcal)
	}
	if r.DietTags != "halal,gluten-free" {
		t.Errorf("diet tags = %q", r.DietTags)
	}
}

func TestNutritionExporterWriteWeek(t *testing.T) {
	dir := t.TempDir()
	exp := NewNutritionExporter(dir)

	week := date(t, "2025-08-03")
	doc := testDoc(t, "north-market", domain.MealLunch, "2025-08-04")
	if err := exp.WriteWeek(week, []*domain.MenuDocument{doc}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "analytics", "2025-08-03.parquet")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("export file is empty")
	}

	// No documents, no file.
	if err := exp.WriteWeek(date(t, "2025-08-10"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "analytics", "2025-08-10.parquet")); !os.IsNotExist(err) {
		t.Error("empty week still produced an export file")
	}
}
