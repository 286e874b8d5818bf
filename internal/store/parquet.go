package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"menupipe/internal/domain"
)

// NutritionRecord is the Parquet schema for the flattened analytics export:
// one row per menu item per day.
type NutritionRecord struct {
	Date           string  `parquet:"date"`
	Location       string  `parquet:"location"`
	Meal           string  `parquet:"meal"`
	Section        string  `parquet:"section"`
	Item           string  `parquet:"item"`
	CaloriesKcal   float64 `parquet:"calories_kcal"`
	ProteinG       float64 `parquet:"protein_g"`
	CarbohydrateG  float64 `parquet:"carbohydrate_g"`
	FatG           float64 `parquet:"fat_g"`
	SodiumMg       float64 `parquet:"sodium_mg"`
	FiberG         float64 `parquet:"fiber_g"`
	SugarG         float64 `parquet:"sugar_g"`
	ServingWeightG float64 `parquet:"serving_weight_g"`
	DietTags       string  `parquet:"diet_tags"` // comma-joined canonical tags
}

// NutritionExporter flattens canonical documents into one Parquet file per
// serving week for downstream analysis. The export is a side artifact: it
// never feeds back into the pipeline.
type NutritionExporter struct {
	dir string
}

// NewNutritionExporter creates an exporter rooted at <dataDir>/analytics.
func NewNutritionExporter(dataDir string) *NutritionExporter {
	return &NutritionExporter{dir: filepath.Join(dataDir, "analytics")}
}

// WriteWeek writes the flattened rows for one week's documents to
// <dir>/<weekStart>.parquet, replacing any previous export for that week.
func (e *NutritionExporter) WriteWeek(weekStart time.Time, docs []*domain.MenuDocument) error {
	records := Flatten(docs)
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("creating analytics dir: %w", err)
	}
	path := filepath.Join(e.dir, weekStart.Format(domain.DateLayout)+".parquet")
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing nutrition export %s: %w", path, err)
	}
	return nil
}

// Flatten converts documents into per-item nutrition rows, preserving
// document and serving-line order.
func Flatten(docs []*domain.MenuDocument) []NutritionRecord {
	var records []NutritionRecord
	for _, doc := range docs {
		for _, sec := range doc.Sections {
			for _, item := range sec.Items {
				tags := make([]string, len(item.DietTags))
				for i, t := range item.DietTags {
					tags[i] = string(t)
				}
				records = append(records, NutritionRecord{
					Date:           doc.Date,
					Location:       doc.Location,
					Meal:           string(doc.Meal),
					Section:        sec.Name,
					Item:           item.Name,
					CaloriesKcal:   item.Nutrition.CaloriesKcal,
					ProteinG:       item.Nutrition.ProteinG,
					CarbohydrateG:  item.Nutrition.CarbohydrateG,
					FatG:           item.Nutrition.FatG,
					SodiumMg:       item.Nutrition.SodiumMg,
					FiberG:         item.Nutrition.FiberG,
					SugarG:         item.Nutrition.SugarG,
					ServingWeightG: item.ServingWeightG,
					DietTags:       strings.Join(tags, ","),
				})
			}
		}
	}
	return records
}
