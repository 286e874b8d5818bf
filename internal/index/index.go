// Package index loads canonical menu documents into the external vector
// index. Every load recomputes embeddings from document text; points carry a
// scope tag so a whole load can be retired with one filtered delete.
package index

import (
	"context"
	"strings"

	"menupipe/internal/domain"
)

// Embedder turns text into vectors.
type Embedder interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the vector size the embedder produces.
	Dimensions() int
}

// LoadStats summarizes one load call.
type LoadStats struct {
	Attempted int
	Loaded    int
}

// Store is the external index the pipeline loads documents into.
type Store interface {
	// Load embeds and upserts every document under the given scope tag.
	// Re-loading the same documents under the same scope replaces the prior
	// points instead of duplicating them.
	Load(ctx context.Context, docs []*domain.MenuDocument, scope string) (LoadStats, error)

	// DeleteScope removes every point tagged with scope. Deleting an absent
	// scope is a no-op.
	DeleteScope(ctx context.Context, scope string) error

	Close() error
}

// DocumentText renders a document into the flat text that gets embedded:
// location and meal, then each section name followed by its items with
// descriptions and diet tags.
func DocumentText(doc *domain.MenuDocument) string {
	var b strings.Builder
	b.WriteString(doc.Location)
	b.WriteString(" ")
	b.WriteString(string(doc.Meal))
	b.WriteString(" menu for ")
	b.WriteString(doc.Date)
	for _, sec := range doc.Sections {
		b.WriteString("\n")
		b.WriteString(sec.Name)
		for _, item := range sec.Items {
			b.WriteString("\n")
			b.WriteString(item.Name)
			if item.Description != "" {
				b.WriteString(": ")
				b.WriteString(item.Description)
			}
			for _, tag := range item.DietTags {
				b.WriteString(" ")
				b.WriteString(string(tag))
			}
		}
	}
	return b.String()
}
