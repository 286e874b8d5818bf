// Package store persists canonical menu documents. Documents live as JSON
// files whose names embed the (location, meal, date) identity, mirrored by
// a SQLite manifest that maps the identity triple to its document handle.
// The manifest is authoritative for selection; filenames are kept for
// external tooling that still globs by date suffix.
package store

import (
	"context"
	"time"

	"menupipe/internal/domain"
)

// DocumentStore persists and retires canonical menu documents.
type DocumentStore interface {
	// Save persists a document, replacing any previous document with the
	// same (location, meal, date) identity. It returns the document handle.
	Save(ctx context.Context, doc *domain.MenuDocument) (string, error)

	// ListByDate returns every document whose embedded date equals date.
	ListByDate(ctx context.Context, date time.Time) ([]*domain.MenuDocument, error)

	// RetireDocuments deletes every document dated within [from, to]
	// inclusive and returns the number removed. Absent documents are not an
	// error; the operation is idempotent.
	RetireDocuments(ctx context.Context, from, to time.Time) (int, error)
}
