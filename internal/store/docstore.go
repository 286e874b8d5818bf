package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"menupipe/internal/domain"
)

// Compile-time interface check.
var _ DocumentStore = (*FSStore)(nil)

// FSStore implements DocumentStore with one JSON file per document under
// <dataDir>/documents, plus a SQLite manifest. File names embed the
// identity triple: <location>_<meal>_<date>.json.
type FSStore struct {
	dir      string
	manifest *Manifest
	log      *slog.Logger
}

// NewFSStore creates an FSStore rooted at dataDir, creating the documents
// directory if needed.
func NewFSStore(dataDir string, manifest *Manifest) (*FSStore, error) {
	dir := filepath.Join(dataDir, "documents")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating documents dir: %w", err)
	}
	return &FSStore{
		dir:      dir,
		manifest: manifest,
		log:      slog.Default().With("component", "docstore"),
	}, nil
}

// Save writes the document and records it in the manifest. A document with
// the same identity is overwritten, keeping the at-most-one invariant per
// (location, meal, date).
func (s *FSStore) Save(ctx context.Context, doc *domain.MenuDocument) (string, error) {
	path := filepath.Join(s.dir, doc.ID()+".json")

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding document %s: %w", doc.ID(), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing document %s: %w", doc.ID(), err)
	}

	err = s.manifest.Upsert(ctx, ManifestEntry{
		Location: doc.Location,
		Meal:     doc.Meal,
		Date:     doc.Date,
		Path:     path,
		Sections: len(doc.Sections),
		Items:    doc.ItemCount(),
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// ListByDate loads every document dated exactly date. Selection goes
// through the manifest; when the manifest has no rows for the date, it
// falls back to a filename glob so documents written by external tooling
// are still found.
func (s *FSStore) ListByDate(ctx context.Context, date time.Time) ([]*domain.MenuDocument, error) {
	entries, err := s.manifest.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	var paths []string
	if len(entries) > 0 {
		for _, e := range entries {
			paths = append(paths, e.Path)
		}
	} else {
		pattern := filepath.Join(s.dir, "*_"+date.Format(domain.DateLayout)+".json")
		paths, err = filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("globbing documents: %w", err)
		}
	}

	var docs []*domain.MenuDocument
	for _, path := range paths {
		doc, err := readDocument(path)
		if err != nil {
			// A single unreadable file must not sink the batch.
			s.log.Error("skipping unreadable document", "path", path, "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// RetireDocuments deletes every document dated within [from, to] inclusive,
// along with its manifest row. Files already gone are tolerated: retirement
// is idempotent, and re-running it against an empty range is a no-op.
func (s *FSStore) RetireDocuments(ctx context.Context, from, to time.Time) (int, error) {
	entries, err := s.manifest.ListRange(ctx, from, to)
	if err != nil {
		return 0, err
	}

	targets := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		targets[e.Path] = struct{}{}
	}
	// Sweep the glob too, catching files the manifest never saw.
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		pattern := filepath.Join(s.dir, "*_"+d.Format(domain.DateLayout)+".json")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return 0, fmt.Errorf("globbing documents: %w", err)
		}
		for _, m := range matches {
			targets[m] = struct{}{}
		}
	}

	removed := 0
	for path := range targets {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
		case os.IsNotExist(err):
			// Already gone.
		default:
			s.log.Error("could not delete document", "path", path, "err", err)
		}
	}

	if _, err := s.manifest.DeleteRange(ctx, from, to); err != nil {
		return removed, err
	}
	return removed, nil
}

func readDocument(path string) (*domain.MenuDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc domain.MenuDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &doc, nil
}
