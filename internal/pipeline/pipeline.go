// Package pipeline orchestrates the ingestion run as an explicit state
// machine. Two cadences share the machine: the daily run refreshes the index
// from already-persisted documents, the weekly run prunes the previous week,
// fetches the new one, and loads it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"menupipe/internal/domain"
	"menupipe/internal/gather"
	"menupipe/internal/index"
	"menupipe/internal/metrics"
	"menupipe/internal/provider"
	"menupipe/internal/store"
	"menupipe/internal/transform"
	"menupipe/internal/window"
)

// ErrNoDocuments is the fatal zero-documents condition: a run that would
// leave the index empty for its target date refuses to touch the index at
// all.
var ErrNoDocuments = errors.New("no menu documents for target date")

// State names one phase of a run.
type State string

const (
	StateIdle         State = "idle"
	StatePruning      State = "pruning"
	StateFetching     State = "fetching"
	StateTransforming State = "transforming"
	StateLoading      State = "loading"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Fetcher is the fetch stage. *gather.Fetcher is the production
// implementation.
type Fetcher interface {
	FetchAll(ctx context.Context, units []domain.FetchUnit) gather.Result
}

// Pipeline wires the stages together and tracks run state.
type Pipeline struct {
	fetcher   Fetcher
	store     store.DocumentStore
	index     index.Store
	exporter  *store.NutritionExporter
	metrics   *metrics.Metrics
	locations []string
	meals     []domain.MealType
	log       *slog.Logger

	mu    sync.Mutex
	state State
}

// New assembles a Pipeline. exporter may be nil to skip the analytics
// export.
func New(fetcher Fetcher, docs store.DocumentStore, idx index.Store, exporter *store.NutritionExporter, m *metrics.Metrics, locations []string, meals []domain.MealType) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		store:     docs,
		index:     idx,
		exporter:  exporter,
		metrics:   m,
		locations: locations,
		meals:     meals,
		log:       slog.Default().With("component", "pipeline"),
		state:     StateIdle,
	}
}

// State returns the current run state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) transition(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.log.Info("state", "state", string(s))
}

// RunDaily refreshes the index for the reference date: it loads today's
// persisted documents under today's scope after retiring yesterday's scope.
// If no documents exist for today the run fails before touching the index.
func (p *Pipeline) RunDaily(ctx context.Context, ref time.Time) error {
	start := time.Now()
	err := p.runDaily(ctx, ref)
	p.metrics.ObserveRun(start, err)
	if err != nil {
		p.transition(StateFailed)
		return err
	}
	p.transition(StateDone)
	return nil
}

func (p *Pipeline) runDaily(ctx context.Context, ref time.Time) error {
	w := window.Compute(ref)

	p.transition(StateLoading)
	docs, err := p.store.ListByDate(ctx, w.Today)
	if err != nil {
		return fmt.Errorf("listing documents for %s: %w", w.Today.Format(domain.DateLayout), err)
	}
	// The zero check comes before any index mutation: failing here leaves
	// yesterday's data serving instead of an empty index.
	if len(docs) == 0 {
		return fmt.Errorf("%w: %s", ErrNoDocuments, w.Today.Format(domain.DateLayout))
	}

	yesterdayScope := domain.ScopeForDate(w.Yesterday)
	if err := p.index.DeleteScope(ctx, yesterdayScope); err != nil {
		// Stale points are preferable to a dead run; the next delete
		// sweeps them.
		p.log.Warn("could not retire previous scope", "scope", yesterdayScope, "err", err)
	}

	scope := domain.ScopeForDate(w.Today)
	stats, err := p.index.Load(ctx, docs, scope)
	if err != nil {
		return fmt.Errorf("loading scope %s: %w", scope, err)
	}
	p.metrics.DocumentsLoaded.Add(float64(stats.Loaded))
	p.log.Info("daily run complete", "scope", scope, "loaded", stats.Loaded)
	return nil
}

// RunWeekly ingests the serving week containing the reference date: prune
// the previous week's documents, fetch and transform the new week, persist
// it, export analytics, and load the week-start scope. Individual unit
// failures are tolerated; producing zero documents is fatal.
func (p *Pipeline) RunWeekly(ctx context.Context, ref time.Time) error {
	start := time.Now()
	err := p.runWeekly(ctx, ref)
	p.metrics.ObserveRun(start, err)
	if err != nil {
		p.transition(StateFailed)
		return err
	}
	p.transition(StateDone)
	return nil
}

func (p *Pipeline) runWeekly(ctx context.Context, ref time.Time) error {
	w := window.Compute(ref)

	// Prune first. Retiring the old week before fetching keeps disk usage
	// bounded even when the fetch stage fails outright.
	p.transition(StatePruning)
	prevEnd := w.PreviousWeekStart.AddDate(0, 0, 6)
	removed, err := p.store.RetireDocuments(ctx, w.PreviousWeekStart, prevEnd)
	if err != nil {
		return fmt.Errorf("retiring week of %s: %w", w.PreviousWeekStart.Format(domain.DateLayout), err)
	}
	p.metrics.DocumentsPruned.Add(float64(removed))
	p.log.Info("retired previous week",
		"week", w.PreviousWeekStart.Format(domain.DateLayout), "removed", removed)

	p.transition(StateFetching)
	units := p.weekUnits(w.ThisWeekStart)
	result := p.fetcher.FetchAll(ctx, units)
	p.metrics.UnitsFetched.WithLabelValues("ok").Add(float64(len(result.Successes)))
	p.metrics.UnitsFetched.WithLabelValues("closed").Add(float64(len(result.Empties)))
	p.metrics.UnitsFetched.WithLabelValues("failed").Add(float64(len(result.Failures)))

	p.transition(StateTransforming)
	docs := p.transformAll(result.Successes, w)
	for _, doc := range docs {
		if _, err := p.store.Save(ctx, doc); err != nil {
			return fmt.Errorf("saving document %s: %w", doc.ID(), err)
		}
	}
	p.metrics.DocumentsSaved.Add(float64(len(docs)))
	if len(docs) == 0 {
		return fmt.Errorf("%w: week of %s", ErrNoDocuments, w.ThisWeekStart.Format(domain.DateLayout))
	}

	if p.exporter != nil {
		if err := p.exporter.WriteWeek(w.ThisWeekStart, docs); err != nil {
			// The export is a side artifact; a failed one never fails
			// ingestion.
			p.log.Warn("nutrition export failed", "err", err)
		}
	}

	p.transition(StateLoading)
	scope := domain.ScopeForDate(w.ThisWeekStart)
	stats, err := p.index.Load(ctx, docs, scope)
	if err != nil {
		return fmt.Errorf("loading scope %s: %w", scope, err)
	}
	p.metrics.DocumentsLoaded.Add(float64(stats.Loaded))
	p.log.Info("weekly run complete",
		"week", w.ThisWeekStart.Format(domain.DateLayout),
		"documents", len(docs), "loaded", stats.Loaded,
		"failed_units", len(result.Failures))
	return nil
}

// weekUnits builds the fetch cross product for one serving week. The
// provider answers a whole week per request, so the date axis is just the
// week start.
func (p *Pipeline) weekUnits(weekStart time.Time) []domain.FetchUnit {
	units := make([]domain.FetchUnit, 0, len(p.locations)*len(p.meals))
	for _, loc := range p.locations {
		for _, meal := range p.meals {
			units = append(units, domain.FetchUnit{Location: loc, Meal: meal, Date: weekStart})
		}
	}
	return units
}

// transformAll converts fetched payloads into canonical documents, keeping
// only dates inside the active week. A payload that fails to transform is
// logged and skipped, mirroring the fetch stage's partial-failure rule.
func (p *Pipeline) transformAll(raws []*provider.RawMenu, w window.Window) []*domain.MenuDocument {
	inWeek := make(map[string]bool, 7)
	for _, d := range w.ThisWeekDates() {
		inWeek[d.Format(domain.DateLayout)] = true
	}
	var docs []*domain.MenuDocument
	for _, raw := range raws {
		converted, err := transform.Documents(raw)
		if err != nil {
			p.log.Error("transform failed", "unit", raw.Unit.String(), "err", err)
			continue
		}
		for _, doc := range converted {
			if !inWeek[doc.Date] {
				continue
			}
			docs = append(docs, doc)
		}
	}
	return docs
}
