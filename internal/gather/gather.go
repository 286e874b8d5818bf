// Package gather runs the fetch stage: one provider request per
// (location, meal, date) unit, fanned out over a bounded worker pool.
// Units are independent; the only shared state is an append-only result
// collector.
package gather

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"menupipe/internal/domain"
	"menupipe/internal/provider"
	"menupipe/internal/util"
)

// MenuFetcher issues one provider request for a unit. *provider.Client is
// the production implementation.
type MenuFetcher interface {
	Fetch(ctx context.Context, unit domain.FetchUnit) (*provider.RawMenu, error)
}

// UnitError records a failed unit together with its error. Failures never
// abort sibling units; they are reported here and logged.
type UnitError struct {
	Unit domain.FetchUnit
	Err  error
}

// Result partitions a batch of fetched units.
type Result struct {
	Successes []*provider.RawMenu
	Empties   []domain.FetchUnit
	Failures  []UnitError
}

// Fetcher fans fetch units out over a worker pool with retry and rate
// limiting on each provider call.
type Fetcher struct {
	client     MenuFetcher
	maxWorkers int
	attempts   int
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewFetcher creates a Fetcher. maxWorkers bounds concurrency; attempts is
// the per-unit try count for transport errors; perMinute throttles the
// aggregate request rate.
func NewFetcher(client MenuFetcher, maxWorkers, attempts, perMinute int) *Fetcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Fetcher{
		client:     client,
		maxWorkers: maxWorkers,
		attempts:   attempts,
		limiter:    util.NewRateLimiter(perMinute, maxWorkers),
		log:        slog.Default().With("component", "fetcher"),
	}
}

// FetchAll fetches every unit and returns the partitioned outcome. A unit
// that keeps failing after retries is recorded and skipped; a closed or
// empty payload is intentional absence, not a failure. Order within each
// partition is unspecified.
func (f *Fetcher) FetchAll(ctx context.Context, units []domain.FetchUnit) Result {
	unitCh := make(chan domain.FetchUnit, len(units))
	for _, u := range units {
		unitCh <- u
	}
	close(unitCh)

	var (
		mu     sync.Mutex
		result Result
		wg     sync.WaitGroup
	)

	workers := f.maxWorkers
	if len(units) < workers {
		workers = len(units)
	}
	start := time.Now()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range unitCh {
				if ctx.Err() != nil {
					return
				}
				raw, err := f.fetchOne(ctx, unit)

				mu.Lock()
				switch {
				case err != nil:
					result.Failures = append(result.Failures, UnitError{Unit: unit, Err: err})
				case raw.Closed:
					result.Empties = append(result.Empties, unit)
				default:
					result.Successes = append(result.Successes, raw)
				}
				mu.Unlock()

				switch {
				case err != nil:
					f.log.Error("unit fetch failed", "unit", unit.String(), "err", err)
				case raw.Closed:
					f.log.Info("unit closed", "unit", unit.String(), "reason", raw.Reason)
				}
			}
		}()
	}

	wg.Wait()

	f.log.Info("fetch complete",
		"units", len(units),
		"successes", len(result.Successes),
		"empties", len(result.Empties),
		"failures", len(result.Failures),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result
}

// fetchOne performs the rate-limited, retried provider call for one unit.
func (f *Fetcher) fetchOne(ctx context.Context, unit domain.FetchUnit) (*provider.RawMenu, error) {
	var raw *provider.RawMenu
	err := util.Retry(ctx, f.attempts, 500*time.Millisecond, 10*time.Second, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		raw, err = f.client.Fetch(ctx, unit)
		return err
	})
	return raw, err
}
