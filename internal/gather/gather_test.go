package gather

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"menupipe/internal/domain"
	"menupipe/internal/provider"
)

// scriptedClient returns canned outcomes per unit: "closed" units report
// intentional absence, "fail" units always error, everything else succeeds.
type scriptedClient struct {
	closed map[string]bool
	fail   map[string]bool
	calls  atomic.Int64
}

func (s *scriptedClient) Fetch(_ context.Context, unit domain.FetchUnit) (*provider.RawMenu, error) {
	s.calls.Add(1)
	switch {
	case s.fail[unit.Location]:
		return nil, fmt.Errorf("connection refused")
	case s.closed[unit.Location]:
		return &provider.RawMenu{Unit: unit, Closed: true, Reason: "no menu items"}, nil
	default:
		return &provider.RawMenu{Unit: unit, Week: &provider.WeekMenu{LocationSlug: unit.Location}}, nil
	}
}

func units(locations []string, meals []domain.MealType) []domain.FetchUnit {
	date := time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC)
	var out []domain.FetchUnit
	for _, loc := range locations {
		for _, meal := range meals {
			out = append(out, domain.FetchUnit{Location: loc, Meal: meal, Date: date})
		}
	}
	return out
}

var allMeals = []domain.MealType{domain.MealBreakfast, domain.MealLunch, domain.MealDinner}

func TestFetchAllAllOpen(t *testing.T) {
	// 5 locations x 3 meals, all open: 15 successes.
	client := &scriptedClient{}
	f := NewFetcher(client, 4, 1, 6000)

	res := f.FetchAll(context.Background(), units([]string{"a", "b", "c", "d", "e"}, allMeals))

	if len(res.Successes) != 15 {
		t.Errorf("successes = %d, want 15", len(res.Successes))
	}
	if len(res.Empties) != 0 || len(res.Failures) != 0 {
		t.Errorf("empties = %d, failures = %d, want 0/0", len(res.Empties), len(res.Failures))
	}
}

func TestFetchAllClosedUnitIsNotFailure(t *testing.T) {
	client := &scriptedClient{closed: map[string]bool{"e": true}}
	f := NewFetcher(client, 4, 1, 6000)

	res := f.FetchAll(context.Background(), units([]string{"a", "b", "c", "d", "e"}, allMeals))

	if len(res.Successes) != 12 {
		t.Errorf("successes = %d, want 12", len(res.Successes))
	}
	if len(res.Empties) != 3 {
		t.Errorf("empties = %d, want 3", len(res.Empties))
	}
	if len(res.Failures) != 0 {
		t.Errorf("failures = %d, want 0", len(res.Failures))
	}
}

func TestFetchAllFailureDoesNotAbortSiblings(t *testing.T) {
	client := &scriptedClient{fail: map[string]bool{"b": true}}
	f := NewFetcher(client, 2, 1, 6000)

	res := f.FetchAll(context.Background(), units([]string{"a", "b", "c"}, allMeals))

	if len(res.Failures) != 3 {
		t.Fatalf("failures = %d, want 3", len(res.Failures))
	}
	if len(res.Successes) != 6 {
		t.Errorf("successes = %d, want 6 despite sibling failures", len(res.Successes))
	}
	for _, fe := range res.Failures {
		if fe.Unit.Location != "b" {
			t.Errorf("unexpected failed unit %s", fe.Unit)
		}
		if fe.Err == nil {
			t.Error("failure without error")
		}
	}
}

func TestFetchAllRetriesTransportErrors(t *testing.T) {
	client := &scriptedClient{fail: map[string]bool{"a": true}}
	f := NewFetcher(client, 1, 3, 6000)

	f.FetchAll(context.Background(), units([]string{"a"}, []domain.MealType{domain.MealLunch}))

	if got := client.calls.Load(); got != 3 {
		t.Errorf("provider called %d times, want 3 attempts", got)
	}
}

func TestFetchAllEmptyInput(t *testing.T) {
	f := NewFetcher(&scriptedClient{}, 4, 1, 6000)
	res := f.FetchAll(context.Background(), nil)
	if len(res.Successes)+len(res.Empties)+len(res.Failures) != 0 {
		t.Error("empty input should produce empty result")
	}
}
