package window

import (
	"testing"
	"time"

	"menupipe/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeMidweek(t *testing.T) {
	// 2025-08-06 is a Wednesday; the week began Sunday 2025-08-03.
	w := Compute(time.Date(2025, 8, 6, 14, 30, 0, 0, time.UTC))

	if !w.Today.Equal(date(2025, 8, 6)) {
		t.Errorf("Today = %v, want 2025-08-06", w.Today)
	}
	if !w.Yesterday.Equal(date(2025, 8, 5)) {
		t.Errorf("Yesterday = %v, want 2025-08-05", w.Yesterday)
	}
	if !w.ThisWeekStart.Equal(date(2025, 8, 3)) {
		t.Errorf("ThisWeekStart = %v, want 2025-08-03", w.ThisWeekStart)
	}
	if !w.PreviousWeekStart.Equal(date(2025, 7, 27)) {
		t.Errorf("PreviousWeekStart = %v, want 2025-07-27", w.PreviousWeekStart)
	}
}

func TestComputeOnWeekStart(t *testing.T) {
	// Reference date is itself a Sunday: the week start is that same day.
	w := Compute(date(2025, 8, 3))
	if !w.ThisWeekStart.Equal(date(2025, 8, 3)) {
		t.Errorf("ThisWeekStart = %v, want 2025-08-03 (inclusive of today)", w.ThisWeekStart)
	}
	if !w.PreviousWeekStart.Equal(date(2025, 7, 27)) {
		t.Errorf("PreviousWeekStart = %v, want 2025-07-27", w.PreviousWeekStart)
	}
}

func TestComputeOnSaturday(t *testing.T) {
	// Saturday belongs to the week that started six days earlier.
	w := Compute(date(2025, 8, 9))
	if !w.ThisWeekStart.Equal(date(2025, 8, 3)) {
		t.Errorf("ThisWeekStart = %v, want 2025-08-03", w.ThisWeekStart)
	}
}

func TestPreviousWeekDates(t *testing.T) {
	w := Compute(date(2025, 8, 10))
	days := w.PreviousWeekDates()
	if len(days) != 7 {
		t.Fatalf("got %d dates, want 7", len(days))
	}
	if !days[0].Equal(date(2025, 8, 3)) {
		t.Errorf("first retired day = %v, want 2025-08-03", days[0])
	}
	if !days[6].Equal(date(2025, 8, 9)) {
		t.Errorf("last retired day = %v, want 2025-08-09", days[6])
	}
	// The following week must not appear in the retired range.
	for _, d := range days {
		if !d.Before(date(2025, 8, 10)) {
			t.Errorf("retired range includes %v, which is in the active week", d)
		}
	}
}

func TestComputeRespectsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 03:00 UTC on Aug 7 is still Aug 6 in Chicago.
	ref := time.Date(2025, 8, 7, 3, 0, 0, 0, time.UTC).In(loc)
	w := Compute(ref)
	if got := w.Today.Format(domain.DateLayout); got != "2025-08-06" {
		t.Errorf("Today = %s, want 2025-08-06 in local time", got)
	}
}

func TestScopeInjectiveOverDates(t *testing.T) {
	seen := make(map[string]time.Time)
	d := date(2024, 1, 1)
	for i := 0; i < 730; i++ {
		scope := domain.ScopeForDate(d)
		if prev, ok := seen[scope]; ok {
			t.Fatalf("scope %q produced by both %v and %v", scope, prev, d)
		}
		seen[scope] = d
		d = d.AddDate(0, 0, 1)
	}
}
