// Package window computes the rolling time window the pipeline operates on.
// All functions are pure: the reference time is always passed in by the
// caller, never read from the system clock, so every run is replayable.
package window

import "time"

// WeekStartDay is the configured first day of the serving week. The provider
// publishes weekly menus keyed by this weekday.
const WeekStartDay = time.Sunday

// Window is the set of dates derived from a single reference time. Dates are
// normalized to midnight in the reference time's location.
type Window struct {
	Today             time.Time
	Yesterday         time.Time
	ThisWeekStart     time.Time
	PreviousWeekStart time.Time
}

// Compute derives the active window from the reference time. ThisWeekStart is
// the most recent WeekStartDay, inclusive of the reference date itself.
func Compute(ref time.Time) Window {
	today := truncate(ref)
	offset := (int(today.Weekday()) - int(WeekStartDay) + 7) % 7
	weekStart := today.AddDate(0, 0, -offset)
	return Window{
		Today:             today,
		Yesterday:         today.AddDate(0, 0, -1),
		ThisWeekStart:     weekStart,
		PreviousWeekStart: weekStart.AddDate(0, 0, -7),
	}
}

// PreviousWeekDates returns the seven dates of the retired week, in order.
func (w Window) PreviousWeekDates() []time.Time {
	return weekOf(w.PreviousWeekStart)
}

// ThisWeekDates returns the seven dates of the active week, in order.
func (w Window) ThisWeekDates() []time.Time {
	return weekOf(w.ThisWeekStart)
}

func weekOf(start time.Time) []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// truncate drops the time-of-day component, keeping the location.
func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
