package layout

import (
	"time"

	"calgrid/internal/model"
)

// Select returns the events that intersect w and whose category is in the
// filter, in input order. The input slice is not modified.
func Select(events []model.Event, w Window, filter model.CategoryFilter) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if !filter.Contains(ev.CategoryID) {
			continue
		}
		if IntersectsRange(ev.Start, ev.End, w.Start, w.End) {
			out = append(out, ev)
		}
	}
	return out
}

// SelectDay selects the events visible on day's calendar date.
func SelectDay(events []model.Event, day time.Time, filter model.CategoryFilter) []model.Event {
	return Select(events, DayWindow(day), filter)
}

// SelectWeek selects the events visible in the week containing anchor.
func SelectWeek(events []model.Event, anchor time.Time, weekStart time.Weekday, filter model.CategoryFilter) []model.Event {
	return Select(events, WeekWindow(anchor, weekStart), filter)
}

// Overlapping returns the events in candidates, other than target itself,
// whose interval overlaps target's.
func Overlapping(candidates []model.Event, target model.Event) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range candidates {
		if ev.ID == target.ID {
			continue
		}
		if Overlaps(target.Start, target.End, ev.Start, ev.End) {
			out = append(out, ev)
		}
	}
	return out
}

// CountByDay counts, for every calendar date in w, the filtered events
// visible on that date. Keys are formatted as 2006-01-02; dates with no
// events are absent.
func CountByDay(events []model.Event, w Window, filter model.CategoryFilter) map[string]int {
	counts := make(map[string]int)
	for _, ev := range Select(events, w, filter) {
		day := StartOfDay(ev.Start)
		if day.Before(w.Start) {
			day = w.Start
		}
		for ; day.Before(w.End) && day.Before(ev.End); day = day.AddDate(0, 0, 1) {
			dw := DayWindow(day)
			if IntersectsRange(ev.Start, ev.End, dw.Start, dw.End) {
				counts[day.Format(time.DateOnly)]++
			}
		}
	}
	return counts
}
