// Package layout turns a flat list of calendar events into render-ready
// blocks for the day and week time grids.
//
// Data flows one way: Select narrows the events to a window and category
// filter, Pack assigns side-by-side columns within a single day, and Place
// maps each positioned event onto a 24-hour grid as percentages. Every
// function here is pure; callers own storage, timers and rendering.
package layout

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// IntersectsRange reports whether an event starts inside the range, ends
// inside it, or spans it entirely.
//
// The range is half-open on the start side for the start test and on the
// end side for the end test, so an event ending exactly at rangeStart or
// starting exactly at rangeEnd is not a member.
func IntersectsRange(eventStart, eventEnd, rangeStart, rangeEnd time.Time) bool {
	startsInside := !eventStart.Before(rangeStart) && eventStart.Before(rangeEnd)
	endsInside := eventEnd.After(rangeStart) && !eventEnd.After(rangeEnd)
	spans := !eventStart.After(rangeStart) && !eventEnd.Before(rangeEnd)
	return startsInside || endsInside || spans
}

// minutesBetween returns b-a in (fractional) minutes.
func minutesBetween(a, b time.Time) float64 {
	return b.Sub(a).Minutes()
}
