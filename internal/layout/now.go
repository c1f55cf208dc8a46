package layout

import "time"

// Locate returns the vertical position of now within the day starting at
// dayStart, in percent. ok is false when isToday is false, meaning no
// indicator should be drawn. Callers re-invoke it on a timer to keep the
// indicator moving.
func Locate(now, dayStart time.Time, isToday bool) (position float64, ok bool) {
	if !isToday {
		return 0, false
	}
	dayEnd := StartOfDay(dayStart).AddDate(0, 0, 1)
	dayMinutes := minutesBetween(dayStart, dayEnd)
	if dayMinutes <= 0 {
		dayMinutes = 24 * 60
	}
	return clampPercent(minutesBetween(dayStart, now) / dayMinutes * 100), true
}

// IsSameLocalDate compares calendar dates, reading b in a's location.
func IsSameLocalDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// LocateDay is Locate with isToday derived from now and day.
func LocateDay(now, day time.Time) (float64, bool) {
	return Locate(now, StartOfDay(day), IsSameLocalDate(day, now))
}

// WeekIndicator places the now line in a week grid: the column of today
// and the vertical position within it.
type WeekIndicator struct {
	DayIndex int     `json:"dayIndex"`
	Position float64 `json:"position"`
}

// LocateWeek finds today among days (midnights of the week's days). ok is
// false when today is not in the week.
func LocateWeek(now time.Time, days []time.Time) (WeekIndicator, bool) {
	for i, day := range days {
		if pos, ok := LocateDay(now, day); ok {
			return WeekIndicator{DayIndex: i, Position: pos}, true
		}
	}
	return WeekIndicator{}, false
}
