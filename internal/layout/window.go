package layout

import (
	"time"

	"calgrid/internal/model"
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// StartOfDay returns local midnight of t's calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow covers t's calendar date, midnight to next midnight.
func DayWindow(t time.Time) Window {
	start := StartOfDay(t)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// StartOfWeek returns midnight of the first day of t's week.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	start := StartOfDay(t)
	offset := (int(start.Weekday()) - int(weekStart) + 7) % 7
	return start.AddDate(0, 0, -offset)
}

// WeekWindow covers the seven days of t's week.
func WeekWindow(t time.Time, weekStart time.Weekday) Window {
	start := StartOfWeek(t, weekStart)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// WeekDays returns midnight of each of the seven days of t's week.
func WeekDays(t time.Time, weekStart time.Weekday) []time.Time {
	start := StartOfWeek(t, weekStart)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthWindow covers t's calendar month.
func MonthWindow(t time.Time) Window {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// YearWindow covers t's calendar year.
func YearWindow(t time.Time) Window {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(1, 0, 0)}
}

// ViewWindow returns the window displayed by the given view state.
func ViewWindow(vs model.ViewState, weekStart time.Weekday) Window {
	switch vs.Mode {
	case model.ViewWeek:
		return WeekWindow(vs.SelectedDate, weekStart)
	case model.ViewMonth:
		return MonthWindow(vs.SelectedDate)
	case model.ViewYear:
		return YearWindow(vs.SelectedDate)
	default:
		return DayWindow(vs.SelectedDate)
	}
}

// Step moves the selected date n periods of the active view (negative for
// previous). The view mode is unchanged.
func Step(vs model.ViewState, n int) model.ViewState {
	d := vs.SelectedDate
	switch vs.Mode {
	case model.ViewWeek:
		d = d.AddDate(0, 0, 7*n)
	case model.ViewMonth:
		d = d.AddDate(0, n, 0)
	case model.ViewYear:
		d = d.AddDate(n, 0, 0)
	default:
		d = d.AddDate(0, 0, n)
	}
	return model.ViewState{SelectedDate: d, Mode: vs.Mode}
}

// MonthCell is one slot of a mini-month grid. Blank cells pad the first
// week so that day 1 lands under its weekday column.
type MonthCell struct {
	Date  time.Time `json:"date,omitempty"`
	Blank bool      `json:"blank,omitempty"`
}

// MonthGrid returns the cells of t's month, preceded by blanks up to the
// weekday of the 1st.
func MonthGrid(t time.Time, weekStart time.Weekday) []MonthCell {
	w := MonthWindow(t)
	lead := (int(w.Start.Weekday()) - int(weekStart) + 7) % 7
	cells := make([]MonthCell, 0, lead+31)
	for i := 0; i < lead; i++ {
		cells = append(cells, MonthCell{Blank: true})
	}
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		cells = append(cells, MonthCell{Date: d})
	}
	return cells
}
