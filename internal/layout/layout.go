package layout

import (
	"time"

	"calgrid/internal/model"
)

// Block is one render-ready event on a day grid.
type Block struct {
	Event    model.Event    `json:"event"`
	Category model.Category `json:"category"`
	Column   int            `json:"column"`
	Columns  int            `json:"columns"`
	Rect     Rect           `json:"rect"`
}

// DayLayout is the packed and placed content of one day column.
type DayLayout struct {
	Day    Window  `json:"day"`
	Blocks []Block `json:"blocks"`

	// Dropped counts selected events skipped because their category no
	// longer exists.
	Dropped int `json:"-"`
	// Groups holds the column count of each overlap group, in start order.
	Groups []int `json:"-"`
}

// LayoutDay selects, packs and places the events visible on day.
// Events whose category is not in categories are silently left out.
func LayoutDay(events []model.Event, categories []model.Category, day time.Time, filter model.CategoryFilter) DayLayout {
	w := DayWindow(day)
	out := DayLayout{Day: w, Blocks: make([]Block, 0)}

	index := model.CategoryIndex(categories)
	visible := make([]model.Event, 0)
	for _, ev := range Select(events, w, filter) {
		if _, ok := index[ev.CategoryID]; !ok {
			out.Dropped++
			continue
		}
		visible = append(visible, ev)
	}

	packed := Pack(visible)
	for _, pe := range packed {
		out.Blocks = append(out.Blocks, Block{
			Event:    pe.Event,
			Category: index[pe.Event.CategoryID],
			Column:   pe.Column,
			Columns:  pe.Columns(),
			Rect:     Place(pe, w.Start, w.End),
		})
	}
	for _, g := range Groups(packed) {
		out.Groups = append(out.Groups, g[0].Columns())
	}
	return out
}

// WeekLayout holds the seven independently packed days of a week.
type WeekLayout struct {
	Week Window      `json:"week"`
	Days []DayLayout `json:"days"`
}

// LayoutWeek lays out each day of anchor's week on its own; an event that
// overlaps another only across midnight does not affect its columns.
func LayoutWeek(events []model.Event, categories []model.Category, anchor time.Time, weekStart time.Weekday, filter model.CategoryFilter) WeekLayout {
	week := WeekWindow(anchor, weekStart)
	inWeek := Select(events, week, filter)

	out := WeekLayout{Week: week, Days: make([]DayLayout, 0, 7)}
	for _, day := range WeekDays(anchor, weekStart) {
		out.Days = append(out.Days, LayoutDay(inWeek, categories, day, filter))
	}
	return out
}
