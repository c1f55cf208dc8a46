package layout

import (
	"math"
	"time"

	"calgrid/internal/model"
)

// testDay is a Monday.
var testDay = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func event(id string, start, end time.Time) model.Event {
	return model.Event{ID: id, Title: id, Start: start, End: end, CategoryID: "work"}
}

func byID(packed []model.PositionedEvent) map[string]model.PositionedEvent {
	m := make(map[string]model.PositionedEvent, len(packed))
	for _, pe := range packed {
		m[pe.Event.ID] = pe
	}
	return m
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func allWork() model.CategoryFilter {
	return model.NewCategoryFilter("work", "personal")
}
