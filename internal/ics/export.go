package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"calgrid/internal/model"
)

// Export renders events as a VCALENDAR. Each VEVENT carries the name of
// its category in CATEGORIES and the category color in COLOR.
func Export(events []model.Event, categories []model.Category, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//calgrid//calendar//EN")
	cal.SetXWRCalName("calgrid")

	index := model.CategoryIndex(categories)
	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if c, ok := index[ev.CategoryID]; ok {
			ve.SetProperty(ical.ComponentPropertyCategories, c.Name)
			ve.SetProperty(ical.ComponentPropertyColor, c.Color)
		}
	}
	return cal.Serialize()
}
