package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// EventIDPrefix is the id prefix shared by every event imported from src.
func EventIDPrefix(sourceID string) string {
	return "sub-" + sourceID + "-"
}

// ParseICS converts the VEVENTs of body into calendar events filed under
// src.Category, with wall-clock times in loc.
//
// Only the base instance of a recurring event is imported: RRULE, EXDATE
// and RECURRENCE-ID overrides are ignored. An all-day event covers its
// dates from local midnight. A timed event without a usable DTEND lasts
// one hour. VEVENTs that still fail validation are logged and skipped.
func ParseICS(src Source, body []byte, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("parse ics %s: %w", src.ID, err)
	}

	events := make([]model.Event, 0)
	seen := make(map[string]bool)
	for _, ve := range cal.Events() {
		if ve.GetProperty(ical.ComponentPropertyRecurrenceId) != nil {
			continue
		}
		ev, perr := toEvent(src, ve, loc)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "id", src.ID)
			continue
		}
		if seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func toEvent(src Source, ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return model.Event{}, errors.New("missing UID")
	}

	ev := model.Event{
		ID:          EventIDPrefix(src.ID) + uid,
		Title:       strings.TrimSpace(propValue(ve, ical.ComponentPropertySummary)),
		Description: propValue(ve, ical.ComponentPropertyDescription),
		CategoryID:  src.Category,
	}
	if ev.Title == "" {
		ev.Title = "(untitled)"
	}
	if where := propValue(ve, ical.ComponentPropertyLocation); where != "" {
		if ev.Description != "" {
			ev.Description += "\n"
		}
		ev.Description += where
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return model.Event{}, fmt.Errorf("%s: missing DTSTART", uid)
	}

	if isDateValue(dtStart) {
		start, err := time.ParseInLocation("20060102", strings.TrimSpace(dtStart.Value), loc)
		if err != nil {
			return model.Event{}, fmt.Errorf("%s: DTSTART: %w", uid, err)
		}
		end := start.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if t, err := time.ParseInLocation("20060102", strings.TrimSpace(dtEnd.Value), loc); err == nil && t.After(start) {
				end = t
			}
		}
		ev.Start, ev.End = start, end
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return model.Event{}, fmt.Errorf("%s: DTSTART: %w", uid, err)
		}
		ev.Start = start.In(loc)
		ev.End = ev.Start.Add(time.Hour)
		if end, err := ve.GetEndAt(); err == nil && end.After(start) {
			ev.End = end.In(loc)
		}
	}

	if err := ev.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", uid, err)
	}
	return ev, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

// isDateValue reports an all-day DTSTART: VALUE=DATE or a bare YYYYMMDD.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
