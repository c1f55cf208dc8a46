package layout

import (
	"time"

	"calgrid/internal/model"
)

// Rect is an event's box on a day column, in percent of the column's
// height (top, height) and width (left, width).
type Rect struct {
	TopPercent    float64 `json:"top"`
	HeightPercent float64 `json:"height"`
	LeftPercent   float64 `json:"left"`
	WidthPercent  float64 `json:"width"`
}

// Bottom returns TopPercent + HeightPercent.
func (r Rect) Bottom() float64 {
	return r.TopPercent + r.HeightPercent
}

// Place maps a positioned event onto the grid of the day [dayStart, dayEnd).
// The event is clamped to the day first, so events that began the previous
// day start at the top and events running past midnight stop at the bottom.
//
// Vertical positions are minutes over the day's length; on an ordinary day
// that is 1440.
func Place(pe model.PositionedEvent, dayStart, dayEnd time.Time) Rect {
	start := pe.Event.Start
	if start.Before(dayStart) {
		start = dayStart
	}
	end := pe.Event.End
	if end.After(dayEnd) {
		end = dayEnd
	}
	if end.Before(start) {
		end = start
	}

	dayMinutes := minutesBetween(dayStart, dayEnd)
	if dayMinutes <= 0 {
		dayMinutes = 24 * 60
	}

	top := clampPercent(minutesBetween(dayStart, start) / dayMinutes * 100)
	height := clampPercent(minutesBetween(start, end) / dayMinutes * 100)
	if top+height > 100 {
		height = 100 - top
	}

	width := pe.Width * 100
	if width <= 0 || width > 100 {
		width = 100
	}
	left := float64(pe.Column) * width
	if left+width > 100 {
		// float rounding on the last column
		left = 100 - width
	}

	return Rect{
		TopPercent:    top,
		HeightPercent: height,
		LeftPercent:   left,
		WidthPercent:  width,
	}
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
