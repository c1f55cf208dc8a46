package layout

import (
	"math/rand"
	"testing"
	"time"

	"calgrid/internal/model"
)

func TestPlace(t *testing.T) {
	dayStart, dayEnd := at(0, 0), at(24, 0)

	tests := []struct {
		name string
		pe   model.PositionedEvent
		want Rect
	}{
		{
			name: "inside the day",
			pe:   model.PositionedEvent{Event: event("a", at(9, 0), at(10, 30)), Column: 0, Width: 1},
			want: Rect{TopPercent: 37.5, HeightPercent: 6.25, LeftPercent: 0, WidthPercent: 100},
		},
		{
			name: "started the day before",
			pe:   model.PositionedEvent{Event: event("a", at(-2, 0), at(6, 0)), Column: 0, Width: 1},
			want: Rect{TopPercent: 0, HeightPercent: 25, LeftPercent: 0, WidthPercent: 100},
		},
		{
			name: "runs past midnight",
			pe:   model.PositionedEvent{Event: event("a", at(18, 0), at(26, 0)), Column: 1, Width: 0.5},
			want: Rect{TopPercent: 75, HeightPercent: 25, LeftPercent: 50, WidthPercent: 50},
		},
		{
			name: "covers the whole day",
			pe:   model.PositionedEvent{Event: event("a", at(-5, 0), at(30, 0)), Column: 0, Width: 1},
			want: Rect{TopPercent: 0, HeightPercent: 100, LeftPercent: 0, WidthPercent: 100},
		},
		{
			name: "missing width falls back to full",
			pe:   model.PositionedEvent{Event: event("a", at(12, 0), at(13, 0))},
			want: Rect{TopPercent: 50, HeightPercent: 100.0 / 24, LeftPercent: 0, WidthPercent: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Place(tt.pe, dayStart, dayEnd)
			if !approx(got.TopPercent, tt.want.TopPercent) ||
				!approx(got.HeightPercent, tt.want.HeightPercent) ||
				!approx(got.LeftPercent, tt.want.LeftPercent) ||
				!approx(got.WidthPercent, tt.want.WidthPercent) {
				t.Errorf("Place() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPlaceLastOfThreeColumns(t *testing.T) {
	pe := model.PositionedEvent{Event: event("c", at(9, 0), at(10, 0)), Column: 2, Width: 1.0 / 3}
	got := Place(pe, at(0, 0), at(24, 0))
	if got.LeftPercent+got.WidthPercent > 100+1e-9 {
		t.Errorf("left %v + width %v exceeds 100", got.LeftPercent, got.WidthPercent)
	}
	if !approx(got.LeftPercent, 200.0/3) {
		t.Errorf("left = %v, want %v", got.LeftPercent, 200.0/3)
	}
}

func TestPlaceShortEventHasHeight(t *testing.T) {
	pe := model.PositionedEvent{Event: event("s", at(10, 0), at(10, 0).Add(30*time.Second)), Width: 1}
	if got := Place(pe, at(0, 0), at(24, 0)); got.HeightPercent <= 0 {
		t.Errorf("height = %v, want > 0", got.HeightPercent)
	}
}

func TestPlaceStaysOnGrid(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	dayStart, dayEnd := at(0, 0), at(24, 0)

	for round := 0; round < 100; round++ {
		var events []model.Event
		for i := 0; i < 1+r.Intn(15); i++ {
			start := at(-6, r.Intn(36*60))
			end := start.Add(time.Duration(1+r.Intn(600)) * time.Minute)
			events = append(events, event("e", start, end))
		}
		for _, pe := range Pack(events) {
			rect := Place(pe, dayStart, dayEnd)
			if rect.TopPercent < 0 || rect.Bottom() > 100+1e-9 {
				t.Fatalf("vertical out of range: %+v", rect)
			}
			if rect.LeftPercent < 0 || rect.LeftPercent+rect.WidthPercent > 100+1e-9 {
				t.Fatalf("horizontal out of range: %+v", rect)
			}
		}
	}
}

func TestPlaceMatchesWallClock(t *testing.T) {
	dayStart, dayEnd := at(0, 0), at(24, 0)

	for _, minutes := range []int{0, 1, 59, 60, 61, 537, 1439} {
		start := at(0, minutes)
		pe := model.PositionedEvent{Event: event("e", start, start.Add(time.Minute)), Width: 1}
		want := float64(minutes) / 1440 * 100
		if got := Place(pe, dayStart, dayEnd).TopPercent; !approx(got, want) {
			t.Errorf("minute %d: top = %v, want %v", minutes, got, want)
		}
	}
}

func TestPlaceShortDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2025-03-09 is 23 hours long in New York.
	w := DayWindow(time.Date(2025, 3, 9, 12, 0, 0, 0, loc))
	pe := model.PositionedEvent{
		Event: event("e", time.Date(2025, 3, 9, 20, 0, 0, 0, loc), time.Date(2025, 3, 10, 2, 0, 0, 0, loc)),
		Width: 1,
	}
	got := Place(pe, w.Start, w.End)
	if got.Bottom() > 100+1e-9 {
		t.Errorf("bottom = %v on a 23 hour day", got.Bottom())
	}
	if !approx(got.Bottom(), 100) {
		t.Errorf("event running past midnight should reach the bottom, got %v", got.Bottom())
	}
}
