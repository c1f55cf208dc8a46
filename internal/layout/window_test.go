package layout

import (
	"testing"
	"time"

	"calgrid/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStartOfWeek(t *testing.T) {
	thursday := time.Date(2025, 3, 13, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		weekStart time.Weekday
		want      time.Time
	}{
		{time.Monday, date(2025, 3, 10)},
		{time.Sunday, date(2025, 3, 9)},
		{time.Thursday, date(2025, 3, 13)},
		{time.Friday, date(2025, 3, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.weekStart.String(), func(t *testing.T) {
			if got := StartOfWeek(thursday, tt.weekStart); !got.Equal(tt.want) {
				t.Errorf("StartOfWeek() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewWindow(t *testing.T) {
	anchor := time.Date(2025, 3, 13, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		mode  model.ViewMode
		start time.Time
		end   time.Time
	}{
		{model.ViewDay, date(2025, 3, 13), date(2025, 3, 14)},
		{model.ViewWeek, date(2025, 3, 10), date(2025, 3, 17)},
		{model.ViewMonth, date(2025, 3, 1), date(2025, 4, 1)},
		{model.ViewYear, date(2025, 1, 1), date(2026, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			w := ViewWindow(model.ViewState{SelectedDate: anchor, Mode: tt.mode}, time.Monday)
			if !w.Start.Equal(tt.start) || !w.End.Equal(tt.end) {
				t.Errorf("window = [%v, %v), want [%v, %v)", w.Start, w.End, tt.start, tt.end)
			}
			if !w.Contains(anchor) {
				t.Error("window does not contain its anchor")
			}
		})
	}
}

func TestStep(t *testing.T) {
	anchor := date(2025, 3, 13)

	tests := []struct {
		mode model.ViewMode
		n    int
		want time.Time
	}{
		{model.ViewDay, 1, date(2025, 3, 14)},
		{model.ViewDay, -1, date(2025, 3, 12)},
		{model.ViewWeek, 1, date(2025, 3, 20)},
		{model.ViewWeek, -2, date(2025, 2, 27)},
		{model.ViewMonth, 1, date(2025, 4, 13)},
		{model.ViewYear, -1, date(2024, 3, 13)},
	}

	for _, tt := range tests {
		got := Step(model.ViewState{SelectedDate: anchor, Mode: tt.mode}, tt.n)
		if !got.SelectedDate.Equal(tt.want) {
			t.Errorf("Step(%s, %d) = %v, want %v", tt.mode, tt.n, got.SelectedDate, tt.want)
		}
		if got.Mode != tt.mode {
			t.Errorf("Step changed mode to %s", got.Mode)
		}
	}
}

func TestMonthGrid(t *testing.T) {
	// October 2025 starts on a Wednesday.
	oct := date(2025, 10, 15)

	tests := []struct {
		weekStart time.Weekday
		blanks    int
	}{
		{time.Sunday, 3},
		{time.Monday, 2},
		{time.Wednesday, 0},
		{time.Thursday, 6},
	}

	for _, tt := range tests {
		t.Run(tt.weekStart.String(), func(t *testing.T) {
			cells := MonthGrid(oct, tt.weekStart)
			if len(cells) != tt.blanks+31 {
				t.Fatalf("got %d cells, want %d", len(cells), tt.blanks+31)
			}
			for i := 0; i < tt.blanks; i++ {
				if !cells[i].Blank {
					t.Errorf("cell %d should be blank", i)
				}
			}
			first := cells[tt.blanks]
			if first.Blank || first.Date.Day() != 1 {
				t.Errorf("first dated cell = %+v, want the 1st", first)
			}
			if last := cells[len(cells)-1]; last.Date.Day() != 31 {
				t.Errorf("last cell = %v, want the 31st", last.Date)
			}
		})
	}
}
