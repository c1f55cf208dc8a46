package layout

import (
	"testing"
	"time"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		isToday bool
		want    float64
		wantOK  bool
	}{
		{"midnight", at(0, 0), true, 0, true},
		{"noon", at(12, 0), true, 50, true},
		{"six in the morning", at(6, 0), true, 25, true},
		{"last minute", at(23, 59), true, 1439.0 / 1440 * 100, true},
		{"not today", at(12, 0), false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Locate(tt.now, testDay, tt.isToday)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !approx(got, tt.want) {
				t.Errorf("position = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocateDay(t *testing.T) {
	if _, ok := LocateDay(at(12, 0), at(24+12, 0)); ok {
		t.Error("indicator shown on a day that is not today")
	}
	pos, ok := LocateDay(at(18, 0), at(3, 0))
	if !ok || !approx(pos, 75) {
		t.Errorf("LocateDay() = %v, %v; want 75, true", pos, ok)
	}
}

func TestIsSameLocalDate(t *testing.T) {
	if !IsSameLocalDate(at(0, 0), at(23, 59)) {
		t.Error("same date reported as different")
	}
	if IsSameLocalDate(at(23, 59), at(24, 0)) {
		t.Error("midnight rollover reported as the same date")
	}
}

func TestLocateWeek(t *testing.T) {
	days := WeekDays(testDay, time.Monday)

	got, ok := LocateWeek(at(2*24+6, 0), days)
	if !ok {
		t.Fatal("no indicator for a day inside the week")
	}
	if got.DayIndex != 2 || !approx(got.Position, 25) {
		t.Errorf("LocateWeek() = %+v, want day 2 at 25%%", got)
	}

	if _, ok := LocateWeek(at(7*24+1, 0), days); ok {
		t.Error("indicator shown for a day outside the week")
	}
}
