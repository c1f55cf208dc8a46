package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Event is a single calendar entry. It is immutable once created; edits
// replace the whole record by ID.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	CategoryID  string    `json:"categoryId"`
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrEndBeforeStart   = errors.New("end time must be after start time")
	ErrCategoryRequired = errors.New("please select a category")
)

// Validate checks the event the way the event form does before anything is
// stored. The layout code assumes every event it sees passed this check.
func (e Event) Validate() error {
	var errs []error
	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, ErrTitleRequired)
	}
	if e.Start.IsZero() || e.End.IsZero() || !e.End.After(e.Start) {
		errs = append(errs, ErrEndBeforeStart)
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		errs = append(errs, ErrCategoryRequired)
	}
	return errors.Join(errs...)
}

// Category groups events for coloring and filtering. Events reference a
// category by ID only.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DefaultCategories is the seed set used when a store has no categories.
func DefaultCategories() []Category {
	return []Category{
		{ID: "work", Name: "Work", Color: "#4F46E5"},
		{ID: "personal", Name: "Personal", Color: "#10B981"},
		{ID: "family", Name: "Family", Color: "#F59E0B"},
		{ID: "academy", Name: "Academy", Color: "#EF4444"},
		{ID: "events", Name: "Events", Color: "#8B5CF6"},
	}
}

// CategoryIndex builds an id -> category lookup.
func CategoryIndex(categories []Category) map[string]Category {
	idx := make(map[string]Category, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx
}

// PositionedEvent is an event with its column assignment for one day.
// Width is the fraction of the day column the event occupies (1/columns).
type PositionedEvent struct {
	Event  Event
	Column int
	Width  float64
}

// Columns returns the number of columns in the event's overlap group.
func (p PositionedEvent) Columns() int {
	if p.Width <= 0 {
		return 1
	}
	n := int(1/p.Width + 0.5)
	if n < 1 {
		return 1
	}
	return n
}

// ViewMode selects the calendar layout.
type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
	ViewYear  ViewMode = "year"
)

// ParseViewMode accepts the lowercase mode names; empty means day.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewDay:
		return ViewDay, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	case ViewYear:
		return ViewYear, nil
	default:
		return "", fmt.Errorf("unknown view mode %q", s)
	}
}

// ViewState is the selected anchor date plus the active view.
type ViewState struct {
	SelectedDate time.Time `json:"selectedDate"`
	Mode         ViewMode  `json:"view"`
}

// CategoryFilter is the set of category IDs currently shown.
type CategoryFilter map[string]struct{}

// NewCategoryFilter builds a filter from a list of IDs.
func NewCategoryFilter(ids ...string) CategoryFilter {
	f := make(CategoryFilter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

// AllCategories returns a filter with every given category visible.
func AllCategories(categories []Category) CategoryFilter {
	f := make(CategoryFilter, len(categories))
	for _, c := range categories {
		f[c.ID] = struct{}{}
	}
	return f
}

func (f CategoryFilter) Contains(id string) bool {
	_, ok := f[id]
	return ok
}

// Toggle flips visibility of id and returns the new state.
func (f CategoryFilter) Toggle(id string) bool {
	if f.Contains(id) {
		delete(f, id)
		return false
	}
	f[id] = struct{}{}
	return true
}

// IDs returns the filter members in category order, followed by any IDs
// that no longer match a category, sorted.
func (f CategoryFilter) IDs(categories []Category) []string {
	ids := make([]string, 0, len(f))
	seen := make(map[string]bool, len(f))
	for _, c := range categories {
		if f.Contains(c.ID) {
			ids = append(ids, c.ID)
			seen[c.ID] = true
		}
	}
	var rest []string
	for id := range f {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(ids, rest...)
}
