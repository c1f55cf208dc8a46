// Package store persists events, categories and the category filter.
//
// Two backends implement Repository: a single JSON file laid out under the
// same keys the browser used for local storage, and an sqlite database.
// Both validate events on the way in; nothing downstream re-checks.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"calgrid/internal/config"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// Keys of the JSON document. The sqlite backend uses the selection key as
// a settings row.
const (
	KeyEvents             = "calendar_events"
	KeyCategories         = "calendar_categories"
	KeySelectedCategories = "calendar_selected_categories"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidEvent = errors.New("invalid event")
)

// Repository is the persistence boundary of the calendar.
type Repository interface {
	// Events returns every stored event in insertion order.
	Events(ctx context.Context) ([]model.Event, error)
	Event(ctx context.Context, id string) (model.Event, error)
	// AddEvent validates ev, assigns an ID when it has none and stores it.
	AddEvent(ctx context.Context, ev model.Event) (model.Event, error)
	// UpdateEvent replaces the event with the same ID.
	UpdateEvent(ctx context.Context, ev model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	// ReplaceSource drops every event whose ID starts with prefix and stores
	// events in their place. Used for subscription imports.
	ReplaceSource(ctx context.Context, prefix string, events []model.Event) error

	Categories(ctx context.Context) ([]model.Category, error)
	// PutCategory inserts or replaces a category by ID.
	PutCategory(ctx context.Context, c model.Category) error

	// SelectedCategories returns the persisted filter. Until one is saved
	// every category is selected.
	SelectedCategories(ctx context.Context) (model.CategoryFilter, error)
	SetSelectedCategories(ctx context.Context, f model.CategoryFilter) error

	Close() error
}

// Open creates the repository configured by cfg and seeds its categories.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	var (
		repo Repository
		err  error
	)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		repo, err = OpenSQL(ctx, cfg.Store.Path, cfg.Location())
	default:
		repo, err = OpenJSON(cfg.Store.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	if err := Seed(ctx, repo, cfg.SeedCategories()); err != nil {
		repo.Close()
		return nil, err
	}
	appLog.Info("store opened", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	return repo, nil
}

// Seed stores categories when the repository has none.
func Seed(ctx context.Context, repo Repository, categories []model.Category) error {
	existing, err := repo.Categories(ctx)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, c := range categories {
		if err := repo.PutCategory(ctx, c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	appLog.Debug("seeded categories", "count", len(categories))
	return nil
}

func prepareNew(ev model.Event) (model.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return prepare(ev)
}

// prepare truncates ev to whole seconds, the precision both backends keep,
// and validates what will actually be stored.
func prepare(ev model.Event) (model.Event, error) {
	ev.Start = ev.Start.Truncate(time.Second)
	ev.End = ev.End.Truncate(time.Second)
	if err := ev.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return ev, nil
}

func validateCategory(c model.Category) error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("category id is required")
	}
	return nil
}

// timeIn converts a stored unix timestamp back to wall clock in loc.
func timeIn(sec int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(sec, 0).In(loc)
}
