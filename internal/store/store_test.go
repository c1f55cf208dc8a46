package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"calgrid/internal/config"
	"calgrid/internal/model"
)

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func newEvent(title string, start, end time.Time) model.Event {
	return model.Event{Title: title, Start: start, End: end, CategoryID: "work"}
}

func backends(t *testing.T) map[string]Repository {
	t.Helper()

	js, err := OpenJSON(filepath.Join(t.TempDir(), "calgrid.json"))
	if err != nil {
		t.Fatalf("OpenJSON() error = %v", err)
	}
	sq, err := OpenSQL(context.Background(), ":memory:", time.UTC)
	if err != nil {
		t.Fatalf("OpenSQL() error = %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Repository{"json": js, "sqlite": sq}
}

func TestEventLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := repo.AddEvent(ctx, newEvent("Standup", at(10, 9), at(10, 10)))
			if err != nil {
				t.Fatalf("AddEvent() error = %v", err)
			}
			if first.ID == "" {
				t.Fatal("AddEvent() did not assign an id")
			}
			second, err := repo.AddEvent(ctx, model.Event{ID: "fixed", Title: "Lunch", Start: at(10, 12), End: at(10, 13), CategoryID: "personal"})
			if err != nil {
				t.Fatalf("AddEvent() error = %v", err)
			}
			if second.ID != "fixed" {
				t.Errorf("explicit id replaced: %q", second.ID)
			}

			events, err := repo.Events(ctx)
			if err != nil {
				t.Fatalf("Events() error = %v", err)
			}
			if len(events) != 2 || events[0].ID != first.ID || events[1].ID != "fixed" {
				t.Fatalf("Events() = %+v, want insertion order", events)
			}
			if !events[0].Start.Equal(at(10, 9)) {
				t.Errorf("start = %v, want %v", events[0].Start, at(10, 9))
			}

			updated := first
			updated.Title = "Daily standup"
			updated.End = at(10, 11)
			if err := repo.UpdateEvent(ctx, updated); err != nil {
				t.Fatalf("UpdateEvent() error = %v", err)
			}
			got, err := repo.Event(ctx, first.ID)
			if err != nil {
				t.Fatalf("Event() error = %v", err)
			}
			if got.Title != "Daily standup" || !got.End.Equal(at(10, 11)) {
				t.Errorf("Event() = %+v after update", got)
			}

			if err := repo.DeleteEvent(ctx, first.ID); err != nil {
				t.Fatalf("DeleteEvent() error = %v", err)
			}
			if _, err := repo.Event(ctx, first.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Event() after delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestNotFoundAndInvalid(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			missing := newEvent("ghost", at(10, 9), at(10, 10))
			missing.ID = "nope"
			if err := repo.UpdateEvent(ctx, missing); !errors.Is(err, ErrNotFound) {
				t.Errorf("UpdateEvent() error = %v, want ErrNotFound", err)
			}
			if err := repo.DeleteEvent(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("DeleteEvent() error = %v, want ErrNotFound", err)
			}

			_, err := repo.AddEvent(ctx, newEvent("", at(10, 10), at(10, 9)))
			if !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("AddEvent() error = %v, want ErrInvalidEvent", err)
			}
			if !errors.Is(err, model.ErrTitleRequired) || !errors.Is(err, model.ErrEndBeforeStart) {
				t.Errorf("AddEvent() error = %v, want field errors", err)
			}

			events, _ := repo.Events(ctx)
			if len(events) != 0 {
				t.Errorf("invalid event stored: %+v", events)
			}
		})
	}
}

func TestSubSecondTimes(t *testing.T) {
	ctx := context.Background()
	base := at(10, 9)
	ms := func(n int) time.Time { return base.Add(time.Duration(n) * time.Millisecond) }

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// collapses to an empty interval at whole seconds
			_, err := repo.AddEvent(ctx, newEvent("blink", ms(100), ms(600)))
			if !errors.Is(err, ErrInvalidEvent) || !errors.Is(err, model.ErrEndBeforeStart) {
				t.Errorf("AddEvent() error = %v, want ErrInvalidEvent", err)
			}

			ev, err := repo.AddEvent(ctx, newEvent("short", ms(400), ms(1900)))
			if err != nil {
				t.Fatalf("AddEvent() error = %v", err)
			}
			got, err := repo.Event(ctx, ev.ID)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Start.Equal(base) || !got.End.Equal(base.Add(time.Second)) {
				t.Errorf("stored %v - %v, want whole seconds", got.Start, got.End)
			}
			if !got.End.After(got.Start) {
				t.Errorf("stored event has end <= start: %+v", got)
			}

			ev.End = ms(999)
			if err := repo.UpdateEvent(ctx, ev); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("UpdateEvent() error = %v, want ErrInvalidEvent", err)
			}

			sub := newEvent("feed", ms(10), ms(20))
			sub.ID = "sub-x-1"
			if err := repo.ReplaceSource(ctx, "sub-x-", []model.Event{sub}); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("ReplaceSource() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestReplaceSource(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			local, err := repo.AddEvent(ctx, newEvent("mine", at(10, 9), at(10, 10)))
			if err != nil {
				t.Fatal(err)
			}

			feed := func(ids ...string) []model.Event {
				var out []model.Event
				for _, id := range ids {
					ev := newEvent(id, at(11, 9), at(11, 10))
					ev.ID = "sub-school-" + id
					out = append(out, ev)
				}
				return out
			}

			if err := repo.ReplaceSource(ctx, "sub-school-", feed("a", "b")); err != nil {
				t.Fatalf("ReplaceSource() error = %v", err)
			}
			if err := repo.ReplaceSource(ctx, "sub-school-", feed("b", "c")); err != nil {
				t.Fatalf("ReplaceSource() error = %v", err)
			}

			events, err := repo.Events(ctx)
			if err != nil {
				t.Fatal(err)
			}
			got := make(map[string]bool)
			for _, ev := range events {
				got[ev.ID] = true
			}
			for _, id := range []string{local.ID, "sub-school-b", "sub-school-c"} {
				if !got[id] {
					t.Errorf("missing %s after replace", id)
				}
			}
			if got["sub-school-a"] || len(events) != 3 {
				t.Errorf("stale events kept: %v", got)
			}

			bad := feed("x")
			bad[0].ID = "other"
			if err := repo.ReplaceSource(ctx, "sub-school-", bad); err == nil {
				t.Error("ReplaceSource() accepted an event outside the prefix")
			}
		})
	}
}

func TestCategoriesAndSelection(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := Seed(ctx, repo, model.DefaultCategories()); err != nil {
				t.Fatalf("Seed() error = %v", err)
			}
			if err := Seed(ctx, repo, []model.Category{{ID: "other"}}); err != nil {
				t.Fatalf("second Seed() error = %v", err)
			}

			categories, err := repo.Categories(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(categories) != 5 || categories[0].ID != "work" || categories[4].ID != "events" {
				t.Fatalf("Categories() = %+v", categories)
			}

			if err := repo.PutCategory(ctx, model.Category{ID: "work", Name: "Job", Color: "#000000"}); err != nil {
				t.Fatal(err)
			}
			categories, _ = repo.Categories(ctx)
			if categories[0].Name != "Job" || len(categories) != 5 {
				t.Errorf("PutCategory() did not replace in place: %+v", categories)
			}

			selected, err := repo.SelectedCategories(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(selected) != 5 {
				t.Errorf("initial selection has %d categories, want all 5", len(selected))
			}

			if err := repo.SetSelectedCategories(ctx, model.NewCategoryFilter()); err != nil {
				t.Fatal(err)
			}
			selected, _ = repo.SelectedCategories(ctx)
			if len(selected) != 0 {
				t.Errorf("deselect all not persisted: %v", selected)
			}

			if err := repo.SetSelectedCategories(ctx, model.NewCategoryFilter("family", "work")); err != nil {
				t.Fatal(err)
			}
			selected, _ = repo.SelectedCategories(ctx)
			if len(selected) != 2 || !selected.Contains("family") || !selected.Contains("work") {
				t.Errorf("SelectedCategories() = %v", selected)
			}
		})
	}
}

func TestJSONStoreFileLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "calgrid.json")
	s, err := OpenJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEvent(ctx, newEvent("a", at(10, 9), at(10, 10))); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSelectedCategories(ctx, model.NewCategoryFilter("work")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{KeyEvents, KeyCategories, KeySelectedCategories} {
		if _, ok := raw[key]; !ok {
			t.Errorf("file is missing key %s", key)
		}
	}

	reopened, err := OpenJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	events, _ := reopened.Events(ctx)
	if len(events) != 1 || events[0].Title != "a" {
		t.Errorf("reopened store has %+v", events)
	}
}

func TestJSONStoreWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "calgrid.json")
	s, err := OpenJSON(path)
	if err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	go s.Watch(ctx, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	// give the watcher time to register
	time.Sleep(50 * time.Millisecond)

	other, err := OpenJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.AddEvent(ctx, newEvent("external", at(10, 9), at(10, 10))); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after external write")
	}
	events, _ := s.Events(ctx)
	if len(events) != 1 || events[0].Title != "external" {
		t.Errorf("watched store has %+v", events)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Store = config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "calgrid.db")}
	cfg.Categories = []config.CategoryConfig{{ID: "gym", Name: "gym"}}

	repo, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer repo.Close()

	categories, err := repo.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != 1 || categories[0].Name != "Gym" {
		t.Errorf("seeded categories = %+v", categories)
	}
}

func TestJSONStoreReloadDuringSaves(t *testing.T) {
	ctx := context.Background()
	s, err := OpenJSON(filepath.Join(t.TempDir(), "calgrid.json"))
	if err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				if err := s.reload(); err != nil {
					t.Error(err)
					return
				}
			}
		}
	}()

	const n = 40
	for i := 0; i < n; i++ {
		if _, err := s.AddEvent(ctx, newEvent("e", at(10, 9), at(10, 10))); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	<-done

	events, _ := s.Events(ctx)
	if len(events) != n {
		t.Errorf("got %d events after concurrent reloads, want %d", len(events), n)
	}
}
