package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"calgrid/internal/config"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// document is the on-disk layout. A nil Selected means the user never
// saved a filter.
type document struct {
	Events     []model.Event    `json:"calendar_events"`
	Categories []model.Category `json:"calendar_categories"`
	Selected   []string         `json:"calendar_selected_categories"`
}

// JSONStore keeps the whole document in memory and rewrites the file on
// every mutation.
type JSONStore struct {
	path string

	mu  sync.RWMutex
	doc document
}

var _ Repository = (*JSONStore)(nil)

// OpenJSON loads path, or starts empty when the file does not exist yet.
func OpenJSON(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// reload replaces the in-memory document with the file. The write lock
// covers the read as well as the swap.
func (s *JSONStore) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc document
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", s.path, err)
		}
	}
	s.doc = doc
	return nil
}

// save writes the document; the caller holds the write lock.
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) Events(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doc.Events), nil
}

func (s *JSONStore) Event(ctx context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.doc.Events[i], nil
	}
	return model.Event{}, ErrNotFound
}

func (s *JSONStore) indexOf(id string) int {
	return slices.IndexFunc(s.doc.Events, func(ev model.Event) bool { return ev.ID == id })
}

func (s *JSONStore) AddEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	ev, err := prepareNew(ev)
	if err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(ev.ID) >= 0 {
		return model.Event{}, fmt.Errorf("event %s already exists", ev.ID)
	}
	s.doc.Events = append(s.doc.Events, ev)
	if err := s.save(); err != nil {
		s.doc.Events = s.doc.Events[:len(s.doc.Events)-1]
		return model.Event{}, err
	}
	return ev, nil
}

func (s *JSONStore) UpdateEvent(ctx context.Context, ev model.Event) error {
	ev, err := prepare(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(ev.ID)
	if i < 0 {
		return ErrNotFound
	}
	prev := s.doc.Events[i]
	s.doc.Events[i] = ev
	if err := s.save(); err != nil {
		s.doc.Events[i] = prev
		return err
	}
	return nil
}

func (s *JSONStore) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	prev := s.doc.Events
	s.doc.Events = slices.Delete(slices.Clone(prev), i, i+1)
	if err := s.save(); err != nil {
		s.doc.Events = prev
		return err
	}
	return nil
}

func (s *JSONStore) ReplaceSource(ctx context.Context, prefix string, events []model.Event) error {
	prepared := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if !strings.HasPrefix(ev.ID, prefix) {
			return fmt.Errorf("event %s does not belong to source %s", ev.ID, prefix)
		}
		stored, err := prepare(ev)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		prepared = append(prepared, stored)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.doc.Events
	kept := slices.DeleteFunc(slices.Clone(prev), func(ev model.Event) bool {
		return strings.HasPrefix(ev.ID, prefix)
	})
	s.doc.Events = append(kept, prepared...)
	if err := s.save(); err != nil {
		s.doc.Events = prev
		return err
	}
	return nil
}

func (s *JSONStore) Categories(ctx context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doc.Categories), nil
}

func (s *JSONStore) PutCategory(ctx context.Context, c model.Category) error {
	if err := validateCategory(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := slices.Clone(s.doc.Categories)
	if i := slices.IndexFunc(s.doc.Categories, func(x model.Category) bool { return x.ID == c.ID }); i >= 0 {
		s.doc.Categories[i] = c
	} else {
		s.doc.Categories = append(s.doc.Categories, c)
	}
	if err := s.save(); err != nil {
		s.doc.Categories = prev
		return err
	}
	return nil
}

func (s *JSONStore) SelectedCategories(ctx context.Context) (model.CategoryFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.Selected == nil {
		return model.AllCategories(s.doc.Categories), nil
	}
	return model.NewCategoryFilter(s.doc.Selected...), nil
}

func (s *JSONStore) SetSelectedCategories(ctx context.Context, f model.CategoryFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.doc.Selected
	s.doc.Selected = f.IDs(s.doc.Categories)
	if err := s.save(); err != nil {
		s.doc.Selected = prev
		return err
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

// Watch reloads the document whenever the file is changed by another
// process, then calls onChange. It blocks until ctx is done.
//
// The parent directory is watched rather than the file because saves
// replace the file by rename.
func (s *JSONStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(100*time.Millisecond, func() {
				if err := s.reload(); err != nil {
					appLog.Error("reload store", err, "path", s.path)
					return
				}
				appLog.Debug("store reloaded", "path", s.path)
				if onChange != nil {
					onChange()
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			appLog.Error("store watcher", err)

		case <-ctx.Done():
			return nil
		}
	}
}
