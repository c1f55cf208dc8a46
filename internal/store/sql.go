package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"calgrid/internal/model"
)

type eventRow struct {
	bun.BaseModel `bun:"table:events"`

	ID          string `bun:"id,pk,notnull"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description"`
	StartDate   int64  `bun:"start_date,notnull"`
	EndDate     int64  `bun:"end_date,notnull"`
	CategoryID  string `bun:"category_id,notnull"`
}

type categoryRow struct {
	bun.BaseModel `bun:"table:categories"`

	ID       string `bun:"id,pk,notnull"`
	Name     string `bun:"name,notnull"`
	Color    string `bun:"color,notnull"`
	Position int    `bun:"position,notnull"`
}

// settingRow is a key/value pair, mirroring a local storage entry.
type settingRow struct {
	bun.BaseModel `bun:"table:settings"`

	Name  string `bun:"name,pk,notnull"`
	Value string `bun:"value,notnull"`
}

func toRow(ev model.Event) *eventRow {
	return &eventRow{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		StartDate:   ev.Start.Unix(),
		EndDate:     ev.End.Unix(),
		CategoryID:  ev.CategoryID,
	}
}

func (r *eventRow) event(loc *time.Location) model.Event {
	return model.Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Start:       timeIn(r.StartDate, loc),
		End:         timeIn(r.EndDate, loc),
		CategoryID:  r.CategoryID,
	}
}

// SQLStore is a Repository on sqlite. Times are stored as unix seconds and
// read back in loc.
type SQLStore struct {
	db  *bun.DB
	loc *time.Location
}

var _ Repository = (*SQLStore)(nil)

// OpenSQL opens (creating if needed) the sqlite database at path. Use
// ":memory:" for a throwaway database.
func OpenSQL(ctx context.Context, path string, loc *time.Location) (*SQLStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?mode=rwc"
	}
	raw, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writes
	raw.SetMaxOpenConns(1)

	s := &SQLStore{db: bun.NewDB(raw, sqlitedialect.New()), loc: loc}
	if err := s.CreateSchema(ctx); err != nil {
		s.db.Close()
		return nil, err
	}
	return s, nil
}

// CreateSchema creates the tables if they do not exist.
func (s *SQLStore) CreateSchema(ctx context.Context) error {
	if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range []interface{}{
			(*eventRow)(nil),
			(*categoryRow)(nil),
			(*settingRow)(nil),
		} {
			if _, err := tx.NewCreateTable().
				Model(m).
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("CreateSchema: %w", err)
	}
	return nil
}

func (s *SQLStore) Events(ctx context.Context) ([]model.Event, error) {
	var rows []eventRow
	if err := s.db.NewSelect().
		Model(&rows).
		OrderExpr("rowid").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	out := make([]model.Event, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].event(s.loc))
	}
	return out, nil
}

func (s *SQLStore) Event(ctx context.Context, id string) (model.Event, error) {
	row := new(eventRow)
	if err := s.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("select event %s: %w", id, err)
	}
	return row.event(s.loc), nil
}

func (s *SQLStore) AddEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	ev, err := prepareNew(ev)
	if err != nil {
		return model.Event{}, err
	}
	if _, err := s.db.NewInsert().
		Model(toRow(ev)).
		Exec(ctx); err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

func (s *SQLStore) UpdateEvent(ctx context.Context, ev model.Event) error {
	ev, err := prepare(ev)
	if err != nil {
		return err
	}
	res, err := s.db.NewUpdate().
		Model(toRow(ev)).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update event %s: %w", ev.ID, err)
	}
	return expectOne(res)
}

func (s *SQLStore) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().
		Model((*eventRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ReplaceSource(ctx context.Context, prefix string, events []model.Event) error {
	rows := make([]*eventRow, 0, len(events))
	for _, ev := range events {
		if !strings.HasPrefix(ev.ID, prefix) {
			return fmt.Errorf("event %s does not belong to source %s", ev.ID, prefix)
		}
		stored, err := prepare(ev)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		rows = append(rows, toRow(stored))
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*eventRow)(nil)).
			Where("substr(id, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear source %s: %w", prefix, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().
			Model(&rows).
			Exec(ctx); err != nil {
			return fmt.Errorf("insert source %s: %w", prefix, err)
		}
		return nil
	})
}

func (s *SQLStore) Categories(ctx context.Context) ([]model.Category, error) {
	var rows []categoryRow
	if err := s.db.NewSelect().
		Model(&rows).
		Order("position").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	out := make([]model.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Category{ID: r.ID, Name: r.Name, Color: r.Color})
	}
	return out, nil
}

func (s *SQLStore) PutCategory(ctx context.Context, c model.Category) error {
	if err := validateCategory(c); err != nil {
		return err
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		position, err := tx.NewSelect().
			Model((*categoryRow)(nil)).
			Count(ctx)
		if err != nil {
			return err
		}
		row := &categoryRow{ID: c.ID, Name: c.Name, Color: c.Color, Position: position}
		if _, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("color = EXCLUDED.color").
			Exec(ctx); err != nil {
			return fmt.Errorf("put category %s: %w", c.ID, err)
		}
		return nil
	})
}

func (s *SQLStore) SelectedCategories(ctx context.Context) (model.CategoryFilter, error) {
	row := new(settingRow)
	err := s.db.NewSelect().
		Model(row).
		Where("name = ?", KeySelectedCategories).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		categories, err := s.Categories(ctx)
		if err != nil {
			return nil, err
		}
		return model.AllCategories(categories), nil
	}
	if err != nil {
		return nil, fmt.Errorf("select filter: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(row.Value), &ids); err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	return model.NewCategoryFilter(ids...), nil
}

func (s *SQLStore) SetSelectedCategories(ctx context.Context, f model.CategoryFilter) error {
	categories, err := s.Categories(ctx)
	if err != nil {
		return err
	}
	value, err := json.Marshal(f.IDs(categories))
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().
		Model(&settingRow{Name: KeySelectedCategories, Value: string(value)}).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx); err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
