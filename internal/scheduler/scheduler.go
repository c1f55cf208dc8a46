// Package scheduler runs the periodic jobs: re-importing subscribed feeds
// and capturing snapshots of the day view.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"calgrid/internal/capture"
	"calgrid/internal/config"
	"calgrid/internal/ics"
	appLog "calgrid/internal/log"
	"calgrid/internal/metric"
	"calgrid/internal/store"
)

// SnapshotFunc captures the calendar page. It is capture.Snapshot outside
// of tests.
type SnapshotFunc func(ctx context.Context, opts capture.Options) error

type Scheduler struct {
	repo     store.Repository
	fetcher  *ics.Fetcher
	sources  []ics.Source
	loc      *time.Location
	snapshot SnapshotFunc
	opts     capture.Options
	onChange func()

	cron *cron.Cron
}

// New registers the refresh job, and the snapshot job when snap is non-nil
// and a snapshot schedule is configured. Jobs start with Run.
//
// onChange, if set, runs after every import that wrote to repo.
func New(cfg *config.Config, repo store.Repository, fetcher *ics.Fetcher, snap SnapshotFunc, onChange func()) (*Scheduler, error) {
	s := &Scheduler{
		repo:     repo,
		fetcher:  fetcher,
		sources:  ics.SourcesFromConfig(cfg.Subscriptions),
		loc:      cfg.Location(),
		snapshot: snap,
		opts:     capture.OptionsFromConfig(cfg),
		onChange: onChange,
		cron:     cron.New(cron.WithLocation(cfg.Location())),
	}

	if len(s.sources) > 0 {
		if _, err := s.cron.AddFunc(cfg.RefreshCron, func() {
			s.RefreshAll(context.Background())
		}); err != nil {
			return nil, fmt.Errorf("refresh schedule %q: %w", cfg.RefreshCron, err)
		}
	}
	if snap != nil && cfg.Snapshot.Cron != "" {
		if _, err := s.cron.AddFunc(cfg.Snapshot.Cron, func() {
			s.Snapshot(context.Background())
		}); err != nil {
			return nil, fmt.Errorf("snapshot schedule %q: %w", cfg.Snapshot.Cron, err)
		}
	}
	return s, nil
}

// Run does an initial refresh, starts the cron and blocks until ctx is
// done. Running jobs are allowed to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.RefreshAll(ctx)

	s.cron.Start()
	appLog.Info("scheduler started", "jobs", len(s.cron.Entries()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}

// RefreshAll imports every source, continuing past failures. The returned
// error joins the per-source errors.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, src := range s.sources {
		err := s.refresh(ctx, src)
		metric.SubscriptionRefreshes.WithLabelValues(src.ID, metric.Result(err)).Inc()
		if err != nil {
			appLog.Error("subscription refresh failed", err, "id", src.ID)
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
		}
	}

	if events, err := s.repo.Events(ctx); err == nil {
		metric.StoredEvents.Set(float64(len(events)))
	}
	return errors.Join(errs...)
}

func (s *Scheduler) refresh(ctx context.Context, src ics.Source) error {
	res, err := s.fetcher.FetchOne(ctx, src)
	if err != nil {
		return err
	}
	events, err := ics.ParseICS(src, res.Body, s.loc)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceSource(ctx, ics.EventIDPrefix(src.ID), events); err != nil {
		return err
	}
	if s.onChange != nil {
		s.onChange()
	}
	appLog.Info("subscription imported", "id", src.ID, "events", len(events), "from_cache", res.FromCache)
	return nil
}

// Snapshot captures the configured page once.
func (s *Scheduler) Snapshot(ctx context.Context) error {
	if s.snapshot == nil {
		return errors.New("snapshots are not enabled")
	}
	err := s.snapshot(ctx, s.opts)
	metric.Snapshots.WithLabelValues(metric.Result(err)).Inc()
	if err != nil {
		appLog.Error("snapshot failed", err, "url", s.opts.URL)
		return err
	}
	appLog.Info("snapshot written", "path", s.opts.OutputPath)
	return nil
}
