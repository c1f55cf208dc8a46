package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"calgrid/internal/agenda"
	"calgrid/internal/capture"
	"calgrid/internal/config"
	"calgrid/internal/ics"
	"calgrid/internal/layout"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/scheduler"
	"calgrid/internal/store"
	"calgrid/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	agenda     bool
	view       string
	date       string
	snapshot   bool
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		appLog.Error("failed to load .env", err)
	}

	flags := parseFlags()

	path := config.ResolvePath(flags.configPath, "calgrid.yaml")
	conf, err := config.Load(path)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", path)
		os.Exit(1)
	}
	conf.ApplyEnv()
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("calgrid starting",
		"version", version,
		"config_path", path,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"store", conf.Store.Driver,
		"subscriptions", len(conf.Subscriptions),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := store.Open(ctx, conf)
	if err != nil {
		appLog.Error("failed to open store", err)
		os.Exit(1)
	}
	defer repo.Close()

	switch {
	case flags.agenda:
		err = printAgenda(ctx, conf, repo, flags)
	case flags.snapshot:
		err = snapshotOnce(ctx, conf, repo)
	default:
		err = serve(ctx, conf, repo)
	}
	if err != nil {
		appLog.Error("calgrid failed", err)
		os.Exit(1)
	}
	appLog.Info("calgrid exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "", "Path to config file (default $"+config.EnvConfig+" or ./calgrid.yaml)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.agenda, "agenda", false, "Print the agenda to stdout and exit")
	flag.StringVar(&cfg.view, "view", "day", "Agenda view: day or week")
	flag.StringVar(&cfg.date, "date", "", "Agenda date as 2006-01-02 (default today)")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Capture one screenshot of the day view and exit")

	flag.Parse()

	return cfg
}

// serve runs the HTTP server and the scheduler until ctx is cancelled.
func serve(ctx context.Context, conf *config.Config, repo store.Repository) error {
	srv := web.NewServer(conf, repo)

	if js, ok := repo.(*store.JSONStore); ok {
		go func() {
			if err := js.Watch(ctx, srv.Invalidate); err != nil {
				appLog.Error("store watcher stopped", err)
			}
		}()
	}

	sched, err := scheduler.New(conf, repo, ics.NewFetcher(cacheDir(conf)), capture.Snapshot, srv.Invalidate)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	err = srv.ListenAndServe(ctx)
	wg.Wait()
	return err
}

// snapshotOnce serves the UI just long enough to capture it.
func snapshotOnce(ctx context.Context, conf *config.Config, repo store.Repository) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := web.NewServer(conf, repo)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// give the listener a moment before the browser connects
	select {
	case err := <-errCh:
		return err
	case <-time.After(200 * time.Millisecond):
	}

	opts := capture.OptionsFromConfig(conf)
	if err := capture.Snapshot(ctx, opts); err != nil {
		return err
	}
	appLog.Info("snapshot written", "path", opts.OutputPath)

	cancel()
	return <-errCh
}

func printAgenda(ctx context.Context, conf *config.Config, repo store.Repository, flags flagConfig) error {
	loc := conf.Location()
	day := time.Now().In(loc)
	if flags.date != "" {
		t, err := time.ParseInLocation(time.DateOnly, flags.date, loc)
		if err != nil {
			return fmt.Errorf("parse -date: %w", err)
		}
		day = t
	}
	mode, err := model.ParseViewMode(flags.view)
	if err != nil {
		return err
	}

	events, err := repo.Events(ctx)
	if err != nil {
		return err
	}
	categories, err := repo.Categories(ctx)
	if err != nil {
		return err
	}
	filter, err := repo.SelectedCategories(ctx)
	if err != nil {
		return err
	}

	p := agenda.NewPrinter(os.Stdout, 80, time.Now().In(loc))
	switch mode {
	case model.ViewDay:
		return p.Day(layout.LayoutDay(events, categories, day, filter))
	case model.ViewWeek:
		return p.Week(layout.LayoutWeek(events, categories, day, conf.FirstWeekday(), filter))
	default:
		return fmt.Errorf("agenda supports day and week views, not %s", mode)
	}
}

// cacheDir keeps feed caches next to the store file.
func cacheDir(conf *config.Config) string {
	return filepath.Join(filepath.Dir(conf.Store.Path), "ics-cache")
}
