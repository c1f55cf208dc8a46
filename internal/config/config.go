package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"calgrid/internal/model"
)

// Environment variables that override the YAML file.
const (
	EnvConfig   = "CALGRID_CONFIG"
	EnvListen   = "CALGRID_LISTEN"
	EnvLogLevel = "CALGRID_LOG_LEVEL"
)

// Store drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// SubscriptionConfig describes a remote ICS feed imported into one category.
type SubscriptionConfig struct {
	// ID is an internal identifier; it prefixes the ids of imported events.
	ID string `yaml:"id" json:"id"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// Name is a human-friendly label for logs.
	Name string `yaml:"name" json:"name"`
	// Category is the category id imported events are filed under.
	Category string `yaml:"category" json:"category"`
}

// CategoryConfig seeds a category on first start.
type CategoryConfig struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// StoreConfig selects where events and categories live.
type StoreConfig struct {
	// Driver is "json" (one file, the same keys the browser used) or "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the JSON file or sqlite database.
	Path string `yaml:"path" json:"path"`
}

// SnapshotConfig drives the headless browser capture of the day view.
type SnapshotConfig struct {
	// Cron is the capture schedule. Empty disables scheduled captures.
	Cron string `yaml:"cron" json:"cron"`
	// URL is the page to capture. Empty means the local server's /calendar.
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is an IANA zone name, or "Local" for the host zone. All
	// layout happens in this zone's wall clock.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Store StoreConfig `yaml:"store" json:"store"`

	// RefreshCron is the cron schedule for re-importing subscriptions.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	// Categories seeds an empty store. When empty the built-in set is used.
	Categories []CategoryConfig `yaml:"categories" json:"categories"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Local",
		WeekStart:   "monday",
		LogLevel:    "info",
		Store:       StoreConfig{Driver: DriverJSON, Path: "calgrid.json"},
		RefreshCron: "*/15 * * * *",
		Snapshot: SnapshotConfig{
			Output: "calendar.png",
			Width:  1280,
			Height: 960,
		},
		Subscriptions: []SubscriptionConfig{},
		Categories:    []CategoryConfig{},
		BasicAuth:     nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = def.WeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverJSON, DriverSQLite:
	default:
		c.Store.Driver = DriverJSON
	}
	if c.Store.Path == "" {
		if c.Store.Driver == DriverSQLite {
			c.Store.Path = "calgrid.db"
		} else {
			c.Store.Path = def.Store.Path
		}
	}

	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Snapshot.Output == "" {
		c.Snapshot.Output = def.Snapshot.Output
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = def.Snapshot.Width
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = def.Snapshot.Height
	}

	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	for i := range c.Subscriptions {
		if c.Subscriptions[i].Category == "" {
			c.Subscriptions[i].Category = "events"
		}
	}
	if c.Categories == nil {
		c.Categories = []CategoryConfig{}
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FirstWeekday returns the configured first day of the week.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// SeedCategories returns the categories an empty store starts with: the
// configured ones with cleaned-up names, or the built-in set.
func (c *Config) SeedCategories() []model.Category {
	if len(c.Categories) == 0 {
		return model.DefaultCategories()
	}
	out := make([]model.Category, 0, len(c.Categories))
	for _, cc := range c.Categories {
		id := strings.ToLower(strings.TrimSpace(cc.ID))
		if id == "" {
			continue
		}
		name := CleanupName(cc.Name)
		if name == "" {
			name = CleanupName(id)
		}
		color := cc.Color
		if color == "" {
			color = "#6B7280"
		}
		out = append(out, model.Category{ID: id, Name: name, Color: color})
	}
	return out
}

// CleanupName trims whitespace and a trailing period and title-cases s.
func CleanupName(s string) string {
	s = strings.TrimSpace(s)
	s = cases.Title(language.English).String(s)
	return strings.TrimSuffix(s, ".")
}

// LoadDotEnv loads .env files into the environment. Missing files are not
// an error; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// ResolvePath picks the config path: an explicit flag value, then
// CALGRID_CONFIG, then def.
func ResolvePath(flagValue, def string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(EnvConfig); v != "" {
		return v
	}
	return def
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Load reads the YAML config at path and normalizes it. On first run, when
// path does not exist, DefaultConfig is written there and returned; a failed
// write still returns the defaults alongside the error.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save normalizes cfg and writes it as YAML through WriteFileAtomic with
// mode 0600, the same writer the JSON store and the feed cache use.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file in path's directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calgrid-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save writes c to path; see the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
