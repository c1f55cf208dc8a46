package capture

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/chromedp/chromedp"

	"calgrid/internal/config"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 960
	DefaultTimeout = 30 * time.Second
)

// Options describes one screenshot of the calendar page.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar?view=day".
	URL        string
	OutputPath string
	Width      int
	Height     int
	// Timeout bounds the whole capture, browser start included.
	Timeout time.Duration
}

// OptionsFromConfig builds capture options from the snapshot section. An
// empty snapshot URL points at the day view of the local server.
func OptionsFromConfig(cfg *config.Config) Options {
	target := cfg.Snapshot.URL
	if target == "" {
		target = "http://" + dialable(cfg.Listen) + "/calendar?view=day"
	}
	return Options{
		URL:        target,
		OutputPath: cfg.Snapshot.Output,
		Width:      cfg.Snapshot.Width,
		Height:     cfg.Snapshot.Height,
	}
}

// dialable turns a listen address such as ":8080" or "0.0.0.0:8080" into
// one a browser can connect to.
func dialable(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Snapshot opens opts.URL in headless Chromium, waits until the page marks
// its grid with data-ready="true", and writes a PNG screenshot.
func Snapshot(parent context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	opts = opts.withDefaults()

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	if err := chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// let the last paint land
		chromedp.Sleep(300*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := config.WriteFileAtomic(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
