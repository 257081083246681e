// Package watchdog reloads the page when the host shows its account warning.
package watchdog

import (
	"context"
	"log/slog"
	"time"

	"autoenter/internal/clock"
)

// Defaults for the polling loop.
const (
	PollInterval    = time.Second
	GracePeriod     = 5 * time.Second
	WarningSelector = ".warning-cover"
)

// Page is what the watchdog observes and acts on.
type Page interface {
	Visible(ctx context.Context, selector string) (bool, error)
	Reload(ctx context.Context) error
}

// Watchdog polls for the warning overlay.
type Watchdog struct {
	page  Page
	sleep clock.SleepFunc
	log   *slog.Logger
}

// New creates a Watchdog.
func New(page Page, log *slog.Logger) *Watchdog {
	return &Watchdog{page: page, sleep: clock.Sleep, log: log}
}

// SetSleep overrides how the watchdog waits.
func (w *Watchdog) SetSleep(fn clock.SleepFunc) {
	w.sleep = fn
}

// Run polls until the warning shows up, then waits the grace period, reloads
// and returns. It returns ctx.Err() if ctx ends first.
func (w *Watchdog) Run(ctx context.Context) error {
	for {
		visible, err := w.page.Visible(ctx, WarningSelector)
		if err != nil && ctx.Err() == nil {
			w.log.Debug("watchdog poll failed", "error", err)
		}
		if visible {
			break
		}
		if err := w.sleep(ctx, PollInterval); err != nil {
			return err
		}
	}

	w.log.Warn("account warning detected, reloading", "grace", GracePeriod)
	if err := w.sleep(ctx, GracePeriod); err != nil {
		return err
	}
	return w.page.Reload(ctx)
}
