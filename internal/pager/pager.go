// Package pager decides where a pass goes next and carries it out.
package pager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"autoenter/internal/clock"
	"autoenter/internal/model"
)

// NavigationRetryDelay is the pause after a navigation that failed outright.
const NavigationRetryDelay = time.Second

// State is the controller state after a pass.
type State int

// Controller states.
const (
	StateListing State = iota
	StateWaitingForRecharge
	StateWaitingAtEnd
)

func (s State) String() string {
	switch s {
	case StateWaitingForRecharge:
		return "waiting_for_recharge"
	case StateWaitingAtEnd:
		return "waiting_at_end"
	default:
		return "listing"
	}
}

// Action is what happens after a pass: wait Delay, then load Page.
type Action struct {
	State State
	Page  int
	Delay time.Duration
}

// Exhausted reports whether the balance is known to be empty.
func Exhausted(u model.UserState) bool {
	return u.CoinsKnown && u.Coins == 0
}

// Recharge returns the action for a pass that found no coins.
func Recharge(u model.UserState) Action {
	return Action{State: StateWaitingForRecharge, Page: 1, Delay: u.NextRecharge}
}

// Next returns the action for a completed pass on page.
func Next(page int, u model.UserState, hasNext bool, waitOnEnd time.Duration) Action {
	switch {
	case Exhausted(u):
		return Recharge(u)
	case hasNext:
		return Action{State: StateListing, Page: page + 1}
	default:
		return Action{State: StateWaitingAtEnd, Page: 1, Delay: waitOnEnd}
	}
}

// PagePath is the listing path for page, sorted by expiry. Level 0 users only
// see level 0 giveaways.
func PagePath(page, level int) string {
	filter := "all"
	if level == 0 {
		filter = "0"
	}
	return fmt.Sprintf("/giveaways/%d/expiry/asc/level/%s", page, filter)
}

// Navigator loads a path and returns once the page has loaded.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// Controller applies actions.
type Controller struct {
	nav     Navigator
	timeout time.Duration
	sleep   clock.SleepFunc
	log     *slog.Logger
}

// New creates a Controller. A navigation that takes longer than timeout is
// abandoned and issued again.
func New(nav Navigator, timeout time.Duration, log *slog.Logger) *Controller {
	return &Controller{nav: nav, timeout: timeout, sleep: clock.Sleep, log: log}
}

// SetSleep overrides how the controller waits.
func (c *Controller) SetSleep(fn clock.SleepFunc) {
	c.sleep = fn
}

// Apply waits out the action's delay and navigates to its page.
func (c *Controller) Apply(ctx context.Context, act Action, level int) error {
	if act.Delay > 0 {
		c.log.Info("waiting before restart", "state", act.State.String(), "delay", act.Delay)
		if err := c.sleep(ctx, act.Delay); err != nil {
			return err
		}
	}
	return c.navigate(ctx, PagePath(act.Page, level))
}

func (c *Controller) navigate(ctx context.Context, path string) error {
	for attempt := 1; ; attempt++ {
		c.log.Debug("navigating", "path", path, "attempt", attempt)

		navCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.timeout > 0 {
			navCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		err := c.nav.Navigate(navCtx, path)
		cancel()

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			c.log.Warn("navigation seems stuck, retrying", "path", path, "attempt", attempt)
			continue
		}
		c.log.Warn("navigation failed, retrying", "path", path, "attempt", attempt, "error", err)
		if err := c.sleep(ctx, NavigationRetryDelay); err != nil {
			return err
		}
	}
}
