package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"autoenter/internal/clock"
	"autoenter/internal/feed"
	"autoenter/internal/listing"
	"autoenter/internal/model"
	"autoenter/internal/pager"
)

// ErrNotListing is returned by Run when the browser is not on a listing page.
var ErrNotListing = errors.New("not on a giveaway listing page")

var errReloaded = errors.New("page reloaded by watchdog")

// Browser is the page the scheduler works on.
type Browser interface {
	Location(ctx context.Context) (string, error)
	HTML(ctx context.Context, selector string) (string, error)
	Reload(ctx context.Context) error
}

// Watchdog blocks until it has reloaded the page or ctx ends.
type Watchdog interface {
	Run(ctx context.Context) error
}

// Tracker reads the user state.
type Tracker interface {
	Refresh(ctx context.Context) (model.UserState, error)
}

// Resolver fills in ownership and content type.
type Resolver interface {
	OwnedGames(ctx context.Context) model.OwnedSet
	Annotate(ctx context.Context, gs []model.Giveaway, owned model.OwnedSet) ([]model.Giveaway, error)
}

// Submitter enters the eligible giveaways.
type Submitter interface {
	Submit(ctx context.Context, gs []model.Giveaway, user model.UserState) (model.UserState, error)
}

// Pager waits and navigates after a pass.
type Pager interface {
	Apply(ctx context.Context, act pager.Action, level int) error
}

// Journal lists recent entries for the feed.
type Journal interface {
	ListEntries(ctx context.Context, limit int) ([]model.Entry, error)
}

// Deps are the collaborators of a Scheduler. Journal is only needed when a
// feed path is set.
type Deps struct {
	Browser   Browser
	Watchdog  Watchdog
	Tracker   Tracker
	Resolver  Resolver
	Submitter Submitter
	Pager     Pager
	Journal   Journal
}

// Options tunes the pass loop.
type Options struct {
	BaseURL    string
	FeedPath   string
	WaitOnEnd  time.Duration
	Timeout    time.Duration
	RetryDelay time.Duration
}

// Scheduler runs passes over the listing pages forever.
type Scheduler struct {
	deps  Deps
	opts  Options
	log   *slog.Logger
	sleep clock.SleepFunc
	now   func() time.Time

	mu     sync.Mutex
	status model.RunStatus
}

// New creates a Scheduler.
func New(deps Deps, opts Options, log *slog.Logger) *Scheduler {
	return &Scheduler{
		deps:   deps,
		opts:   opts,
		log:    log,
		sleep:  clock.Sleep,
		now:    time.Now,
		status: model.RunStatus{State: "starting"},
	}
}

// SetSleep overrides how the scheduler waits after a failed pass.
func (s *Scheduler) SetSleep(fn clock.SleepFunc) {
	s.sleep = fn
}

// Status returns a snapshot of the current state.
func (s *Scheduler) Status() model.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) update(fn func(st *model.RunStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.status)
	s.status.User.Owned = nil
}

// Run performs passes until ctx ends or the browser leaves the listing.
// A failed pass is logged and retried after a reload.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		loc, err := s.deps.Browser.Location(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error("read location", "error", err)
			s.recover(ctx)
			continue
		}
		page, ok := listing.CurrentPage(loc)
		if !ok {
			s.log.Warn("browser left the giveaway listing, stopping", "location", loc)
			return fmt.Errorf("%w: %s", ErrNotListing, loc)
		}

		if err := s.cycle(ctx, page); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, errReloaded) {
				continue
			}
			s.log.Error("pass failed", "page", page, "error", err)
			s.recover(ctx)
		}
	}
}

// cycle runs one pass on page and applies the resulting action, with the
// watchdog active for the whole time.
func (s *Scheduler) cycle(ctx context.Context, page int) error {
	cycleCtx, cancel := context.WithCancelCause(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel(nil)
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.deps.Watchdog.Run(cycleCtx); err == nil {
			cancel(errReloaded)
		} else if cycleCtx.Err() == nil {
			s.log.Warn("watchdog stopped", "error", err)
		}
	}()

	log := s.log.With("pass", uuid.NewString(), "page", page)
	s.update(func(st *model.RunStatus) {
		st.State = "running"
		st.Page = page
	})

	act, user, err := s.pass(cycleCtx, page, log)
	if err == nil {
		log.Info("pass finished", "next", act.State.String(), "next_page", act.Page, "delay", act.Delay, "coins", user.Coins)
		s.update(func(st *model.RunStatus) {
			st.State = act.State.String()
			st.LastPass = s.now()
			st.NextRun = s.now().Add(act.Delay)
		})
		err = s.deps.Pager.Apply(cycleCtx, act, user.Level)
	}

	if err != nil && errors.Is(context.Cause(cycleCtx), errReloaded) {
		log.Info("pass interrupted by watchdog reload")
		return errReloaded
	}
	return err
}

func (s *Scheduler) pass(ctx context.Context, page int, log *slog.Logger) (pager.Action, model.UserState, error) {
	var (
		user  model.UserState
		owned model.OwnedSet
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		user, err = s.deps.Tracker.Refresh(egCtx)
		return err
	})
	eg.Go(func() error {
		owned = s.deps.Resolver.OwnedGames(egCtx)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return pager.Action{}, user, err
	}
	user.Owned = owned
	s.update(func(st *model.RunStatus) { st.User = user })
	log.Info("user state", "level", user.Level, "coins", user.Coins, "next_recharge", user.NextRecharge, "owned", len(owned))

	if pager.Exhausted(user) {
		log.Info("no coins left, waiting for recharge", "delay", user.NextRecharge)
		return pager.Recharge(user), user, nil
	}

	htmlCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.opts.Timeout > 0 {
		htmlCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
	}
	html, err := s.deps.Browser.HTML(htmlCtx, listing.ContentSelector)
	cancel()
	if err != nil {
		return pager.Action{}, user, fmt.Errorf("read listing: %w", err)
	}

	lp, err := listing.Parse(html, log)
	if err != nil {
		return pager.Action{}, user, err
	}
	log.Debug("parsed listing", "giveaways", len(lp.Giveaways), "has_next", lp.HasNext)

	gs, err := s.deps.Resolver.Annotate(ctx, lp.Giveaways, owned)
	if err != nil {
		return pager.Action{}, user, fmt.Errorf("annotate giveaways: %w", err)
	}

	user, err = s.deps.Submitter.Submit(ctx, gs, user)
	if err != nil {
		return pager.Action{}, user, fmt.Errorf("submit entries: %w", err)
	}
	s.update(func(st *model.RunStatus) { st.User = user })

	s.publishFeed(ctx, log)
	return pager.Next(page, user, lp.HasNext, s.opts.WaitOnEnd), user, nil
}

func (s *Scheduler) publishFeed(ctx context.Context, log *slog.Logger) {
	if s.opts.FeedPath == "" || s.deps.Journal == nil {
		return
	}
	entries, err := s.deps.Journal.ListEntries(ctx, feed.Size)
	if err != nil {
		log.Error("list entries for feed", "error", err)
		return
	}
	if err := feed.Write(s.opts.FeedPath, feed.Build(entries, s.opts.BaseURL, s.now())); err != nil {
		log.Error("write feed", "path", s.opts.FeedPath, "error", err)
	}
}

// recover waits out the retry delay and reloads the page.
func (s *Scheduler) recover(ctx context.Context) {
	s.update(func(st *model.RunStatus) {
		st.State = "retrying"
		st.NextRun = s.now().Add(s.opts.RetryDelay)
	})
	if err := s.sleep(ctx, s.opts.RetryDelay); err != nil {
		return
	}
	if err := s.deps.Browser.Reload(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("reload after failed pass", "error", err)
	}
}
