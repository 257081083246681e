package pager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"autoenter/internal/model"
)

func coins(n int, recharge time.Duration) model.UserState {
	u := model.UserState{Level: 1, NextRecharge: recharge}
	u.SetCoins(n)
	return u
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		user    model.UserState
		hasNext bool
		want    Action
	}{
		{
			name:    "no coins waits for recharge",
			page:    3,
			user:    coins(0, 5*time.Minute),
			hasNext: true,
			want:    Action{State: StateWaitingForRecharge, Page: 1, Delay: 5 * time.Minute},
		},
		{
			name: "end of list waits and restarts",
			page: 3,
			user: coins(10, 5*time.Minute),
			want: Action{State: StateWaitingAtEnd, Page: 1, Delay: time.Hour},
		},
		{
			name:    "next page is immediate",
			page:    3,
			user:    coins(10, 5*time.Minute),
			hasNext: true,
			want:    Action{State: StateListing, Page: 4},
		},
		{
			name:    "unknown balance keeps going",
			page:    1,
			user:    model.UserState{},
			hasNext: true,
			want:    Action{State: StateListing, Page: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(tt.page, tt.user, tt.hasNext, time.Hour)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Next() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExhausted(t *testing.T) {
	if !Exhausted(coins(0, 0)) {
		t.Error("known zero balance should be exhausted")
	}
	if Exhausted(coins(1, 0)) {
		t.Error("positive balance should not be exhausted")
	}
	if Exhausted(model.UserState{}) {
		t.Error("unknown balance should not be exhausted")
	}
}

func TestPagePath(t *testing.T) {
	if diff := cmp.Diff("/giveaways/1/expiry/asc/level/0", PagePath(1, 0)); diff != "" {
		t.Errorf("level 0 path mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("/giveaways/7/expiry/asc/level/all", PagePath(7, 3)); diff != "" {
		t.Errorf("leveled path mismatch (-want +got):\n%s", diff)
	}
}

type navFunc func(ctx context.Context, path string) error

type fakeNav struct {
	paths []string
	fn    navFunc
}

func (f *fakeNav) Navigate(ctx context.Context, path string) error {
	f.paths = append(f.paths, path)
	if f.fn != nil {
		return f.fn(ctx, path)
	}
	return nil
}

type recordedSleeps struct {
	waits []time.Duration
	err   error
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return r.err
}

func newTestController(nav Navigator, timeout time.Duration) (*Controller, *recordedSleeps) {
	c := New(nav, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := &recordedSleeps{}
	c.SetSleep(rec.sleep)
	return c, rec
}

func TestApply(t *testing.T) {
	tests := []struct {
		name      string
		act       Action
		level     int
		wantWaits []time.Duration
		wantPaths []string
	}{
		{
			name:      "recharge restarts at page one",
			act:       Action{State: StateWaitingForRecharge, Page: 1, Delay: 5 * time.Minute},
			level:     2,
			wantWaits: []time.Duration{5 * time.Minute},
			wantPaths: []string{"/giveaways/1/expiry/asc/level/all"},
		},
		{
			name:      "next page navigates without waiting",
			act:       Action{State: StateListing, Page: 4},
			level:     0,
			wantPaths: []string{"/giveaways/4/expiry/asc/level/0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &fakeNav{}
			c, rec := newTestController(nav, time.Second)
			if err := c.Apply(context.Background(), tt.act, tt.level); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantWaits, rec.waits); diff != "" {
				t.Errorf("waits mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantPaths, nav.paths); diff != "" {
				t.Errorf("navigation mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyNoNavigationDuringWait(t *testing.T) {
	nav := &fakeNav{}
	c, rec := newTestController(nav, time.Second)
	rec.err = context.Canceled

	err := c.Apply(context.Background(), Recharge(coins(0, 5*time.Minute)), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(nav.paths) != 0 {
		t.Errorf("no navigation should happen before the wait ends, got %v", nav.paths)
	}
}

func TestApplyRetriesStuckNavigation(t *testing.T) {
	calls := 0
	nav := &fakeNav{fn: func(ctx context.Context, _ string) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		if calls == 2 {
			return errors.New("net::ERR_ABORTED")
		}
		return nil
	}}
	c, rec := newTestController(nav, 10*time.Millisecond)

	if err := c.Apply(context.Background(), Action{Page: 2}, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"/giveaways/2/expiry/asc/level/all",
		"/giveaways/2/expiry/asc/level/all",
		"/giveaways/2/expiry/asc/level/all",
	}
	if diff := cmp.Diff(want, nav.paths); diff != "" {
		t.Errorf("navigation mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{NavigationRetryDelay}, rec.waits); diff != "" {
		t.Errorf("waits mismatch (-want +got):\n%s", diff)
	}
}
