// Package state tracks the authenticated user's level, balance and recharge.
package state

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"autoenter/internal/gala"
	"autoenter/internal/model"
)

// Host is the subset of the host client the tracker reads from.
type Host interface {
	Level(ctx context.Context) (int, error)
	Profile(ctx context.Context) (gala.Profile, error)
}

// Tracker refreshes the user state at the start of every pass.
type Tracker struct {
	host Host
}

// New creates a Tracker.
func New(host Host) *Tracker {
	return &Tracker{host: host}
}

// Refresh reads the level and the profile concurrently and returns a fresh
// state. The owned set is left for the caller to fill in.
func (t *Tracker) Refresh(ctx context.Context) (model.UserState, error) {
	var (
		level   int
		profile gala.Profile
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		level, err = t.host.Level(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		profile, err = t.host.Profile(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return model.UserState{}, fmt.Errorf("refresh user state: %w", err)
	}

	u := model.UserState{Level: level, NextRecharge: profile.NextRecharge}
	u.SetCoins(profile.Coins)
	return u, nil
}
