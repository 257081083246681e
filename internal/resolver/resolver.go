// Package resolver annotates giveaways with ownership and content type.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"autoenter/internal/cache"
	"autoenter/internal/model"
	"autoenter/internal/steam"
)

// Cache keys.
const (
	OwnedGamesKey  = "ownedGames"
	AppDetailsKey  = "appsDetails"
	detailsWorkers = 4
)

// SteamAPI is the subset of the Steam client the resolver needs.
type SteamAPI interface {
	OwnedGames(ctx context.Context, key, steamID string) ([]int64, error)
	AppDetails(ctx context.Context, appID int64) (model.AppDetails, error)
}

// Options configures the owned games lookup.
type Options struct {
	APIKey   string
	SteamID  string
	OwnedTTL time.Duration
}

// Resolver looks up what the user owns and what each giveaway contains.
type Resolver struct {
	steam  SteamAPI
	cache  *cache.Cache
	policy model.Policy
	opts   Options
	log    *slog.Logger
}

// New creates a Resolver.
func New(api SteamAPI, c *cache.Cache, policy model.Policy, opts Options, log *slog.Logger) *Resolver {
	return &Resolver{steam: api, cache: c, policy: policy, opts: opts, log: log}
}

func (r *Resolver) needsOwned() bool {
	return r.policy.SkipOwned || r.policy.SkipDLC == model.DLCMissingBaseGame
}

// OwnedGames returns the user's owned apps, served from cache while fresh.
// It returns nil when ownership is not needed or cannot be determined.
func (r *Resolver) OwnedGames(ctx context.Context) model.OwnedSet {
	if !r.needsOwned() {
		return nil
	}
	if r.opts.APIKey == "" || r.opts.SteamID == "" {
		r.log.Warn("steam api key or user id not set, ownership checks disabled")
		return nil
	}

	ids, err := cache.Get[[]int64](ctx, r.cache, OwnedGamesKey, nil)
	if err != nil {
		r.log.Warn("failed to read owned games cache", "error", err)
	}
	if ids != nil {
		return model.NewOwnedSet(ids)
	}

	ids, err = r.steam.OwnedGames(ctx, r.opts.APIKey, r.opts.SteamID)
	if errors.Is(err, steam.ErrNoLibrary) {
		r.log.Warn("steam profile hides its games, ownership unknown")
		return nil
	}
	if err != nil {
		r.log.Error("failed to fetch owned games", "error", err)
		return nil
	}
	r.log.Info("fetched owned games", "count", len(ids))
	if err := cache.Set(ctx, r.cache, OwnedGamesKey, ids, r.opts.OwnedTTL); err != nil {
		r.log.Warn("failed to cache owned games", "error", err)
	}
	return model.NewOwnedSet(ids)
}

// Annotate returns copies of gs with ownership and, when DLCs are filtered,
// content type filled in. Lookup failures leave the fields unknown; only a
// cancelled ctx is returned as an error.
func (r *Resolver) Annotate(ctx context.Context, gs []model.Giveaway, owned model.OwnedSet) ([]model.Giveaway, error) {
	var details map[string]model.AppDetails
	if r.policy.SkipDLC.Enabled() {
		var err error
		if details, err = r.appDetails(ctx, gs); err != nil {
			return nil, err
		}
	}

	out := make([]model.Giveaway, len(gs))
	for i, g := range gs {
		var e model.Enrichment
		if g.IDKind == model.IDKindApp {
			e.Owned = owned.Lookup(g.SteamID)
			if d, ok := details[strconv.FormatInt(g.SteamID, 10)]; ok {
				e.Content = model.ContentGame
				if d.Type == "dlc" {
					e.Content = model.ContentDLC
					e.BaseOwned = owned.Lookup(d.BaseGame)
				}
			}
		}
		out[i] = g.Enrich(e)
	}
	return out, nil
}

// appDetails returns cached metadata for every app on the page, fetching the
// missing ones concurrently and saving the merged map once all are done.
func (r *Resolver) appDetails(ctx context.Context, gs []model.Giveaway) (map[string]model.AppDetails, error) {
	details, err := cache.Get(ctx, r.cache, AppDetailsKey, map[string]model.AppDetails{})
	if err != nil {
		r.log.Warn("failed to read app details cache", "error", err)
	}
	if details == nil {
		details = map[string]model.AppDetails{}
	}

	seen := make(map[int64]bool)
	var missing []int64
	for _, g := range gs {
		if g.IDKind != model.IDKindApp || g.SteamID == 0 || seen[g.SteamID] {
			continue
		}
		seen[g.SteamID] = true
		if _, ok := details[strconv.FormatInt(g.SteamID, 10)]; !ok {
			missing = append(missing, g.SteamID)
		}
	}
	if len(missing) == 0 {
		return details, nil
	}

	var (
		mu      sync.Mutex
		fetched int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(detailsWorkers)
	for _, id := range missing {
		eg.Go(func() error {
			d, err := r.steam.AppDetails(egCtx, id)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				if errors.Is(err, steam.ErrNotFound) {
					r.log.Debug("no store details for app", "app_id", id)
				} else {
					r.log.Warn("failed to fetch app details", "app_id", id, "error", err)
				}
				return nil
			}
			mu.Lock()
			details[strconv.FormatInt(id, 10)] = d
			fetched++
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if fetched > 0 {
		if err := cache.Set(ctx, r.cache, AppDetailsKey, details, 0); err != nil {
			r.log.Warn("failed to cache app details", "error", err)
		}
	}
	return details, nil
}
