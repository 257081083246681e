// Package entry submits entries for the giveaways that pass the filter.
package entry

import (
	"context"
	"log/slog"
	"time"

	"autoenter/internal/filter"
	"autoenter/internal/model"
)

// Host submits a single entry.
type Host interface {
	Enter(ctx context.Context, id string, price int) (model.EntryResult, error)
}

// Journal records every entry attempt.
type Journal interface {
	RecordEntry(ctx context.Context, e *model.Entry) error
}

// Notifier is told about successful entries.
type Notifier interface {
	NotifyEntry(e model.Entry)
}

// Submitter enters giveaways one at a time.
type Submitter struct {
	host     Host
	journal  Journal
	notifier Notifier
	policy   model.Policy
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Submitter. journal and notifier may be nil.
func New(host Host, journal Journal, notifier Notifier, policy model.Policy, log *slog.Logger) *Submitter {
	return &Submitter{
		host:     host,
		journal:  journal,
		notifier: notifier,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
}

// SetNotifier replaces the notifier.
func (s *Submitter) SetNotifier(n Notifier) {
	s.notifier = n
}

// Submit walks gs in order, entering every giveaway the filter admits
// against the balance left by the previous entries, and returns the
// updated user state. A failed entry never stops the walk; only a
// cancelled ctx does.
func (s *Submitter) Submit(ctx context.Context, gs []model.Giveaway, user model.UserState) (model.UserState, error) {
	for _, g := range gs {
		if err := ctx.Err(); err != nil {
			return user, err
		}

		v := filter.Evaluate(g, user, s.policy)
		if !v.Admit {
			s.log.Debug("skipping giveaway", "id", g.ID, "name", g.Name, "reason", v.Reason.String(), "detail", v.Detail)
			continue
		}

		res, err := s.host.Enter(ctx, g.ID, g.Price)
		if err != nil {
			if ctx.Err() != nil {
				return user, ctx.Err()
			}
			s.log.Error("failed to submit entry", "id", g.ID, "name", g.Name, "error", err)
			continue
		}

		switch res.Status {
		case model.EntryStatusOK:
			if res.NewAmount != nil {
				user.SetCoins(*res.NewAmount)
			} else {
				user.SetCoins(user.Coins - g.Price)
			}
			s.log.Info("entered giveaway", "id", g.ID, "name", g.Name, "price", g.Price, "coins", user.Coins)
		case model.EntryStatusInsufficientCredit:
			estimate := g.Price - 1
			if user.CoinsKnown {
				estimate = min(user.Coins, estimate)
			}
			user.SetCoins(estimate)
			s.log.Warn("insufficient coins for entry", "id", g.ID, "name", g.Name, "price", g.Price, "coins", user.Coins)
		default:
			s.log.Error("entry rejected", "id", g.ID, "name", g.Name, "status", res.Status)
		}

		s.record(ctx, g, res, user)
	}
	return user, nil
}

func (s *Submitter) record(ctx context.Context, g model.Giveaway, res model.EntryResult, user model.UserState) {
	e := model.Entry{
		GiveawayID: g.ID,
		Name:       g.Name,
		Price:      g.Price,
		Status:     res.Status,
		EnteredAt:  s.now().UTC(),
	}
	if user.CoinsKnown {
		coins := user.Coins
		e.BalanceAfter = &coins
	}

	if s.journal != nil {
		if err := s.journal.RecordEntry(ctx, &e); err != nil {
			s.log.Warn("failed to record entry", "id", g.ID, "error", err)
		}
	}
	if s.notifier != nil && res.Status == model.EntryStatusOK {
		s.notifier.NotifyEntry(e)
	}
}
