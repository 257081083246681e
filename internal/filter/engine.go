// Package filter implements the giveaway eligibility engine.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"autoenter/internal/model"
)

// Evaluate runs the eligibility checks against a giveaway in a fixed order
// and returns at the first failing one. Neither g nor user is modified.
func Evaluate(g model.Giveaway, user model.UserState, p model.Policy) model.Verdict {
	switch {
	case g.Entered:
		return reject(model.ReasonEntered, "already entered")
	case g.Owned == model.OwnershipOwned && p.SkipOwned:
		return reject(model.ReasonOwned, "already owned")
	}

	if g.Content == model.ContentDLC && p.SkipDLC.Enabled() {
		if p.SkipDLC != model.DLCMissingBaseGame {
			return reject(model.ReasonDLC, "game is a DLC")
		}
		if g.BaseOwned == model.OwnershipNotOwned {
			return reject(model.ReasonDLC, "base game of this DLC is not owned")
		}
	}

	if pat, ok := matchAny(p.GameBlacklist, g.Name); ok {
		return reject(model.ReasonGameBlacklisted, fmt.Sprintf("game matches %s", pat))
	}
	if pat, ok := matchAny(p.UserBlacklist, g.By); ok {
		return reject(model.ReasonUserBlacklisted, fmt.Sprintf("user %q matches %s", g.By, pat))
	}

	switch {
	case !g.Guaranteed && p.OnlyGuaranteed:
		return reject(model.ReasonNotGuaranteed, "key is not guaranteed")
	case p.MaxParticipants > 0 && g.Participants > p.MaxParticipants:
		return reject(model.ReasonTooManyParticipants,
			fmt.Sprintf("participants: %d, max: %d", g.Participants, p.MaxParticipants))
	case p.MaxPrice > 0 && g.Price > p.MaxPrice:
		return reject(model.ReasonTooExpensive, fmt.Sprintf("price: %d, max: %d", g.Price, p.MaxPrice))
	case g.IDKind == model.IDKindSub && p.SkipSubs:
		return reject(model.ReasonSub, fmt.Sprintf("linked to %s", g.GameID))
	case g.MinLevel > user.Level:
		return reject(model.ReasonLevel, fmt.Sprintf("mine: %d, needed: %d", user.Level, g.MinLevel))
	case user.CoinsKnown && g.Price > user.Coins:
		return reject(model.ReasonFunds, fmt.Sprintf("mine: %d, needed: %d", user.Coins, g.Price))
	}

	return model.Verdict{Admit: true}
}

func reject(r model.Reason, detail string) model.Verdict {
	return model.Verdict{Reason: r, Detail: detail}
}

func matchAny(patterns []model.Pattern, name string) (model.Pattern, bool) {
	for _, p := range patterns {
		if p.Match(name) {
			return p, true
		}
	}
	return model.Pattern{}, false
}

// ParsePatterns turns configured blacklist entries into patterns.
// Entries wrapped in slashes ("/re/" or "/re/i") are regular expressions,
// everything else matches the name exactly. Blank entries are ignored.
func ParsePatterns(raw []string) ([]model.Pattern, error) {
	var out []model.Pattern
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p, err := parsePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func parsePattern(s string) (model.Pattern, error) {
	if len(s) < 2 || s[0] != '/' {
		return model.Pattern{Exact: s}, nil
	}
	body := s[1:]
	flags := ""
	switch {
	case strings.HasSuffix(body, "/i"):
		body, flags = body[:len(body)-2], "(?i)"
	case strings.HasSuffix(body, "/"):
		body = body[:len(body)-1]
	default:
		return model.Pattern{Exact: s}, nil
	}
	if body == "" {
		return model.Pattern{}, fmt.Errorf("pattern %q: empty regex", s)
	}
	if err := ValidateRegex(flags + body); err != nil {
		return model.Pattern{}, fmt.Errorf("pattern %q: %w", s, err)
	}
	return model.Pattern{Re: regexp.MustCompile(flags + body)}, nil
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
