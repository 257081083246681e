// Package model defines the domain types used across the application.
package model

import (
	"regexp"
	"time"
)

// IDKind tells what a giveaway's linked Steam id refers to.
type IDKind int

// Supported id kinds.
const (
	IDKindNone IDKind = iota
	IDKindApp
	IDKindSub
)

func (k IDKind) String() string {
	switch k {
	case IDKindApp:
		return "app"
	case IDKindSub:
		return "sub"
	default:
		return "none"
	}
}

// Ownership is a tri-state answer to "does the user own this".
type Ownership int

// Ownership states.
const (
	OwnershipUnknown Ownership = iota
	OwnershipOwned
	OwnershipNotOwned
)

// ContentType classifies the product behind a giveaway.
type ContentType int

// Content types.
const (
	ContentUnknown ContentType = iota
	ContentGame
	ContentDLC
)

// Giveaway is one offer on a listing page. It is built once by the listing
// parser and only changed through Enrich, which returns a copy.
type Giveaway struct {
	ID           string
	Name         string
	Price        int
	MinLevel     int
	Participants int
	Guaranteed   bool
	By           string
	Entered      bool
	GameID       string
	SteamID      int64
	IDKind       IDKind

	Owned     Ownership
	Content   ContentType
	BaseOwned Ownership
}

// Enrichment carries the fields filled in by the ownership resolver.
type Enrichment struct {
	Owned     Ownership
	Content   ContentType
	BaseOwned Ownership
}

// Enrich returns a copy of g annotated with e.
func (g Giveaway) Enrich(e Enrichment) Giveaway {
	g.Owned = e.Owned
	g.Content = e.Content
	g.BaseOwned = e.BaseOwned
	return g
}

// OwnedSet is the set of Steam app ids the user owns. A nil set means the
// owned list is unavailable.
type OwnedSet map[int64]struct{}

// NewOwnedSet builds an OwnedSet from a list of app ids.
func NewOwnedSet(ids []int64) OwnedSet {
	s := make(OwnedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Lookup reports whether id is owned, or unknown when the set is unavailable.
func (s OwnedSet) Lookup(id int64) Ownership {
	if s == nil || id == 0 {
		return OwnershipUnknown
	}
	if _, ok := s[id]; ok {
		return OwnershipOwned
	}
	return OwnershipNotOwned
}

// UserState is the authenticated viewer as seen at the start of a pass,
// updated as entries are submitted.
type UserState struct {
	Level        int
	Coins        int
	CoinsKnown   bool
	NextRecharge time.Duration
	Owned        OwnedSet
}

// SetCoins replaces the balance with a confirmed value.
func (u *UserState) SetCoins(n int) {
	u.Coins = max(n, 0)
	u.CoinsKnown = true
}

// DLCPolicy controls how DLC giveaways are handled.
type DLCPolicy string

// DLC policies.
const (
	DLCKeep            DLCPolicy = "false"
	DLCSkip            DLCPolicy = "true"
	DLCMissingBaseGame DLCPolicy = "missing_basegame"
)

// Enabled reports whether DLCs are skipped in any form.
func (p DLCPolicy) Enabled() bool {
	return p == DLCSkip || p == DLCMissingBaseGame
}

// Pattern is a blacklist entry: either an exact name or a regular expression.
type Pattern struct {
	Exact string
	Re    *regexp.Regexp
}

// Match reports whether name is covered by the pattern.
func (p Pattern) Match(name string) bool {
	if p.Re != nil {
		return p.Re.MatchString(name)
	}
	return name == p.Exact
}

// String returns the pattern as it was configured.
func (p Pattern) String() string {
	if p.Re != nil {
		return "/" + p.Re.String() + "/"
	}
	return p.Exact
}

// Policy is the read-only eligibility configuration.
type Policy struct {
	SkipOwned       bool
	SkipDLC         DLCPolicy
	MaxParticipants int
	MaxPrice        int
	GameBlacklist   []Pattern
	OnlyGuaranteed  bool
	UserBlacklist   []Pattern
	SkipSubs        bool
	WaitOnEnd       time.Duration
	Timeout         time.Duration
}

// Reason identifies the first check a giveaway failed.
type Reason int

// Rejection reasons, in evaluation order.
const (
	ReasonNone Reason = iota
	ReasonEntered
	ReasonOwned
	ReasonDLC
	ReasonGameBlacklisted
	ReasonUserBlacklisted
	ReasonNotGuaranteed
	ReasonTooManyParticipants
	ReasonTooExpensive
	ReasonSub
	ReasonLevel
	ReasonFunds
)

var reasonNames = map[Reason]string{
	ReasonNone:                "none",
	ReasonEntered:             "already entered",
	ReasonOwned:               "already owned",
	ReasonDLC:                 "dlc",
	ReasonGameBlacklisted:     "game blacklisted",
	ReasonUserBlacklisted:     "user blacklisted",
	ReasonNotGuaranteed:       "not guaranteed",
	ReasonTooManyParticipants: "too many participants",
	ReasonTooExpensive:        "too expensive",
	ReasonSub:                 "linked to a sub",
	ReasonLevel:               "level too low",
	ReasonFunds:               "insufficient funds",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "unknown"
}

// Verdict is the outcome of evaluating one giveaway.
type Verdict struct {
	Admit  bool
	Reason Reason
	Detail string
}

// Entry statuses reported by the host.
const (
	EntryStatusOK                 = "ok"
	EntryStatusInsufficientCredit = "insufficient_credit"
)

// EntryResult is the host's answer to an entry request.
type EntryResult struct {
	Status    string `json:"status"`
	NewAmount *int   `json:"new_amount,omitempty"`
}

// Entry is a journaled entry attempt.
type Entry struct {
	ID           int64
	GiveawayID   string
	Name         string
	Price        int
	Status       string
	BalanceAfter *int
	EnteredAt    time.Time
}

// AppDetails is the cached Steam metadata of one app.
type AppDetails struct {
	Type     string `json:"type"`
	BaseGame int64  `json:"basegame,omitempty"`
}

// RunStatus is a snapshot of what the daemon is doing.
type RunStatus struct {
	State    string
	Page     int
	User     UserState
	LastPass time.Time
	NextRun  time.Time
}
