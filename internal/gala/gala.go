// Package gala talks to the giveaway host's JSON and HTML endpoints.
package gala

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"autoenter/internal/model"
)

// Profile fallbacks used when the profile page cannot be read.
const (
	DefaultRecharge = 20 * time.Minute
	DefaultCoins    = 240
)

// Requester performs host requests until they succeed.
type Requester interface {
	Request(ctx context.Context, method, path string, body []byte) ([]byte, error)
}

// Client wraps the host endpoints.
type Client struct {
	req Requester
	log *slog.Logger
}

// New creates a Client.
func New(req Requester, log *slog.Logger) *Client {
	return &Client{req: req, log: log}
}

// Profile is what the profile page tells about the user.
type Profile struct {
	NextRecharge time.Duration
	Coins        int
}

// Level returns the user's level. Anything unreadable counts as level 0.
func (c *Client) Level(ctx context.Context) (int, error) {
	body, err := c.req.Request(ctx, http.MethodGet, "/giveaways/get_user_level_and_coins", nil)
	if err != nil {
		return 0, fmt.Errorf("get level: %w", err)
	}
	var payload struct {
		CurrentLevel json.RawMessage `json:"current_level"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode level: %w", err)
	}
	c.log.Debug("user level payload", "current_level", string(payload.CurrentLevel))
	s := strings.Trim(string(payload.CurrentLevel), `" `)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Profile reads the next recharge time and the coin balance.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	body, err := c.req.Request(ctx, http.MethodGet, "/profile", nil)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return ParseProfile(string(body), c.log), nil
}

// ParseProfile extracts the profile values from the page markup, falling
// back to DefaultRecharge and DefaultCoins for values it cannot read.
func ParseProfile(html string, log *slog.Logger) Profile {
	p := Profile{NextRecharge: DefaultRecharge, Coins: DefaultCoins}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn("failed to parse profile page, account might be locked", "error", err)
		return p
	}

	if mins, err := strconv.Atoi(strings.TrimSpace(doc.Find("#next-recharge-mins").First().Text())); err == nil {
		p.NextRecharge = time.Duration(mins+1) * time.Minute
	} else {
		log.Error("could not determine next recharge, using default", "default", DefaultRecharge)
	}

	if coins, err := strconv.Atoi(strings.TrimSpace(doc.Find(".galasilver-profile").First().Text())); err == nil {
		p.Coins = coins
	} else {
		log.Error("could not determine number of coins, using default", "default", DefaultCoins)
	}
	return p
}

type entryRequest struct {
	GiveawayID  string `json:"giv_id"`
	TicketPrice int    `json:"ticket_price"`
}

// Enter submits an entry for the giveaway id at the given price.
func (c *Client) Enter(ctx context.Context, id string, price int) (model.EntryResult, error) {
	payload, err := json.Marshal(entryRequest{GiveawayID: id, TicketPrice: price})
	if err != nil {
		return model.EntryResult{}, fmt.Errorf("encode entry: %w", err)
	}
	body, err := c.req.Request(ctx, http.MethodPost, "/giveaways/new_entry", payload)
	if err != nil {
		return model.EntryResult{}, fmt.Errorf("post entry: %w", err)
	}
	var res model.EntryResult
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&res); err != nil {
		return model.EntryResult{}, fmt.Errorf("decode entry response: %w", err)
	}
	return res, nil
}
