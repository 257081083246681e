// Package steam reads the owned games list and store metadata from Steam.
package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"autoenter/internal/model"
)

// Default endpoints.
const (
	DefaultAPIURL   = "https://api.steampowered.com"
	DefaultStoreURL = "https://store.steampowered.com"
)

// ErrNotFound is returned when the store has no usable details for an app.
var ErrNotFound = errors.New("app details not found")

// ErrNoLibrary is returned when the owned games response carries no games
// list, as it does for a private profile.
var ErrNoLibrary = errors.New("owned games list not visible")

// Getter performs a single GET against an absolute URL.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client queries the Steam Web API and the store API.
type Client struct {
	get      Getter
	apiURL   string
	storeURL string
}

// New creates a Client against the public Steam endpoints.
func New(get Getter) *Client {
	return &Client{get: get, apiURL: DefaultAPIURL, storeURL: DefaultStoreURL}
}

// SetBaseURLs points the client at other endpoints.
func (c *Client) SetBaseURLs(apiURL, storeURL string) {
	c.apiURL = apiURL
	c.storeURL = storeURL
}

type ownedGamesResponse struct {
	Response struct {
		Games *[]struct {
			AppID int64 `json:"appid"`
		} `json:"games"`
	} `json:"response"`
}

// OwnedGames returns the app ids in the library of steamID.
func (c *Client) OwnedGames(ctx context.Context, key, steamID string) ([]int64, error) {
	q := url.Values{}
	q.Set("key", key)
	q.Set("steamid", steamID)
	q.Set("format", "json")
	body, err := c.get.Get(ctx, c.apiURL+"/IPlayerService/GetOwnedGames/v0001/?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("get owned games: %w", err)
	}

	var resp ownedGamesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode owned games: %w", err)
	}
	if resp.Response.Games == nil {
		return nil, ErrNoLibrary
	}
	games := *resp.Response.Games
	ids := make([]int64, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.AppID)
	}
	return ids, nil
}

// flexInt decodes a JSON number or a numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("parse id %q: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}

type appDetailsResponse map[string]*struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type appData struct {
	Type     string `json:"type"`
	FullGame struct {
		AppID flexInt `json:"appid"`
	} `json:"fullgame"`
}

// AppDetails returns the store type of appID and, for DLCs, its base game.
func (c *Client) AppDetails(ctx context.Context, appID int64) (model.AppDetails, error) {
	id := strconv.FormatInt(appID, 10)
	body, err := c.get.Get(ctx, c.storeURL+"/api/appdetails?appids="+id)
	if err != nil {
		return model.AppDetails{}, fmt.Errorf("get app details %d: %w", appID, err)
	}

	var resp appDetailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.AppDetails{}, fmt.Errorf("decode app details %d: %w", appID, err)
	}
	entry := resp[id]
	if entry == nil || !entry.Success {
		return model.AppDetails{}, ErrNotFound
	}
	var data appData
	if err := json.Unmarshal(entry.Data, &data); err != nil {
		return model.AppDetails{}, fmt.Errorf("decode app data %d: %w", appID, err)
	}
	return model.AppDetails{Type: data.Type, BaseGame: int64(data.FullGame.AppID)}, nil
}
