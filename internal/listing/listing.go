// Package listing extracts giveaways and navigation state from a giveaway
// list page.
package listing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"autoenter/internal/model"
)

// ContentSelector matches once the giveaway list has been rendered.
const ContentSelector = "#ajax-giv-list-cont .giv-list-cont"

var (
	appIDPattern      = regexp.MustCompile(`^([0-9]+)(?:_(?:bonus|promo|ig))?$`)
	subIDPattern      = regexp.MustCompile(`^sub_([0-9]+)$`)
	fallbackIDPattern = regexp.MustCompile(`([0-9]+)`)
	pagePattern       = regexp.MustCompile(`^/giveaways(?:/([0-9]+)/|/?$)`)
)

var errMissing = errors.New("element not found")

// Page is the parsed content of one listing page.
type Page struct {
	Giveaways []model.Giveaway
	HasNext   bool
}

// Parse extracts every giveaway on the page. A field that cannot be read is
// logged and left at its zero value; it never drops the giveaway or the
// remaining fields.
func Parse(html string, log *slog.Logger) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parse listing: %w", err)
	}

	var page Page
	doc.Find(".tickets-col").Each(func(i int, s *goquery.Selection) {
		page.Giveaways = append(page.Giveaways, parseGiveaway(s, i, log))
	})
	page.HasNext = hasNext(doc)
	return page, nil
}

func parseGiveaway(s *goquery.Selection, idx int, log *slog.Logger) model.Giveaway {
	p := fieldParser{s: s, idx: idx, log: log}

	gameID := p.str("game id", func(s *goquery.Selection) (string, error) {
		return attr(s.Find(".giveaway-game-id").First(), "value")
	})
	steamID, kind := ParseGameID(gameID)
	if kind == model.IDKindNone && gameID != "" {
		log.Warn("unrecognized game id", "game_id", gameID, "index", idx)
	}

	return model.Giveaway{
		ID: p.str("id", func(s *goquery.Selection) (string, error) {
			return attr(s.Find("[rel]").First(), "rel")
		}),
		Name: p.str("name", func(s *goquery.Selection) (string, error) {
			return attr(s.Find("a").First(), "title")
		}),
		Price:        p.num("price", ".ticket-price"),
		MinLevel:     p.num("min level", ".type-level"),
		Participants: p.num("participants", ".tickets-sold"),
		Guaranteed: p.flag("guaranteed", func(s *goquery.Selection) (bool, error) {
			sel := s.Find(".price-type-cont").First()
			if sel.Length() == 0 {
				return false, errMissing
			}
			return sel.HasClass("palette-background-11"), nil
		}),
		By: p.str("by", func(s *goquery.Selection) (string, error) {
			sel := s.Find(".steamnick a").First()
			if sel.Length() == 0 {
				return "", errMissing
			}
			return strings.TrimSpace(sel.Text()), nil
		}),
		Entered: p.flag("entered", func(s *goquery.Selection) (bool, error) {
			return s.Find("aside").Length() == 0, nil
		}),
		GameID:  gameID,
		SteamID: steamID,
		IDKind:  kind,
	}
}

type fieldParser struct {
	s   *goquery.Selection
	idx int
	log *slog.Logger
}

func (p fieldParser) fail(field string, err error) {
	p.log.Error("extract giveaway field", "field", field, "index", p.idx, "error", err)
}

func (p fieldParser) str(field string, fn func(*goquery.Selection) (string, error)) string {
	v, err := fn(p.s)
	if err != nil {
		p.fail(field, err)
		return ""
	}
	return v
}

// num reads the leading integer of selector. An unreadable value becomes 0
// and the giveaway is still evaluated with it.
func (p fieldParser) num(field, selector string) int {
	sel := p.s.Find(selector).First()
	if sel.Length() == 0 {
		p.failNum(field, errMissing)
		return 0
	}
	n, err := leadingInt(sel.Text())
	if err != nil {
		p.failNum(field, err)
		return 0
	}
	return n
}

func (p fieldParser) failNum(field string, err error) {
	p.log.Error("extract giveaway field, giveaway still evaluated with 0",
		"field", field, "index", p.idx, "error", err)
}

func (p fieldParser) flag(field string, fn func(*goquery.Selection) (bool, error)) bool {
	v, err := fn(p.s)
	if err != nil {
		p.fail(field, err)
		return false
	}
	return v
}

func attr(s *goquery.Selection, name string) (string, error) {
	if s.Length() == 0 {
		return "", errMissing
	}
	v, ok := s.Attr(name)
	if !ok {
		return "", fmt.Errorf("attribute %q not found", name)
	}
	return v, nil
}

// leadingInt reads the integer at the start of text, ignoring surrounding
// whitespace and anything after the digits.
func leadingInt(text string) (int, error) {
	t := strings.TrimSpace(text)
	end := 0
	for end < len(t) && (t[end] >= '0' && t[end] <= '9' || end == 0 && (t[end] == '-' || t[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(t[:end])
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	return n, nil
}

// ParseGameID splits a host game id into the Steam id and its kind.
// Unrecognized ids fall back to their first run of digits with kind none.
func ParseGameID(gameID string) (int64, model.IDKind) {
	if m := appIDPattern.FindStringSubmatch(gameID); m != nil {
		return atoi64(m[1]), model.IDKindApp
	}
	if m := subIDPattern.FindStringSubmatch(gameID); m != nil {
		return atoi64(m[1]), model.IDKindSub
	}
	if m := fallbackIDPattern.FindStringSubmatch(gameID); m != nil {
		return atoi64(m[1]), model.IDKindNone
	}
	return 0, model.IDKindNone
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func hasNext(doc *goquery.Document) bool {
	found := false
	doc.Find("a.prev-next.palette-background-1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = strings.Contains(s.Text(), "NEXT")
		return !found
	})
	return found
}

// CurrentPage returns the listing page number encoded in location, which may
// be a path or an absolute URL. ok is false for non-listing pages.
func CurrentPage(location string) (page int, ok bool) {
	path := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		path = u.Path
	}
	m := pagePattern.FindStringSubmatch(path)
	if m == nil {
		return 0, false
	}
	if m[1] == "" {
		return 1, true
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
