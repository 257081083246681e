// Package feed publishes the entry journal as an RSS file.
package feed

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"autoenter/internal/model"
)

// Size is how many recent entries the feed carries.
const Size = 50

// Build turns journal entries into a feed, newest first. Only successful
// entries are included.
func Build(entries []model.Entry, baseURL string, now time.Time) *feeds.Feed {
	base := strings.TrimRight(baseURL, "/")
	f := &feeds.Feed{
		Title:       "Giveaway entries",
		Link:        &feeds.Link{Href: base + "/giveaways"},
		Description: "Giveaways entered automatically",
		Created:     now,
	}

	for _, e := range entries {
		if e.Status != model.EntryStatusOK {
			continue
		}
		desc := fmt.Sprintf("Entered for %d coins.", e.Price)
		if e.BalanceAfter != nil {
			desc = fmt.Sprintf("Entered for %d coins, %d left.", e.Price, *e.BalanceAfter)
		}
		f.Items = append(f.Items, &feeds.Item{
			Id:          e.GiveawayID,
			Title:       e.Name,
			Link:        &feeds.Link{Href: base + "/giveaways/detail/" + e.GiveawayID},
			Description: desc,
			Created:     e.EnteredAt,
		})
	}

	sort.SliceStable(f.Items, func(i, j int) bool {
		return f.Items[i].Created.After(f.Items[j].Created)
	})
	return f
}

// Write renders f as RSS and replaces the file at path.
func Write(path string, f *feeds.Feed) error {
	rss, err := f.ToRss()
	if err != nil {
		return fmt.Errorf("render rss: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".feed-*")
	if err != nil {
		return fmt.Errorf("create feed file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	if _, err := w.WriteString(rss); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write feed: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace feed: %w", err)
	}
	return nil
}
