package bot

import (
	"fmt"
	"strings"
	"time"

	"autoenter/internal/model"
)

const timeLayout = "2006-01-02 15:04 UTC"

// FormatEntry formats a successful entry as a notification message.
func FormatEntry(e model.Entry, baseURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entered: %s\n", e.Name)
	fmt.Fprintf(&b, "Price: %d coins", e.Price)
	if e.BalanceAfter != nil {
		fmt.Fprintf(&b, ", %d left", *e.BalanceAfter)
	}
	fmt.Fprintf(&b, "\n\n%s/giveaways/detail/%s", strings.TrimRight(baseURL, "/"), e.GiveawayID)
	return b.String()
}

// FormatStatus formats a status snapshot.
func FormatStatus(st model.RunStatus, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", st.State)
	if st.Page > 0 {
		fmt.Fprintf(&b, "Page: %d\n", st.Page)
	}
	fmt.Fprintf(&b, "Level: %d\n", st.User.Level)
	if st.User.CoinsKnown {
		fmt.Fprintf(&b, "Coins: %d\n", st.User.Coins)
	} else {
		b.WriteString("Coins: unknown\n")
	}
	if !st.LastPass.IsZero() {
		fmt.Fprintf(&b, "Last pass: %s\n", st.LastPass.UTC().Format(timeLayout))
	}
	if st.NextRun.After(now) {
		fmt.Fprintf(&b, "Next run in: %s\n", st.NextRun.Sub(now).Round(time.Second))
	}
	return b.String()
}

// FormatEntryList formats journaled entry attempts, newest first.
func FormatEntryList(entries []model.Entry) string {
	if len(entries) == 0 {
		return "No entries yet."
	}
	var b strings.Builder
	b.WriteString("Recent entries:\n")
	for _, e := range entries {
		mark := "+"
		if e.Status != model.EntryStatusOK {
			mark = "-"
		}
		fmt.Fprintf(&b, "\n%s %s (%d coins) %s", mark, e.Name, e.Price, e.EnteredAt.UTC().Format(timeLayout))
		if e.Status != model.EntryStatusOK {
			fmt.Fprintf(&b, " [%s]", e.Status)
		}
	}
	return b.String()
}
