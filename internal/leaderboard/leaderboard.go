// Package leaderboard accumulates cursor-paginated leaderboard pages.
// A load without a cursor replaces the list; a load with one appends.
// Switching the time window resets everything before the next load.
package leaderboard

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/veles-markets/console/internal/api"
)

type Window string

const (
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowAllTime Window = "all-time"
)

// Source is the slice of the backend the accumulator needs.
type Source interface {
	WeeklyStats(ctx context.Context, cursor string) (api.StatsPage, error)
	MonthlyStats(ctx context.Context, cursor string) (api.StatsPage, error)
	AllTimeLeaderboard(ctx context.Context) ([]api.LeaderboardEntry, error)
}

type Accumulator struct {
	src Source

	mu         sync.Mutex
	window     Window
	items      []api.LeaderboardEntry
	nextCursor string
}

func New(src Source) *Accumulator {
	return &Accumulator{src: src, window: WindowWeekly}
}

// LoadPage fetches one page for window. An empty cursor replaces the
// accumulated items; a non-empty one appends. If window differs from
// the current one the accumulator resets first, so entries from
// incompatible windows are never concatenated.
func (a *Accumulator) LoadPage(ctx context.Context, window Window, cursor string) error {
	a.mu.Lock()
	if window != a.window {
		a.window = window
		a.items = nil
		a.nextCursor = ""
		cursor = ""
	}
	a.mu.Unlock()

	items, next, err := a.fetch(ctx, window, cursor)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if window != a.window {
		// The window switched while this page was in flight; its
		// results belong to the old window and are dropped.
		return nil
	}
	if cursor == "" {
		a.items = items
	} else {
		a.items = append(a.items, items...)
	}
	a.nextCursor = next
	return nil
}

// LoadMore fetches the next page for the current window. No-op when
// there are no more pages.
func (a *Accumulator) LoadMore(ctx context.Context) error {
	a.mu.Lock()
	window, cursor := a.window, a.nextCursor
	a.mu.Unlock()

	if cursor == "" {
		return nil
	}
	return a.LoadPage(ctx, window, cursor)
}

func (a *Accumulator) fetch(ctx context.Context, window Window, cursor string) ([]api.LeaderboardEntry, string, error) {
	switch window {
	case WindowWeekly:
		page, err := a.src.WeeklyStats(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		return page.Results, NextCursor(page.Next), nil
	case WindowMonthly:
		page, err := a.src.MonthlyStats(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		return page.Results, NextCursor(page.Next), nil
	case WindowAllTime:
		entries, err := a.src.AllTimeLeaderboard(ctx)
		if err != nil {
			return nil, "", err
		}
		return entries, "", nil
	default:
		return nil, "", fmt.Errorf("unknown leaderboard window %q", window)
	}
}

// Window returns the current time window.
func (a *Accumulator) Window() Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.window
}

// Items returns a copy of the accumulated entries.
func (a *Accumulator) Items() []api.LeaderboardEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]api.LeaderboardEntry, len(a.items))
	copy(out, a.items)
	return out
}

// HasMore reports whether the server advertised another page; false
// hides the load-more affordance.
func (a *Accumulator) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextCursor != ""
}

// Reset drops accumulated state so the next load replaces.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
	a.nextCursor = ""
}

// NextCursor extracts the cursor query parameter from a server-supplied
// absolute next URL. Missing or unparseable links mean no more pages.
func NextCursor(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}
