package dashboard

import (
	"context"
	"errors"

	"github.com/veles-markets/console/internal/api"
	"github.com/veles-markets/console/internal/governor"
	"github.com/veles-markets/console/internal/leaderboard"
	"github.com/veles-markets/console/internal/metrics"
	"github.com/veles-markets/console/internal/poller"
	"github.com/veles-markets/console/pkg/httpclient"
)

// governedFetch wraps a panel's fetch in the governor's acquire/release
// pair. The latch is released on every exit path; rate-limit failures
// keep the held slot untouched, every other failure clears it to the
// panel's empty default so stale rows never render under an error
// banner.
func governedFetch[T any](d *Dashboard, id governor.PanelID, fetch func(context.Context) (T, error), current func() T, apply func(T)) poller.FetchFunc[T] {
	return func(ctx context.Context) (T, error) {
		if !d.gov.BeginLoad(id) {
			return current(), nil
		}
		defer d.gov.EndLoad(id)

		data, err := fetch(ctx)
		if err != nil {
			if errors.Is(err, httpclient.ErrUnauthorized) {
				d.handleUnauthorized()
			}
			if d.gov.Fail(id, err) == governor.ClearData {
				var zero T
				apply(zero)
				return zero, err
			}
			return current(), nil
		}

		apply(data)
		return data, nil
	}
}

// wirePanel builds the poller for one panel and registers its refresh
// and focus entry points.
func wirePanel[T any](d *Dashboard, id governor.PanelID, cfg poller.Config, fetch func(context.Context) (T, error), current func() T, apply func(T)) func(context.Context) {
	p := poller.New(string(id), governedFetch(d, id, fetch, current, apply), cfg, d.log)

	d.refreshMu.Lock()
	d.refresh[id] = p.Refresh
	if cfg.RevalidateOnFocus {
		d.focus = append(d.focus, p.Focus)
	}
	d.refreshMu.Unlock()

	return p.Start
}

// wirePanels builds every panel poller and returns their start
// functions. Alerts have no poller; the realtime feed is their only
// producer.
func (d *Dashboard) wirePanels() []func(context.Context) {
	std := poller.Config{Interval: d.cfg.PollInterval}
	focused := poller.Config{Interval: d.cfg.PollInterval, RevalidateOnFocus: true}
	slow := poller.Config{Interval: d.cfg.HealthInterval}

	starts := []func(context.Context){
		wirePanel(d, governor.PanelMarkets, focused,
			d.backend.Markets,
			func() []api.Market { return getSlot(d, &d.markets) },
			func(v []api.Market) { setSlot(d, &d.markets, v) },
		),
		wirePanel(d, governor.PanelUsers, std,
			d.backend.AdminUsers,
			func() []api.AdminUser { return getSlot(d, &d.users) },
			func(v []api.AdminUser) { setSlot(d, &d.users, v) },
		),
		wirePanel(d, governor.PanelSecurity, std,
			d.backend.SecurityOverview,
			func() api.SecurityOverview { return getSlot(d, &d.security) },
			func(v api.SecurityOverview) { setSlot(d, &d.security, v) },
		),
		wirePanel(d, governor.PanelHealth, slow,
			d.backend.AdminHealth,
			func() api.HealthStatus { return getSlot(d, &d.health) },
			func(v api.HealthStatus) { setSlot(d, &d.health, v) },
		),
		wirePanel(d, governor.PanelML, slow,
			d.backend.MLHealth,
			func() api.HealthStatus { return getSlot(d, &d.mlHealth) },
			func(v api.HealthStatus) { setSlot(d, &d.mlHealth, v) },
		),
		wirePanel(d, governor.PanelTrades, focused,
			func(ctx context.Context) ([]api.Trade, error) {
				return d.backend.RecentTrades(ctx, recentTradesWindow)
			},
			func() []api.Trade { return getSlot(d, &d.trades) },
			d.applyTrades,
		),
		wirePanel(d, governor.PanelMoneyFlow, std,
			func(ctx context.Context) ([]api.Trade, error) {
				return d.backend.RecentTrades(ctx, recentTradesWindow)
			},
			func() []api.Trade { return getSlot(d, &d.trades) },
			d.applyMoneyFlow,
		),
		wirePanel(d, governor.PanelRevenue, std,
			d.backend.Revenue,
			func() api.RevenueSummary { return getSlot(d, &d.revenue) },
			d.applyRevenue,
		),
		wirePanel(d, governor.PanelRiskyUsers, std,
			d.backend.RiskyUsers,
			func() []api.RiskyUser { return getSlot(d, &d.risky) },
			func(v []api.RiskyUser) { setSlot(d, &d.risky, v) },
		),
		wirePanel(d, governor.PanelDisputes, std,
			d.backend.Disputes,
			func() []api.Dispute { return getSlot(d, &d.disputes) },
			func(v []api.Dispute) { setSlot(d, &d.disputes, v) },
		),
		wirePanel(d, governor.PanelLeaderboard, std,
			d.loadLeaderboard,
			d.board.Items,
			func(v []api.LeaderboardEntry) {
				// The accumulator owns the rows; clearing this panel's
				// slot means resetting it.
				if v == nil {
					d.board.Reset()
				}
			},
		),
	}
	return starts
}

// loadLeaderboard reloads the first page of the current window; the
// accumulator applies the replace-vs-append rules itself.
func (d *Dashboard) loadLeaderboard(ctx context.Context) ([]api.LeaderboardEntry, error) {
	if err := d.board.LoadPage(ctx, d.board.Window(), ""); err != nil {
		return nil, err
	}
	return d.board.Items(), nil
}

// SwitchLeaderboardWindow resets the accumulator onto a new window and
// loads its first page through the governor.
func (d *Dashboard) SwitchLeaderboardWindow(ctx context.Context, w leaderboard.Window) error {
	if !d.gov.BeginLoad(governor.PanelLeaderboard) {
		return nil
	}
	defer d.gov.EndLoad(governor.PanelLeaderboard)

	if err := d.board.LoadPage(ctx, w, ""); err != nil {
		if errors.Is(err, httpclient.ErrUnauthorized) {
			d.handleUnauthorized()
		}
		if d.gov.Fail(governor.PanelLeaderboard, err) == governor.ClearData {
			d.board.Reset()
		}
		return err
	}
	return nil
}

// LoadMoreLeaderboard appends the next page, if the server advertised
// one.
func (d *Dashboard) LoadMoreLeaderboard(ctx context.Context) error {
	if !d.gov.BeginLoad(governor.PanelLeaderboard) {
		return nil
	}
	defer d.gov.EndLoad(governor.PanelLeaderboard)

	if err := d.board.LoadMore(ctx); err != nil {
		if errors.Is(err, httpclient.ErrUnauthorized) {
			d.handleUnauthorized()
		}
		if d.gov.Fail(governor.PanelLeaderboard, err) == governor.ClearData {
			d.board.Reset()
		}
		return err
	}
	return nil
}

func (d *Dashboard) applyTrades(trades []api.Trade) {
	series := metrics.AggregateTradesByTime(trades)
	d.mu.Lock()
	d.trades = trades
	d.tradeSeries = series
	d.mu.Unlock()
}

func (d *Dashboard) applyMoneyFlow(trades []api.Trade) {
	flow := metrics.CalculateMoneyFlow(trades)
	d.mu.Lock()
	d.moneyFlow = flow
	d.mu.Unlock()
}

func (d *Dashboard) applyRevenue(rev api.RevenueSummary) {
	cum := metrics.CumulativeRevenue(rev.Points)
	d.mu.Lock()
	d.revenue = rev
	d.cumRevenue = cum
	d.mu.Unlock()
}

// Methods can't be generic, so the slot accessors are free functions.
func getSlot[T any](d *Dashboard, slot *T) T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *slot
}

func setSlot[T any](d *Dashboard, slot *T, v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*slot = v
}
