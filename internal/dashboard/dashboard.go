// Package dashboard is the state layer behind the admin console: it
// owns the per-panel data slots, gates every load through the request
// governor, and reconciles polled REST snapshots with pushed WebSocket
// updates. Poll and push write the same slots; the last completed
// write wins, which is acceptable for eventually-consistent dashboard
// telemetry.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/veles-markets/console/internal/api"
	"github.com/veles-markets/console/internal/governor"
	"github.com/veles-markets/console/internal/leaderboard"
	"github.com/veles-markets/console/internal/metrics"
	"github.com/veles-markets/console/internal/realtime"
	"github.com/veles-markets/console/internal/session"
	"github.com/veles-markets/console/internal/statestore"
	"github.com/veles-markets/console/pkg/hashset"
	"github.com/veles-markets/console/pkg/httpclient"
)

// Backend is the capability surface the dashboard needs from the REST
// API. api.Client implements it; tests substitute fakes.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, api.UserSummary, error)
	Me(ctx context.Context) (api.UserSummary, error)
	Markets(ctx context.Context) ([]api.Market, error)
	AdminUsers(ctx context.Context) ([]api.AdminUser, error)
	UpdateUser(ctx context.Context, id int64, patch api.UserPatch) (api.AdminUser, error)
	DeleteUser(ctx context.Context, id int64) error
	SecurityOverview(ctx context.Context) (api.SecurityOverview, error)
	AdminHealth(ctx context.Context) (api.HealthStatus, error)
	MLHealth(ctx context.Context) (api.HealthStatus, error)
	RecentTrades(ctx context.Context, limit int) ([]api.Trade, error)
	Revenue(ctx context.Context) (api.RevenueSummary, error)
	RiskyUsers(ctx context.Context) ([]api.RiskyUser, error)
	Disputes(ctx context.Context) ([]api.Dispute, error)
	ResolveDispute(ctx context.Context, id int64, accept bool) (api.Dispute, error)

	leaderboard.Source
}

const (
	recentTradesWindow = 100
	maxAlerts          = 50
)

// Alert is one user-visible notification from the realtime feed.
type Alert struct {
	Message    string
	Level      string
	ReceivedAt time.Time
}

type Config struct {
	WebsocketURL      string
	PollInterval      time.Duration
	HealthInterval    time.Duration
	ReconnectInterval time.Duration
}

type Dashboard struct {
	cfg     Config
	backend Backend
	session *session.Session
	store   *statestore.Store
	gov     *governor.Governor
	board   *leaderboard.Accumulator
	rt      *realtime.Client
	log     *slog.Logger

	mu          sync.Mutex
	markets     []api.Market
	users       []api.AdminUser
	security    api.SecurityOverview
	health      api.HealthStatus
	mlHealth    api.HealthStatus
	trades      []api.Trade
	tradeSeries []metrics.TimeBucket
	moneyFlow   metrics.MoneyFlow
	revenue     api.RevenueSummary
	cumRevenue  []api.RevenuePoint
	risky       []api.RiskyUser
	disputes    []api.Dispute
	liveMetrics map[string]float64
	alerts      []Alert

	// refresh and focus entry points per panel, built when the pollers
	// are wired in Start.
	refreshMu sync.Mutex
	refresh   map[governor.PanelID]func(context.Context) error
	focus     []func()
}

func New(cfg Config, backend Backend, sess *session.Session, store *statestore.Store, log *slog.Logger) *Dashboard {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = time.Minute
	}

	d := &Dashboard{
		cfg:         cfg,
		backend:     backend,
		session:     sess,
		store:       store,
		gov:         governor.New(log),
		board:       leaderboard.New(backend),
		log:         log.With("component", "dashboard"),
		liveMetrics: make(map[string]float64),
		refresh:     make(map[governor.PanelID]func(context.Context) error),
	}
	d.rt = realtime.New(realtime.Config{
		URL:               cfg.WebsocketURL,
		ReconnectInterval: cfg.ReconnectInterval,
		OnMessage:         d.handleMessage,
	}, log)
	d.restoreCollapsed()
	return d
}

// Governor exposes panel states for rendering.
func (d *Dashboard) Governor() *governor.Governor {
	return d.gov
}

// Leaderboard exposes the cursor accumulator for rendering and
// load-more interactions.
func (d *Dashboard) Leaderboard() *leaderboard.Accumulator {
	return d.board
}

// Start verifies the session, brings up the panel pollers and the
// realtime feed, and blocks until ctx is cancelled. Cancellation tears
// down every poller, the pending reconnect wait and the socket.
func (d *Dashboard) Start(ctx context.Context) error {
	d.checkAuth(ctx)

	var wg sync.WaitGroup
	for _, start := range d.wirePanels() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(ctx)
		}()
	}

	if d.cfg.WebsocketURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.rt.Start(ctx)
		}()
	}

	d.log.Info("dashboard started",
		"poll_interval", d.cfg.PollInterval,
		"panels", len(governor.Panels))

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// checkAuth confirms a restored token against /users/me/ and opens the
// governor's auth gate only for a signed-in viewer.
func (d *Dashboard) checkAuth(ctx context.Context) {
	if d.session.Token() == "" {
		d.gov.SetAuthChecked(false)
		return
	}

	user, err := d.backend.Me(ctx)
	if err != nil {
		if errors.Is(err, httpclient.ErrUnauthorized) {
			d.log.Info("stored token rejected, signing out")
			d.session.Clear()
		} else {
			d.log.Warn("couldn't confirm session", "error", err)
		}
		d.gov.SetAuthChecked(false)
		return
	}

	d.session.Confirm(user)
	d.gov.SetAuthChecked(d.session.User() != nil)
}

// handleUnauthorized is the 401 path: purge the session and close the
// auth gate so every panel stops loading until the next login.
func (d *Dashboard) handleUnauthorized() {
	d.log.Info("backend returned 401, signing out")
	d.session.Clear()
	d.gov.SetAuthChecked(false)
}

// Login exchanges credentials, installs the session and reopens the
// auth gate.
func (d *Dashboard) Login(ctx context.Context, email, password string) error {
	token, user, err := d.backend.Login(ctx, email, password)
	if err != nil {
		return err
	}
	d.session.Set(token, user)
	d.gov.SetAuthChecked(d.session.User() != nil)
	return nil
}

// Logout purges the session and closes the auth gate.
func (d *Dashboard) Logout() {
	d.session.Clear()
	d.gov.SetAuthChecked(false)
}

// Focus signals that the console regained foreground focus; panels
// configured for focus revalidation re-fetch.
func (d *Dashboard) Focus() {
	d.refreshMu.Lock()
	focus := d.focus
	d.refreshMu.Unlock()
	for _, f := range focus {
		f()
	}
}

// RefreshPanel forces an out-of-band reload of one panel, resolving
// once the new data has landed.
func (d *Dashboard) RefreshPanel(ctx context.Context, id governor.PanelID) error {
	d.refreshMu.Lock()
	fn, ok := d.refresh[id]
	d.refreshMu.Unlock()
	if !ok {
		return nil
	}
	return fn(ctx)
}

// ToggleCollapsed flips a panel's collapse state and persists the
// collapsed set. Collapsed panels generate no traffic.
func (d *Dashboard) ToggleCollapsed(id governor.PanelID) {
	collapsed := !d.gov.Collapsed(id)
	d.gov.SetCollapsed(id, collapsed)

	if d.store == nil {
		return
	}
	set := d.persistedCollapsed()
	if collapsed {
		set.Add(id)
	} else {
		set.Delete(id)
	}
	d.storeCollapsed(set)
}

// persistedCollapsed reads the stored collapse set; empty when absent
// or unreadable.
func (d *Dashboard) persistedCollapsed() hashset.Set[governor.PanelID] {
	raw, ok := d.store.Get(statestore.KeyCollapsedPanels)
	if !ok {
		return hashset.New[governor.PanelID]()
	}
	var ids []governor.PanelID
	if err := json.Unmarshal(raw, &ids); err != nil {
		d.log.Warn("couldn't read collapsed panels", "error", err)
		return hashset.New[governor.PanelID]()
	}
	return hashset.FromSlice(ids)
}

// storeCollapsed writes the collapse set back, dropping the entry
// entirely once the last panel is expanded again.
func (d *Dashboard) storeCollapsed(set hashset.Set[governor.PanelID]) {
	if set.Len() == 0 {
		if err := d.store.Delete(statestore.KeyCollapsedPanels); err != nil {
			d.log.Error("couldn't clear collapsed panels", "error", err)
		}
		return
	}
	if err := d.store.Set(statestore.KeyCollapsedPanels, set.AsSlice()); err != nil {
		d.log.Error("couldn't persist collapsed panels", "error", err)
	}
}

func (d *Dashboard) restoreCollapsed() {
	if d.store == nil {
		return
	}
	set := d.persistedCollapsed()
	for _, id := range governor.Panels {
		d.gov.SetCollapsed(id, set.Has(id))
	}
}

// Snapshot is one consistent copy of every data slot for rendering.
type Snapshot struct {
	Panels      map[governor.PanelID]governor.PanelState
	Connected   bool
	User        *api.UserSummary
	Markets     []api.Market
	Users       []api.AdminUser
	Security    api.SecurityOverview
	Health      api.HealthStatus
	MLHealth    api.HealthStatus
	Trades      []api.Trade
	TradeSeries []metrics.TimeBucket
	MoneyFlow   metrics.MoneyFlow
	Revenue     api.RevenueSummary
	CumRevenue  []api.RevenuePoint
	RiskyUsers  []api.RiskyUser
	Disputes    []api.Dispute
	Leaderboard []api.LeaderboardEntry
	LiveMetrics map[string]float64
	Alerts      []Alert
}

func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	live := make(map[string]float64, len(d.liveMetrics))
	for k, v := range d.liveMetrics {
		live[k] = v
	}
	alerts := make([]Alert, len(d.alerts))
	copy(alerts, d.alerts)

	return Snapshot{
		Panels:      d.gov.Snapshot(),
		Connected:   d.rt.IsConnected(),
		User:        d.session.User(),
		Markets:     d.markets,
		Users:       d.users,
		Security:    d.security,
		Health:      d.health,
		MLHealth:    d.mlHealth,
		Trades:      d.trades,
		TradeSeries: d.tradeSeries,
		MoneyFlow:   d.moneyFlow,
		Revenue:     d.revenue,
		CumRevenue:  d.cumRevenue,
		RiskyUsers:  d.risky,
		Disputes:    d.disputes,
		Leaderboard: d.board.Items(),
		LiveMetrics: live,
		Alerts:      alerts,
	}
}
