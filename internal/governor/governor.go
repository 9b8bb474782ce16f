// Package governor gates panel data loading. Each dashboard panel has
// an in-flight latch guaranteeing at most one outstanding request per
// panel key, plus collapse and auth gates so collapsed panels and
// unauthenticated viewers never generate traffic.
package governor

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/veles-markets/console/pkg/httpclient"
)

type PanelID string

const (
	PanelMarkets     PanelID = "markets"
	PanelUsers       PanelID = "users"
	PanelSecurity    PanelID = "security"
	PanelML          PanelID = "ml"
	PanelHealth      PanelID = "health"
	PanelTrades      PanelID = "trades"
	PanelRevenue     PanelID = "revenue"
	PanelLeaderboard PanelID = "leaderboard"
	PanelRiskyUsers  PanelID = "riskyUsers"
	PanelDisputes    PanelID = "disputes"
	PanelAlerts      PanelID = "alerts"
	PanelMoneyFlow   PanelID = "moneyFlow"
)

// Panels lists every panel key in display order.
var Panels = []PanelID{
	PanelMarkets, PanelUsers, PanelSecurity, PanelML, PanelHealth,
	PanelTrades, PanelRevenue, PanelLeaderboard, PanelRiskyUsers,
	PanelDisputes, PanelAlerts, PanelMoneyFlow,
}

// FailAction tells the caller what to do with held data after Fail.
type FailAction int

const (
	// KeepData: the error was suppressed (rate limiting); leave the
	// panel's data and error exactly as they were.
	KeepData FailAction = iota
	// ClearData: the error was recorded; reset the panel's data to its
	// empty default so an error banner never sits next to stale rows.
	ClearData
)

type panelState struct {
	collapsed bool
	inFlight  bool
	err       string
}

// PanelState is the externally visible state of one panel.
type PanelState struct {
	Collapsed bool
	Loading   bool
	Error     string
}

type Governor struct {
	mu          sync.Mutex
	panels      map[PanelID]*panelState
	authChecked bool
	log         *slog.Logger
}

func New(log *slog.Logger) *Governor {
	g := &Governor{
		panels: make(map[PanelID]*panelState, len(Panels)),
		log:    log.With("component", "governor"),
	}
	for _, id := range Panels {
		g.panels[id] = &panelState{}
	}
	return g
}

func (g *Governor) state(id PanelID) *panelState {
	st, ok := g.panels[id]
	if !ok {
		st = &panelState{}
		g.panels[id] = st
	}
	return st
}

// ShouldLoad is the advisory form of the gate: expanded, auth checked,
// nothing already in flight.
func (g *Governor) ShouldLoad(id PanelID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(id)
	return !st.collapsed && g.authChecked && !st.inFlight
}

// BeginLoad atomically checks the gate and latches the panel in-flight.
// It returns false when the load must be skipped, so two
// near-simultaneous callers get exactly one accepted load.
func (g *Governor) BeginLoad(id PanelID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(id)
	if st.collapsed || !g.authChecked || st.inFlight {
		return false
	}
	st.inFlight = true
	st.err = ""
	return true
}

// EndLoad releases the latch unconditionally. Callers pair it with
// BeginLoad via defer so every exit path releases.
func (g *Governor) EndLoad(id PanelID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state(id).inFlight = false
}

// Fail records a load failure and reports what to do with held data.
// Rate-limit responses are expected back-pressure under polling: the
// message is suppressed, the previous error (if any) survives, and the
// poller's next tick is the retry.
func (g *Governor) Fail(id PanelID, err error) FailAction {
	if errors.Is(err, httpclient.ErrRateLimited) {
		g.log.Debug("rate limited", "panel", id)
		return KeepData
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.state(id).err = err.Error()
	g.log.Warn("panel load failed", "panel", id, "error", err)
	return ClearData
}

func (g *Governor) SetCollapsed(id PanelID, collapsed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state(id).collapsed = collapsed
}

func (g *Governor) Collapsed(id PanelID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(id).collapsed
}

// SetAuthChecked opens (or closes) the auth gate for every panel.
func (g *Governor) SetAuthChecked(checked bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authChecked = checked
}

func (g *Governor) AuthChecked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authChecked
}

// Error returns the recorded error message for a panel, empty when the
// last load succeeded or was rate limited.
func (g *Governor) Error(id PanelID) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(id).err
}

// Snapshot copies the visible state of every panel.
func (g *Governor) Snapshot() map[PanelID]PanelState {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[PanelID]PanelState, len(g.panels))
	for id, st := range g.panels {
		out[id] = PanelState{
			Collapsed: st.collapsed,
			Loading:   st.inFlight,
			Error:     st.err,
		}
	}
	return out
}
