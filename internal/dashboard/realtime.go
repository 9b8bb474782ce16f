package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/veles-markets/console/internal/governor"
	"github.com/veles-markets/console/internal/realtime"
)

// handleMessage demultiplexes one realtime frame into the dashboard.
// Push updates land in the same slots the pollers write; whichever
// completes last wins.
func (d *Dashboard) handleMessage(msg realtime.Message) {
	switch msg.Type {
	case realtime.MetricsUpdateEvent:
		d.mergeLiveMetrics(msg.Payload)
	case realtime.AlertEvent:
		d.pushAlert(msg)
	case realtime.UserFlaggedEvent:
		d.refreshAsync(governor.PanelRiskyUsers)
	case realtime.TradePlacedEvent:
		d.refreshAsync(governor.PanelTrades)
		d.refreshAsync(governor.PanelMoneyFlow)
	case realtime.PongEvent:
		// Keepalive reply, nothing to apply.
	default:
		d.log.Debug("unhandled realtime event", "type", msg.Type)
	}
}

// mergeLiveMetrics folds a metrics_update payload into the live-metric
// slot key by key. A malformed payload is dropped, not fatal.
func (d *Dashboard) mergeLiveMetrics(payload json.RawMessage) {
	var update map[string]float64
	if err := json.Unmarshal(payload, &update); err != nil {
		d.log.Warn("dropping malformed metrics_update", "error", err)
		return
	}

	d.mu.Lock()
	for k, v := range update {
		d.liveMetrics[k] = v
	}
	d.mu.Unlock()
}

// pushAlert prepends a notification, newest first, bounded at
// maxAlerts.
func (d *Dashboard) pushAlert(msg realtime.Message) {
	text := msg.Message
	var body struct {
		Message string `json:"message"`
		Level   string `json:"level"`
	}
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &body); err == nil && body.Message != "" {
			text = body.Message
		}
	}
	if text == "" {
		d.log.Warn("dropping empty alert frame")
		return
	}

	alert := Alert{Message: text, Level: body.Level, ReceivedAt: time.Now()}

	d.mu.Lock()
	d.alerts = append([]Alert{alert}, d.alerts...)
	if len(d.alerts) > maxAlerts {
		d.alerts = d.alerts[:maxAlerts]
	}
	d.mu.Unlock()

	d.log.Info("alert received", "message", text, "level", body.Level)
}

// refreshAsync nudges a panel's poller from the realtime read
// goroutine without blocking it.
func (d *Dashboard) refreshAsync(id governor.PanelID) {
	d.refreshMu.Lock()
	fn, ok := d.refresh[id]
	d.refreshMu.Unlock()
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.log.Debug("push-triggered refresh failed", "panel", id, "error", err)
		}
	}()
}
