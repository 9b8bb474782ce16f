// Package metrics folds raw trade streams into time-bucketed series
// for charting. Everything here is a pure function of its input; the
// dashboard recomputes on every data change (windows are bounded, at
// most ~100 points).
package metrics

import (
	"time"

	"github.com/veles-markets/console/internal/amount"
	"github.com/veles-markets/console/internal/api"
)

const dayFormat = "2006-01-02"

// tradeDay buckets a trade by the calendar day its timestamp reports,
// taking the first defined timestamp field. Unparseable or missing
// timestamps fall back to today rather than poisoning the series.
func tradeDay(t api.Trade, now time.Time) string {
	for _, raw := range []string{t.CreatedAt, t.Timestamp, t.Created, t.Time} {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts.Format(dayFormat)
		}
		if ts, err := time.Parse(dayFormat, raw); err == nil {
			return ts.Format(dayFormat)
		}
	}
	return now.Format(dayFormat)
}

func deref(a *amount.Amount) amount.Amount {
	if a == nil {
		return 0
	}
	return *a
}

// stakeAmount is the volume policy: amount_staked, else amount, else
// trade_amount, else 0. First defined field wins.
func stakeAmount(t api.Trade) amount.Amount {
	switch {
	case t.AmountStaked != nil:
		return *t.AmountStaked
	case t.Amount != nil:
		return *t.Amount
	default:
		return deref(t.TradeAmount)
	}
}

// flowAmount is the money-flow policy: trade_amount, else amount, else
// amount_staked, else 0. First defined field wins.
func flowAmount(t api.Trade) amount.Amount {
	switch {
	case t.TradeAmount != nil:
		return *t.TradeAmount
	case t.Amount != nil:
		return *t.Amount
	default:
		return deref(t.AmountStaked)
	}
}

// AggregateTradesByTime groups trades into per-day buckets with a
// trade count and staked volume, oldest day first.
func AggregateTradesByTime(trades []api.Trade) []TimeBucket {
	buckets := newDayBuckets()
	now := time.Now()
	for _, t := range trades {
		buckets.add(tradeDay(t, now), stakeAmount(t))
	}
	return buckets.ascending()
}

// FlowPoint is one day of money flow.
type FlowPoint struct {
	Date   string
	Amount amount.Amount
}

// MoneyFlow is the fold of a trade stream into total volume plus a
// per-day series sorted ascending by date.
type MoneyFlow struct {
	TotalVolume amount.Amount
	Points      []FlowPoint
}

// CalculateMoneyFlow sums trade amounts and buckets them by day.
func CalculateMoneyFlow(trades []api.Trade) MoneyFlow {
	buckets := newDayBuckets()
	now := time.Now()

	var total amount.Amount
	for _, t := range trades {
		a := flowAmount(t)
		total += a
		buckets.add(tradeDay(t, now), a)
	}

	daily := buckets.ascending()
	points := make([]FlowPoint, len(daily))
	for i, b := range daily {
		points[i] = FlowPoint{Date: b.Date, Amount: b.Volume}
	}
	return MoneyFlow{TotalVolume: total, Points: points}
}

// CumulativeRevenue derives the running-total series for area charts.
// Recomputed from scratch on every call; fine for bounded windows but
// O(n^2) across repeated calls if the window ever grows unbounded.
func CumulativeRevenue(points []api.RevenuePoint) []api.RevenuePoint {
	out := make([]api.RevenuePoint, len(points))
	var running amount.Amount
	for i, p := range points {
		running += p.Revenue
		out[i] = api.RevenuePoint{Date: p.Date, Revenue: running}
	}
	return out
}
