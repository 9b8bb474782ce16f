package metrics

import (
	"testing"
	"time"

	"github.com/veles-markets/console/internal/amount"
	"github.com/veles-markets/console/internal/api"
)

func amt(f float64) *amount.Amount {
	a := amount.FromFloat(f)
	return &a
}

func TestAggregateTradesByTime(t *testing.T) {
	trades := []api.Trade{
		{AmountStaked: amt(10), CreatedAt: "2024-01-01T00:00:00Z"},
		{Amount: amt(5), CreatedAt: "2024-01-01T12:00:00Z"},
		{TradeAmount: amt(7), CreatedAt: "2024-01-02T00:00:00Z"},
	}

	buckets := AggregateTradesByTime(trades)
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}

	if buckets[0].Date != "2024-01-01" || buckets[0].Count != 2 || buckets[0].Volume.Float64() != 15 {
		t.Errorf("bucket 0 = %+v, want 2024-01-01 count=2 volume=15", buckets[0])
	}
	if buckets[1].Date != "2024-01-02" || buckets[1].Count != 1 || buckets[1].Volume.Float64() != 7 {
		t.Errorf("bucket 1 = %+v, want 2024-01-02 count=1 volume=7", buckets[1])
	}
}

func TestAggregatePrefersAmountStaked(t *testing.T) {
	trades := []api.Trade{
		{AmountStaked: amt(3), Amount: amt(99), CreatedAt: "2024-02-01T08:00:00Z"},
	}
	buckets := AggregateTradesByTime(trades)
	if len(buckets) != 1 || buckets[0].Volume.Float64() != 3 {
		t.Fatalf("got %+v, want volume 3 (amount_staked wins over amount)", buckets)
	}
}

func TestAggregateMissingAmountsCoerceToZero(t *testing.T) {
	trades := []api.Trade{
		{CreatedAt: "2024-02-01T08:00:00Z"},
		{CreatedAt: "2024-02-01T09:00:00Z", Amount: amt(4)},
	}
	buckets := AggregateTradesByTime(trades)
	if len(buckets) != 1 || buckets[0].Count != 2 || buckets[0].Volume.Float64() != 4 {
		t.Fatalf("got %+v, want count=2 volume=4", buckets)
	}
}

func TestCalculateMoneyFlow(t *testing.T) {
	trades := []api.Trade{
		{AmountStaked: amt(10), CreatedAt: "2024-01-01T00:00:00Z"},
		{Amount: amt(5), CreatedAt: "2024-01-01T12:00:00Z"},
		{TradeAmount: amt(7), CreatedAt: "2024-01-02T00:00:00Z"},
	}

	flow := CalculateMoneyFlow(trades)
	if flow.TotalVolume.Float64() != 22 {
		t.Fatalf("total = %v, want 22", flow.TotalVolume.Float64())
	}
	if len(flow.Points) != 2 {
		t.Fatalf("got %d points, want 2", len(flow.Points))
	}
	if flow.Points[0].Date != "2024-01-01" || flow.Points[0].Amount.Float64() != 15 {
		t.Errorf("point 0 = %+v, want 2024-01-01 amount=15", flow.Points[0])
	}
	if flow.Points[1].Date != "2024-01-02" || flow.Points[1].Amount.Float64() != 7 {
		t.Errorf("point 1 = %+v, want 2024-01-02 amount=7", flow.Points[1])
	}
}

func TestMoneyFlowFirstDefinedFieldWins(t *testing.T) {
	trades := []api.Trade{
		{TradeAmount: amt(1), Amount: amt(50), AmountStaked: amt(100), CreatedAt: "2024-03-01T00:00:00Z"},
		{Amount: amt(2), AmountStaked: amt(100), CreatedAt: "2024-03-01T01:00:00Z"},
		{AmountStaked: amt(3), CreatedAt: "2024-03-01T02:00:00Z"},
		{CreatedAt: "2024-03-01T03:00:00Z"},
	}
	flow := CalculateMoneyFlow(trades)
	if flow.TotalVolume.Float64() != 6 {
		t.Fatalf("total = %v, want 6", flow.TotalVolume.Float64())
	}
}

func TestTimestampFallbackOrder(t *testing.T) {
	trades := []api.Trade{
		{Amount: amt(1), Timestamp: "2024-04-02T00:00:00Z"},
		{Amount: amt(1), Created: "2024-04-03"},
		{Amount: amt(1), Time: "2024-04-01T00:00:00Z"},
		// created_at wins over the rest.
		{Amount: amt(1), CreatedAt: "2024-04-04T00:00:00Z", Timestamp: "2020-01-01T00:00:00Z"},
	}
	flow := CalculateMoneyFlow(trades)
	if len(flow.Points) != 4 {
		t.Fatalf("got %d points, want 4", len(flow.Points))
	}
	want := []string{"2024-04-01", "2024-04-02", "2024-04-03", "2024-04-04"}
	for i, w := range want {
		if flow.Points[i].Date != w {
			t.Errorf("point %d date = %s, want %s (ascending by date)", i, flow.Points[i].Date, w)
		}
	}
}

func TestUnparseableTimestampFallsBackToToday(t *testing.T) {
	trades := []api.Trade{{Amount: amt(1), CreatedAt: "not-a-date"}}
	flow := CalculateMoneyFlow(trades)
	if len(flow.Points) != 1 {
		t.Fatalf("got %d points, want 1", len(flow.Points))
	}
	if flow.Points[0].Date != time.Now().Format("2006-01-02") {
		t.Errorf("date = %s, want today", flow.Points[0].Date)
	}
}

func TestCumulativeRevenue(t *testing.T) {
	points := []api.RevenuePoint{
		{Date: "2024-01-01", Revenue: amount.FromFloat(10)},
		{Date: "2024-01-02", Revenue: amount.FromFloat(5)},
		{Date: "2024-01-03", Revenue: amount.FromFloat(2.5)},
	}

	cum := CumulativeRevenue(points)
	want := []float64{10, 15, 17.5}
	for i, w := range want {
		if cum[i].Revenue.Float64() != w {
			t.Errorf("cumulative[%d] = %v, want %v", i, cum[i].Revenue.Float64(), w)
		}
	}

	// Input is untouched.
	if points[1].Revenue.Float64() != 5 {
		t.Error("CumulativeRevenue must not mutate its input")
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := AggregateTradesByTime(nil); len(got) != 0 {
		t.Errorf("AggregateTradesByTime(nil) = %v, want empty", got)
	}
	flow := CalculateMoneyFlow(nil)
	if flow.TotalVolume != 0 || len(flow.Points) != 0 {
		t.Errorf("CalculateMoneyFlow(nil) = %+v, want zero", flow)
	}
	if got := CumulativeRevenue(nil); len(got) != 0 {
		t.Errorf("CumulativeRevenue(nil) = %v, want empty", got)
	}
}
