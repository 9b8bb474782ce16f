package amount

import (
	"encoding/json"
	"testing"
)

func TestAmountUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Amount
		wantErr bool
	}{
		{"zero", `"0"`, 0, false},
		{"one", `"1"`, 1_000_000, false},
		{"half", `"0.5"`, 500_000, false},
		{"quarter", `"0.25"`, 250_000, false},
		{"typical stake", `"10.123456"`, 10_123_456, false},
		{"needs padding 1 digit", `"0.1"`, 100_000, false},
		{"needs padding 2 digits", `"0.12"`, 120_000, false},
		{"needs truncation", `"0.1234567"`, 123_456, false},
		{"raw number no quotes", `0.25`, 250_000, false},
		{"whole with frac", `"1.5"`, 1_500_000, false},
		{"negative", `"-2.5"`, -2_500_000, false},
		{"small frac", `"0.000001"`, 1, false},
		{"null coerces to zero", `null`, 0, false},
		{"empty string coerces to zero", `""`, 0, false},
		{"garbage coerces to zero", `"N/A"`, 0, false},
		{"trailing garbage coerces to zero", `"12x"`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Amount
			err := got.UnmarshalJSON([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr = %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAmountInStruct(t *testing.T) {
	type Trade struct {
		Staked Amount `json:"amount_staked"`
	}

	input := `{"amount_staked": "10.75"}`
	var tr Trade
	if err := json.Unmarshal([]byte(input), &tr); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if tr.Staked != 10_750_000 {
		t.Errorf("got %d, want 10750000", tr.Staked)
	}
}

func TestAmountFloat64Roundtrip(t *testing.T) {
	tests := []struct {
		in   Amount
		want float64
	}{
		{0, 0},
		{1_000_000, 1},
		{15_000_000, 15},
		{-500_000, -0.5},
	}

	for _, tt := range tests {
		if got := tt.in.Float64(); got != tt.want {
			t.Errorf("Float64(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func BenchmarkAmountUnmarshalJSON(b *testing.B) {
	data := []byte(`"10.123456"`)
	var a Amount

	for i := 0; i < b.N; i++ {
		_ = a.UnmarshalJSON(data)
	}
}
