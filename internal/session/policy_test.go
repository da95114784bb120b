package session

import (
	"math"
	"testing"
	"time"

	"raydium-sniper/internal/store"
)

func TestPrice_Canonicalization(t *testing.T) {
	// The token price is always the smaller reserve ratio, no matter
	// which side holds SOL.
	a := Price(1000, 4_000_000)
	b := Price(4_000_000, 1000)
	if a != b {
		t.Fatalf("Price not symmetric: %v vs %v", a, b)
	}
	if want := 0.00025; math.Abs(a-want) > 1e-12 {
		t.Fatalf("Price = %v, want %v", a, want)
	}
}

func TestPrice_ZeroReserves(t *testing.T) {
	if p := Price(1000, 0); !math.IsInf(p, 1) {
		t.Fatalf("Price with empty second reserve = %v, want +Inf", p)
	}
	if p := Price(0, 0); !math.IsInf(p, 1) {
		t.Fatalf("Price with both reserves empty = %v, want +Inf", p)
	}
}

func TestChangePct(t *testing.T) {
	if c := ChangePct(0, 5); c != 0 {
		t.Fatalf("ChangePct with zero open = %v, want 0", c)
	}
	if c := ChangePct(2, 3); c != 50 {
		t.Fatalf("ChangePct(2, 3) = %v, want 50", c)
	}
	if c := ChangePct(2, 1); c != -50 {
		t.Fatalf("ChangePct(2, 1) = %v, want -50", c)
	}
}

func TestSellToBuyRatio(t *testing.T) {
	if r := sellToBuyRatio(store.Volume{Buy: 0, Sell: 7}); r != 0 {
		t.Fatalf("ratio with no buys = %v, want 0", r)
	}
	if r := sellToBuyRatio(store.Volume{Buy: 50, Sell: 40}); r != 80 {
		t.Fatalf("ratio = %v, want 80", r)
	}
}

func TestInEntryRange(t *testing.T) {
	tests := []struct {
		name    string
		ratio   float64
		samples int
		want    bool
	}{
		{"too few samples", 50, 50, false},
		{"just enough samples", 50, 51, true},
		{"upper sample bound", 50, 2000, true},
		{"too many samples", 50, 2001, false},
		{"ratio at limit", 80, 100, true},
		{"ratio above limit", 81, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inEntryRange(tt.ratio, tt.samples); got != tt.want {
				t.Fatalf("inEntryRange(%v, %d) = %v, want %v", tt.ratio, tt.samples, got, tt.want)
			}
		})
	}
}

func TestAllDiffsAbove(t *testing.T) {
	if !allDiffsAbove(nil, -10) {
		t.Fatal("empty diff window must pass")
	}
	if !allDiffsAbove([]float64{5, -10, 3}, -10) {
		t.Fatal("diff exactly at floor must pass")
	}
	if allDiffsAbove([]float64{5, -10.01, 3}, -10) {
		t.Fatal("diff below floor must fail")
	}
}

func TestNextStep(t *testing.T) {
	tests := []struct {
		name      string
		momentum  float64
		volume    store.Volume
		ownChange float64
		sinceBuy  time.Duration
		step      int
		want      int
	}{
		{"holds by default", 0, store.Volume{Buy: 5, Sell: 1}, 15, time.Minute, 40, 40},
		{"flat position under sell pressure", 0, store.Volume{Buy: 3, Sell: 4}, 5, 31 * time.Second, 40, hardExitStep},
		{"sell pressure but held briefly", 0, store.Volume{Buy: 3, Sell: 4}, 5, 10 * time.Second, 40, 40},
		{"deep loss", 0, store.Volume{Buy: 5, Sell: 1}, -35, time.Second, 40, hardExitStep},
		{"slow bleed", 0, store.Volume{Buy: 5, Sell: 1}, -20, 140 * time.Second, 40, hardExitStep},
		{"slow bleed but fresh", 0, store.Volume{Buy: 5, Sell: 1}, -20, 100 * time.Second, 40, 40},
		{"momentum decay", -0.05, store.Volume{Buy: 5, Sell: 1}, 15, time.Minute, 40, 30},
		{"decay stops below twenty", -0.05, store.Volume{Buy: 5, Sell: 1}, 15, time.Minute, 10, 10},
		{"decay at twenty still fires", -0.05, store.Volume{Buy: 5, Sell: 1}, 15, time.Minute, 20, 10},
		{"raise on strong momentum", 0.15, store.Volume{Buy: 5, Sell: 1}, 25, time.Minute, 40, 80},
		{"strong momentum too far below step", 0.15, store.Volume{Buy: 5, Sell: 1}, 15, time.Minute, 40, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextStep(tt.momentum, tt.volume, tt.ownChange, tt.sinceBuy, tt.step)
			if got != tt.want {
				t.Fatalf("nextStep = %d, want %d", got, tt.want)
			}
		})
	}
}
