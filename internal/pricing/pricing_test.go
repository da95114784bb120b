package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSolPrice_FetchAndConvert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"usd":200.0}}`))
	}))
	defer server.Close()

	s := NewSolPrice(nil, WithSolPriceURL(server.URL))
	s.Fetch(context.Background())

	if got := s.Price(); got != 200.0 {
		t.Errorf("Price() = %f, want 200", got)
	}
	// $1 at $200/SOL is 0.005 SOL.
	if got := s.USDToLamports(1); got != 5_000_000 {
		t.Errorf("USDToLamports(1) = %d, want 5000000", got)
	}
	if got := s.USDToLamports(0.07); got != 350_000 {
		t.Errorf("USDToLamports(0.07) = %d, want 350000", got)
	}
}

func TestSolPrice_FallbackOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewSolPrice(nil, WithSolPriceURL(server.URL))
	s.Fetch(context.Background())

	if got := s.Price(); got != fallbackSolPrice {
		t.Errorf("Price() = %f, want fallback %f", got, fallbackSolPrice)
	}
}

func TestSolPrice_RejectsNonPositive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"usd":0}}`))
	}))
	defer server.Close()

	s := NewSolPrice(nil, WithSolPriceURL(server.URL))
	s.Fetch(context.Background())

	if got := s.Price(); got != fallbackSolPrice {
		t.Errorf("Price() = %f, want fallback %f", got, fallbackSolPrice)
	}
}

func TestDexScreener_BoostInfo(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		boosted bool
		boosts  int
	}{
		{
			name:    "boosted pair",
			body:    `{"pairs":[{"boosts":{"active":12}}]}`,
			boosted: true,
			boosts:  12,
		},
		{
			name:    "no boosts",
			body:    `{"pairs":[{"priceUsd":"0.001"}]}`,
			boosted: false,
		},
		{
			name:    "no pairs",
			body:    `{"pairs":null}`,
			boosted: false,
		},
		{
			name:    "last boosted pair wins",
			body:    `{"pairs":[{"boosts":{"active":3}},{},{"boosts":{"active":7}}]}`,
			boosted: true,
			boosts:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/mint1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			d := NewDexScreener(WithDexScreenerURL(server.URL))
			boosted, boosts, err := d.BoostInfo(context.Background(), "mint1")
			if err != nil {
				t.Fatalf("BoostInfo: %v", err)
			}
			if boosted != tt.boosted || boosts != tt.boosts {
				t.Errorf("BoostInfo = (%v, %d), want (%v, %d)", boosted, boosts, tt.boosted, tt.boosts)
			}
		})
	}
}

func TestDexScreener_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDexScreener(WithDexScreenerURL(server.URL))
	if _, _, err := d.BoostInfo(context.Background(), "mint1"); err == nil {
		t.Error("expected error on HTTP 429")
	}
}
