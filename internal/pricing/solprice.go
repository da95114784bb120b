// Package pricing converts between USD and lamports and looks up
// DexScreener boost status for tracked tokens.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

const (
	coingeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"

	// fallbackSolPrice is used when the price fetch fails at startup.
	fallbackSolPrice = 247.11

	lamportsPerSol = 1_000_000_000
)

// SolPrice holds the SOL/USD rate fetched once at startup.
type SolPrice struct {
	client  *http.Client
	baseURL string
	logger  *log.Logger

	mu    sync.RWMutex
	price float64
}

// SolPriceOption configures a SolPrice.
type SolPriceOption func(*SolPrice)

// WithSolPriceURL overrides the price endpoint.
func WithSolPriceURL(url string) SolPriceOption {
	return func(s *SolPrice) { s.baseURL = url }
}

// WithSolPriceHTTPClient sets a custom HTTP client.
func WithSolPriceHTTPClient(client *http.Client) SolPriceOption {
	return func(s *SolPrice) { s.client = client }
}

// NewSolPrice creates a SolPrice starting at the fallback rate. Call
// Fetch to load the live rate.
func NewSolPrice(logger *log.Logger, opts ...SolPriceOption) *SolPrice {
	if logger == nil {
		logger = log.Default()
	}
	s := &SolPrice{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: coingeckoURL,
		logger:  logger,
		price:   fallbackSolPrice,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch loads the current SOL/USD rate. Failure keeps the previous
// rate and is not an error to the caller beyond the log line.
func (s *SolPrice) Fetch(ctx context.Context) {
	price, err := s.fetch(ctx)
	if err != nil {
		s.logger.Printf("[pricing] sol price fetch failed, keeping %.2f: %v", s.Price(), err)
		return
	}
	s.mu.Lock()
	s.price = price
	s.mu.Unlock()
	s.logger.Printf("[pricing] sol price: %.2f USD", price)
}

func (s *SolPrice) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch sol price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode sol price: %w", err)
	}
	if body.Solana.USD <= 0 {
		return 0, fmt.Errorf("non-positive price %f", body.Solana.USD)
	}
	return body.Solana.USD, nil
}

// Price returns the current SOL/USD rate.
func (s *SolPrice) Price() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price
}

// USDToLamports converts a USD amount to lamports at the current rate,
// rounded down.
func (s *SolPrice) USDToLamports(usd float64) uint64 {
	return uint64(usd / s.Price() * lamportsPerSol)
}
