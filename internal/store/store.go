package store

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists. Session records are append-only.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")
)

// Volume counts price ticks attributed to buys and sells.
type Volume struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
}

// SessionSummary is the record persisted when a market session closes.
type SessionSummary struct {
	Mint          string    `json:"mint"`
	Owner         string    `json:"owner"`
	LatestPrice   float64   `json:"latest_price"`
	PriceHistory  []float64 `json:"price_history"`
	SavedAt       time.Time `json:"saved_at"`
	CurrentChange float64   `json:"current_change"`
	PeakChange    float64   `json:"peak_change"`
	MarketCap     float64   `json:"market_cap"`
	Volume        Volume    `json:"volume"`
	PctDiff       []float64 `json:"pct_diff"`
}

// OrderResult is the record persisted for every submitted order.
type OrderResult struct {
	Timestamp      time.Time `json:"timestamp"`
	Direction      string    `json:"direction"` // "buy" or "sell"
	Mint           string    `json:"mint"`
	AmountLamports uint64    `json:"amount"`
	FeeLamports    uint64    `json:"fee"`
	TxID           string    `json:"tx_id"`
	Outcome        string    `json:"outcome"` // "confirmed", "tx_fail", "instruction_error"
	Balance        float64   `json:"balance"`
	ChangePct      float64   `json:"change_pct,omitempty"`
}

// PriceSample is one observed reserve balance update.
type PriceSample struct {
	Mint      string    `json:"mint"`
	Account   string    `json:"account"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Amount    float64   `json:"amount"`
}

// SummaryStore persists closed session summaries.
type SummaryStore interface {
	Append(ctx context.Context, s *SessionSummary) error
}

// OrderStore persists order results.
type OrderStore interface {
	Append(ctx context.Context, r *OrderResult) error
	Close() error
}

// Blacklist tracks banned pool creators.
type Blacklist interface {
	Contains(address string) bool
	Add(address string) error
}

// SampleSink receives every reserve balance sample, for offline audit.
type SampleSink interface {
	Record(ctx context.Context, s *PriceSample) error
	Close() error
}
