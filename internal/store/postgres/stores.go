package postgres

import (
	"context"
	"fmt"

	"raydium-sniper/internal/store"
)

// SummaryStore implements store.SummaryStore using PostgreSQL.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

var _ store.SummaryStore = (*SummaryStore)(nil)

// Append inserts a session summary.
func (s *SummaryStore) Append(ctx context.Context, summary *store.SessionSummary) error {
	query := `
		INSERT INTO session_summaries (
			mint, owner, latest_price, price_history, saved_at,
			current_change, peak_change, market_cap, volume_buy, volume_sell, pct_diff
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		summary.Mint,
		summary.Owner,
		summary.LatestPrice,
		summary.PriceHistory,
		summary.SavedAt,
		summary.CurrentChange,
		summary.PeakChange,
		summary.MarketCap,
		summary.Volume.Buy,
		summary.Volume.Sell,
		summary.PctDiff,
	)
	if err != nil {
		return fmt.Errorf("insert session summary: %w", err)
	}
	return nil
}

// OrderStore implements store.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

var _ store.OrderStore = (*OrderStore)(nil)

// Append inserts an order result. Returns ErrDuplicateKey when tx_id
// already exists.
func (s *OrderStore) Append(ctx context.Context, r *store.OrderResult) error {
	query := `
		INSERT INTO order_results (
			tx_id, ts, direction, mint, amount, fee, outcome, balance, change_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		r.TxID,
		r.Timestamp,
		r.Direction,
		r.Mint,
		int64(r.AmountLamports),
		int64(r.FeeLamports),
		r.Outcome,
		r.Balance,
		r.ChangePct,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("insert order result: %w", err)
	}
	return nil
}

// Close is a no-op; the pool's lifecycle is owned by the caller.
func (s *OrderStore) Close() error { return nil }
