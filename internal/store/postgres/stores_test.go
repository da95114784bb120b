package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"raydium-sniper/internal/store"
)

// setupTestDB starts a throwaway PostgreSQL container and applies the
// schema. Returns a cleanup function.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return pool, cleanup
}

func TestSummaryStore_Append(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewSummaryStore(pool)

	summary := &store.SessionSummary{
		Mint:          "mint1",
		Owner:         "owner1",
		LatestPrice:   0.00042,
		PriceHistory:  []float64{0.0001, 0.00042},
		SavedAt:       time.Now().UTC().Truncate(time.Microsecond),
		CurrentChange: 320,
		PeakChange:    410,
		MarketCap:     18000,
		Volume:        store.Volume{Buy: 12, Sell: 3},
		PctDiff:       []float64{80.2, -0.3},
	}
	require.NoError(t, s.Append(ctx, summary))
	require.NoError(t, s.Append(ctx, summary)) // summaries are not unique

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM session_summaries WHERE mint = $1`, "mint1").Scan(&count))
	assert.Equal(t, 2, count)

	var latest float64
	var history []float64
	var buy, sell int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT latest_price, price_history, volume_buy, volume_sell
		 FROM session_summaries WHERE mint = $1 LIMIT 1`, "mint1").
		Scan(&latest, &history, &buy, &sell))
	assert.Equal(t, 0.00042, latest)
	assert.Equal(t, []float64{0.0001, 0.00042}, history)
	assert.Equal(t, 12, buy)
	assert.Equal(t, 3, sell)
}

func TestOrderStore_AppendAndDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewOrderStore(pool)

	result := &store.OrderResult{
		Timestamp:      time.Now().UTC().Truncate(time.Microsecond),
		Direction:      "buy",
		Mint:           "mint1",
		AmountLamports: 4_000_000,
		FeeLamports:    280_000,
		TxID:           "sig1",
		Outcome:        "confirmed",
		Balance:        123456.78,
	}
	require.NoError(t, s.Append(ctx, result))

	err := s.Append(ctx, result)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	var direction, outcome string
	var amount int64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT direction, outcome, amount FROM order_results WHERE tx_id = $1`, "sig1").
		Scan(&direction, &outcome, &amount))
	assert.Equal(t, "buy", direction)
	assert.Equal(t, "confirmed", outcome)
	assert.Equal(t, int64(4_000_000), amount)
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, Migrate(context.Background(), pool))
}
