package discovery

import (
	"context"
	"log"
	"strings"
	"time"

	"raydium-sniper/internal/observability"
	"raydium-sniper/internal/raylog"
	"raydium-sniper/internal/solana"
	"raydium-sniper/internal/subs"
)

const initializeMintMarker = "InitializeMint"

// TransactionFetcher is the slice of the RPC client the watcher needs.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// Subscriptions is the slice of the subscription manager the watcher
// drives: pool registration and reserve account feeds.
type Subscriptions interface {
	Events() <-chan subs.LogEvent
	RegisterPool(rec subs.PoolRecord)
	SubscribeAccount(ctx context.Context, address, mint string, role subs.Role)
}

// Sessions reports how many market sessions are currently open.
type Sessions interface {
	OpenCount() int
}

// Blacklist answers whether a pool creator has been banned.
type Blacklist interface {
	Contains(address string) bool
}

// Config configures the pool watcher.
type Config struct {
	// MaxSessions caps how many pools may be tracked at once. New
	// discoveries are skipped while the cap is reached.
	MaxSessions int
	// FetchRetryDelay is the pause between getTransaction attempts while
	// the node has not indexed the signature yet.
	FetchRetryDelay time.Duration
}

// DefaultConfig returns default watcher configuration.
func DefaultConfig() Config {
	return Config{
		MaxSessions:     1,
		FetchRetryDelay: 1 * time.Second,
	}
}

// Watcher drains the program log queue and turns pool initialization
// transactions into registered pools with live reserve subscriptions.
type Watcher struct {
	config    Config
	rpc       TransactionFetcher
	subs      Subscriptions
	sessions  Sessions
	blacklist Blacklist
	logger    *log.Logger
	metrics   *observability.Metrics
}

// NewWatcher creates a pool watcher. Metrics may be nil.
func NewWatcher(config Config, rpc TransactionFetcher, subscriptions Subscriptions, sessions Sessions, blacklist Blacklist, logger *log.Logger, metrics *observability.Metrics) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = 1
	}
	if config.FetchRetryDelay <= 0 {
		config.FetchRetryDelay = 1 * time.Second
	}
	return &Watcher{
		config:    config,
		rpc:       rpc,
		subs:      subscriptions,
		sessions:  sessions,
		blacklist: blacklist,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run drains log events until ctx is cancelled. One event is processed
// at a time; the queue buffers bursts.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.subs.Events():
			if w.metrics != nil {
				w.metrics.LogEventsReceived.Inc()
			}
			w.handleEvent(ctx, event)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event subs.LogEvent) {
	if event.Err != nil {
		return
	}
	if !hasInitializeMint(event.Logs) {
		return
	}

	tx, err := w.fetchTransaction(ctx, event.Signature)
	if err != nil || tx == nil {
		return
	}
	if tx.Message == nil {
		return
	}

	keys, err := ExtractPoolKeys(tx.Message.AccountKeys)
	if err != nil {
		w.logger.Printf("[discovery] %s: discarding, %v", event.Signature, err)
		w.skip("key_range")
		return
	}

	if !Tradable(keys.Mint) {
		w.skip("excluded_mint")
		return
	}
	if w.blacklist != nil && w.blacklist.Contains(keys.Creator) {
		w.logger.Printf("[discovery] skipping pool from blacklisted creator %s", keys.Creator)
		w.skip("blacklisted_creator")
		return
	}
	if w.sessions != nil && w.sessions.OpenCount() >= w.config.MaxSessions {
		w.skip("session_cap")
		return
	}

	w.logger.Printf("[discovery] new %s pool %s, mint %s, creator %s",
		keys.Source, keys.Pool, keys.Mint, keys.Creator)
	w.logInitRecord(event.Logs)

	w.subs.RegisterPool(subs.PoolRecord{
		PoolAddress: keys.Pool,
		ReserveA:    keys.ReserveA,
		ReserveB:    keys.ReserveB,
		Mint:        keys.Mint,
		Creator:     keys.Creator,
	})
	w.subs.SubscribeAccount(ctx, keys.ReserveA, keys.Mint, subs.RolePool1)
	w.subs.SubscribeAccount(ctx, keys.ReserveB, keys.Mint, subs.RolePool2)

	if w.metrics != nil {
		w.metrics.PoolsDiscovered.WithLabelValues(keys.Source).Inc()
	}
}

// fetchTransaction polls getTransaction until the node has indexed the
// signature. A fresh "processed" notification routinely beats the
// transaction into the node's index, so nil results are retried on a
// fixed delay bounded only by ctx.
func (w *Watcher) fetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	for {
		tx, err := w.rpc.GetTransaction(ctx, signature)
		if err != nil {
			w.logger.Printf("[discovery] getTransaction %s: %v", signature, err)
			return nil, err
		}
		if tx != nil {
			return tx, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.config.FetchRetryDelay):
		}
	}
}

func (w *Watcher) skip(reason string) {
	if w.metrics != nil {
		w.metrics.DiscoveriesSkipped.WithLabelValues(reason).Inc()
	}
}

// logInitRecord decodes the ray_log init record when the notification
// carries one and logs the opening reserve amounts.
func (w *Watcher) logInitRecord(logs []string) {
	for _, line := range logs {
		payload, ok := raylog.ExtractRayLog(line)
		if !ok {
			continue
		}
		rec, err := raylog.DecodeBase64(payload)
		if err != nil {
			continue
		}
		if init, ok := rec.(*raylog.InitLog); ok {
			w.logger.Printf("[discovery] init: market %s, pc %d (%d dec), coin %d (%d dec)",
				init.Market, init.PCAmount, init.PCDecimals, init.CoinAmount, init.CoinDecimals)
			return
		}
	}
}

func hasInitializeMint(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, initializeMintMarker) {
			return true
		}
	}
	return false
}
