// Package session owns the per-pool trading sessions. A session opens
// when both reserve balances of a discovered pool have reported at
// least once, runs the entry and exit state machine against the live
// derived price, and closes by persisting a summary.
package session

import (
	"context"
	"log"
	"sync"

	"raydium-sniper/internal/observability"
	"raydium-sniper/internal/store"
	"raydium-sniper/internal/subs"
)

// SupplyFetcher looks up a mint's total supply.
type SupplyFetcher interface {
	GetTokenSupply(ctx context.Context, mint string) (float64, error)
}

// SolPricer reports the cached SOL price in USD.
type SolPricer interface {
	Price() float64
}

// Deps bundles everything a Registry needs beyond configuration.
type Deps struct {
	Trader    Trader
	Pools     Pools
	Supply    SupplyFetcher
	SolPrice  SolPricer
	Boosts    BoostChecker
	Summaries store.SummaryStore
	Blacklist store.Blacklist
	Samples   store.SampleSink
	Clock     Clock
}

// Registry routes reserve balance updates to their sessions and opens
// a new session when a pool becomes priceable. It implements
// subs.AccountHandler.
type Registry struct {
	config  Config
	deps    Deps
	logger  *log.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	balances map[string]map[subs.Role]float64
	trackers map[string]*Tracker
	// closed is grow-only. The subscription loops deliver one final
	// update per reserve after a session ends; a closed mint must not
	// reopen from those.
	closed map[string]struct{}
	wg     sync.WaitGroup
}

// NewRegistry creates a session registry. A nil logger falls back to
// the default logger; a nil Clock falls back to the wall clock.
func NewRegistry(config Config, deps Deps, logger *log.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	return &Registry{
		config:   config,
		deps:     deps,
		logger:   logger,
		metrics:  metrics,
		balances: make(map[string]map[subs.Role]float64),
		trackers: make(map[string]*Tracker),
		closed:   make(map[string]struct{}),
	}
}

// HandleAccountUpdate records the reserve balance and feeds the derived
// price into the mint's session, opening one if the pool just became
// priceable.
func (r *Registry) HandleAccountUpdate(ctx context.Context, update subs.AccountUpdate) {
	r.mu.Lock()
	_, done := r.closed[update.Mint]
	r.mu.Unlock()
	if done {
		return
	}

	if r.deps.Samples != nil {
		sample := &store.PriceSample{
			Mint:      update.Mint,
			Account:   update.Address,
			Role:      string(update.Role),
			Timestamp: update.Timestamp,
			Amount:    update.UIAmount,
		}
		if err := r.deps.Samples.Record(ctx, sample); err != nil {
			r.logger.Printf("[session] recording sample for %s: %v", update.Mint, err)
		}
	}

	r.mu.Lock()
	pools, ok := r.balances[update.Mint]
	if !ok {
		pools = make(map[subs.Role]float64)
		r.balances[update.Mint] = pools
	}
	pools[update.Role] = update.UIAmount

	pool1, ok1 := pools[subs.RolePool1]
	pool2, ok2 := pools[subs.RolePool2]
	tracker, open := r.trackers[update.Mint]
	r.mu.Unlock()

	if !ok1 || !ok2 {
		return
	}

	price := Price(pool1, pool2)
	priceUSD := price * r.deps.SolPrice.Price()

	if open {
		tracker.updatePrice(price, priceUSD)
		return
	}
	r.open(ctx, update.Mint, price, priceUSD)
}

// open starts a session for mint at the given opening price.
func (r *Registry) open(ctx context.Context, mint string, price, priceUSD float64) {
	supply, err := r.deps.Supply.GetTokenSupply(ctx, mint)
	if err != nil {
		r.logger.Printf("[session] supply lookup for %s: %v", mint, err)
		supply = 0
	}

	tracker := &Tracker{
		mint:      mint,
		supply:    supply,
		openPrice: price,
		config:    r.config,
		trader:    r.deps.Trader,
		pools:     r.deps.Pools,
		summaries: r.deps.Summaries,
		blacklist: r.deps.Blacklist,
		boosts:    r.deps.Boosts,
		clock:     r.deps.Clock,
		logger:    r.logger,
		price:     price,
		priceUSD:  priceUSD,
	}

	r.mu.Lock()
	if _, done := r.closed[mint]; done {
		r.mu.Unlock()
		return
	}
	if _, exists := r.trackers[mint]; exists {
		r.mu.Unlock()
		return
	}
	r.trackers[mint] = tracker
	r.mu.Unlock()

	r.logger.Printf("[session] opening session for %s at price %.10f", mint, price)
	if r.metrics != nil {
		r.metrics.SessionsOpened.Inc()
		r.metrics.OpenSessions.Inc()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		reason := tracker.run(ctx)
		r.purge(mint)
		if r.metrics != nil {
			r.metrics.SessionsClosed.WithLabelValues(reason).Inc()
			r.metrics.OpenSessions.Dec()
		}
		r.logger.Printf("[session] closed session for %s: %s", mint, reason)
	}()
}

func (r *Registry) purge(mint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, mint)
	delete(r.balances, mint)
	r.closed[mint] = struct{}{}
}

// OpenCount reports the number of running sessions.
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}

// Wait blocks until every running session has closed.
func (r *Registry) Wait() {
	r.wg.Wait()
}
