package session

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"raydium-sniper/internal/store"
	"raydium-sniper/internal/swap"
)

// Trader places orders for a session.
type Trader interface {
	// Buy swaps the configured notional into mint and returns the token
	// balance acquired, in base units.
	Buy(ctx context.Context, mint string) (uint64, error)
	// Sell swaps amount base units of mint back into SOL.
	Sell(ctx context.Context, mint string, amount uint64, changePct float64) error
}

// Pools is the slice of the subscription manager a session drives.
type Pools interface {
	MarkSold(mint string)
	Creator(mint string) string
}

// BoostChecker looks up promotion status for a token.
type BoostChecker interface {
	BoostInfo(ctx context.Context, mint string) (bool, int, error)
}

// Session close reasons.
const (
	reasonSold             = "sold"
	reasonStagnant         = "stagnant"
	reasonNoEntry          = "no_entry"
	reasonSellPressure     = "sell_pressure"
	reasonQuoteUnavailable = "quote_unavailable"
	reasonBuyFailed        = "buy_failed"
	reasonShutdown         = "shutdown"
)

// Config configures session behavior.
type Config struct {
	// StagnantAfter closes a session when the price has not moved for
	// this long.
	StagnantAfter time.Duration
	// MaxSessionAge closes a session that never entered.
	MaxSessionAge time.Duration
	// EntryChangePct is the minimum change from open required to buy.
	EntryChangePct float64
	// TickYield is the pause after processing a fresh price.
	TickYield time.Duration
	// DuplicateYield is the pause when the price has not changed.
	DuplicateYield time.Duration
	// WindowReset is the momentum and diff window length.
	WindowReset time.Duration
}

// DefaultConfig returns default session configuration.
func DefaultConfig() Config {
	return Config{
		StagnantAfter:  30 * time.Second,
		MaxSessionAge:  time.Hour,
		EntryChangePct: 80,
		TickYield:      20 * time.Millisecond,
		DuplicateYield: 100 * time.Millisecond,
		WindowReset:    10 * time.Second,
	}
}

// Tracker runs one market session: it watches the live price derived
// from the reserve subscriptions, decides entry and exit, and persists
// a summary when the session closes.
type Tracker struct {
	mint      string
	supply    float64
	openPrice float64
	config    Config

	trader    Trader
	pools     Pools
	summaries store.SummaryStore
	blacklist store.Blacklist
	boosts    BoostChecker
	clock     Clock
	logger    *log.Logger

	mu       sync.Mutex
	price    float64
	priceUSD float64
	volume   store.Volume

	// history is only touched by the run goroutine.
	history []float64

	boosted     bool
	boostsCount int
}

// updatePrice feeds a fresh derived price into the session. Rises and
// falls are counted as buy and sell ticks; an unchanged price is
// ignored.
func (t *Tracker) updatePrice(price, priceUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if price == t.price {
		return
	}
	if price > t.price {
		t.volume.Buy++
	} else {
		t.volume.Sell++
	}
	t.price = price
	t.priceUSD = priceUSD
}

func (t *Tracker) snapshot() (price, priceUSD float64, volume store.Volume) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.price, t.priceUSD, t.volume
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// run drives the session until an exit rule fires and returns the
// close reason.
func (t *Tracker) run(ctx context.Context) string {
	var (
		lastPrice  float64
		momentum   float64
		step       = initialStep
		bought     bool
		sold       bool
		buyPrice   float64
		buyTime    time.Time
		tokens     uint64
		ownChange  float64
		changePct  float64
		peakChange float64
		prevChange float64
		marketCap  float64
		pctDiff    []float64
	)

	openTime := t.clock.Now()
	lastChangeAt := openTime
	windowStart := openTime

	reason := reasonShutdown
	for ctx.Err() == nil {
		price, priceUSD, volume := t.snapshot()
		now := t.clock.Now()

		if now.Sub(lastChangeAt) >= t.config.StagnantAfter {
			if bought && !sold {
				t.sellPosition(ctx, tokens, ownChange)
				sold = true
			}
			reason = reasonStagnant
			break
		}

		if price == lastPrice {
			t.clock.Sleep(ctx, t.config.DuplicateYield)
			continue
		}
		lastChangeAt = now
		if price > lastPrice {
			momentum += 0.01
		} else {
			momentum -= 0.01
		}
		lastPrice = price
		t.history = append(t.history, price)

		changePct = ChangePct(t.openPrice, price)
		if changePct > peakChange {
			peakChange = changePct
		}
		if changePct != prevChange {
			if len(pctDiff) == 0 {
				pctDiff = append(pctDiff, round2(changePct))
			} else {
				pctDiff = append(pctDiff, round2(changePct-prevChange))
			}
			prevChange = changePct
		}
		diffsOK := allDiffsAbove(pctDiff, -10)
		marketCap = priceUSD * t.supply

		t.logger.Printf("[session] %s price %.10f (%.5f USD) change %.2f%% step %d mcap %.2f ticks %d/%d",
			t.mint, price, priceUSD, changePct, step, marketCap, volume.Buy, volume.Sell)

		elapsed := now.Sub(openTime)

		if now.Sub(windowStart) >= t.config.WindowReset {
			windowStart = now
			pctDiff = pctDiff[:0]
			t.logger.Printf("[session] momentum for %s: %.2f", t.mint, momentum)
			momentum = 0
			t.pollBoosts(ctx)
		}

		if !bought && ((changePct <= -40 && elapsed >= 13*time.Second) ||
			(changePct <= -15 && elapsed >= 60*time.Second) ||
			elapsed > t.config.MaxSessionAge) {
			t.logger.Printf("[session] %s leaving, change %.2f%% after %.0fs", t.mint, changePct, elapsed.Seconds())
			reason = reasonNoEntry
			break
		}

		ratio := sellToBuyRatio(volume)
		if !bought && len(t.history) >= 20 && ratio >= 100 {
			t.logger.Printf("[session] %s leaving, sell pressure %.0f", t.mint, ratio)
			reason = reasonSellPressure
			break
		}

		if !bought && inEntryRange(ratio, len(t.history)) && diffsOK && changePct >= t.config.EntryChangePct {
			t.logger.Printf("[session] %s entering at change %.2f%%", t.mint, changePct)
			balance, err := t.trader.Buy(ctx, t.mint)
			if err != nil {
				if errors.Is(err, swap.ErrQuoteUnavailable) {
					reason = reasonQuoteUnavailable
				} else {
					t.logger.Printf("[session] buy failed for %s: %v", t.mint, err)
					reason = reasonBuyFailed
				}
				break
			}
			tokens = balance
			buyPrice = price
			buyTime = t.clock.Now()
			bought = true
		}

		if bought {
			ownChange = ChangePct(buyPrice, price)
			if ownChange != 0 {
				step = nextStep(momentum, volume, ownChange, t.clock.Now().Sub(buyTime), step)
				if ownChange >= float64(step) || ownChange <= -12 {
					t.sellPosition(ctx, tokens, ownChange)
					sold = true
					reason = reasonSold
					break
				}
			}
		}

		t.clock.Sleep(ctx, t.config.TickYield)
	}

	t.pools.MarkSold(t.mint)
	t.persistSummary(lastPrice, changePct, peakChange, marketCap, pctDiff)
	return reason
}

// sellPosition dumps the held tokens and bans the creator when the
// position closed deep underwater.
func (t *Tracker) sellPosition(ctx context.Context, tokens uint64, ownChange float64) {
	if t.blacklist != nil && ownChange <= -25 {
		if creator := t.pools.Creator(t.mint); creator != "" {
			t.logger.Printf("[session] blacklisting creator %s of %s", creator, t.mint)
			if err := t.blacklist.Add(creator); err != nil {
				t.logger.Printf("[session] blacklist add failed: %v", err)
			}
		}
	}

	if err := t.trader.Sell(ctx, t.mint, tokens, ownChange); err != nil {
		t.logger.Printf("[session] sell failed for %s: %v", t.mint, err)
		return
	}
	t.logger.Printf("[session] sold %s at change %.2f%%", t.mint, ownChange)
}

func (t *Tracker) pollBoosts(ctx context.Context) {
	if t.boosts == nil {
		return
	}
	boosted, boosts, err := t.boosts.BoostInfo(ctx, t.mint)
	if err != nil {
		t.logger.Printf("[session] boost lookup for %s: %v", t.mint, err)
		return
	}
	if boosted && (!t.boosted || boosts != t.boostsCount) {
		t.logger.Printf("[session] %s is boosted with %d boosts", t.mint, boosts)
	}
	t.boosted = boosted
	t.boostsCount = boosts
}

func (t *Tracker) persistSummary(lastPrice, changePct, peakChange, marketCap float64, pctDiff []float64) {
	if t.summaries == nil {
		return
	}

	_, _, volume := t.snapshot()
	summary := &store.SessionSummary{
		Mint:          t.mint,
		Owner:         t.pools.Creator(t.mint),
		LatestPrice:   lastPrice,
		PriceHistory:  t.history,
		SavedAt:       time.Now().UTC(),
		CurrentChange: changePct,
		PeakChange:    peakChange,
		MarketCap:     marketCap,
		Volume:        volume,
		PctDiff:       append([]float64(nil), pctDiff...),
	}

	// A fresh context: summaries are written even during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.summaries.Append(ctx, summary); err != nil {
		t.logger.Printf("[session] persisting summary for %s: %v", t.mint, err)
	}
}
