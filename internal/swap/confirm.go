package swap

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Confirm polls the chain for txID until it lands or the attempts run
// out. For buys it returns the wallet's post-trade token balance in
// base units; for sells the wallet's post-trade lamport balance.
func (c *Client) Confirm(ctx context.Context, txID, mint, direction string) (uint64, error) {
	start := time.Now()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(c.config.ConfirmInitialDelay):
	}

	for attempt := 0; attempt < c.config.ConfirmAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(c.config.ConfirmRetryDelay):
			}
		}

		tx, err := c.rpc.GetTransaction(ctx, txID)
		if err != nil {
			c.logger.Printf("[swap] confirm attempt %d for %s: %v", attempt+1, txID, err)
			continue
		}
		if tx == nil || tx.Meta == nil {
			continue
		}

		if tx.Meta.InstructionError() {
			c.logger.Printf("[swap] instruction error for %s: %v", txID, tx.Meta.Err)
			return 0, ErrInstructionError
		}

		if c.metrics != nil {
			c.metrics.ConfirmationLatency.Observe(time.Since(start).Seconds())
		}

		switch direction {
		case DirectionBuy:
			for _, balance := range tx.Meta.PostTokenBalances {
				if balance.Mint == mint && balance.Owner == c.wallet {
					amount, err := strconv.ParseUint(balance.Amount, 10, 64)
					if err != nil {
						return 0, fmt.Errorf("parse token balance %q: %w", balance.Amount, err)
					}
					return amount, nil
				}
			}
			// Landed but no balance entry for us; keep polling, later
			// attempts may carry the full metadata.
			continue
		case DirectionSell:
			if len(tx.Meta.PostBalances) == 0 {
				return 0, fmt.Errorf("no post balances for %s", txID)
			}
			return tx.Meta.PostBalances[0], nil
		default:
			return 0, fmt.Errorf("unknown direction %q", direction)
		}
	}

	c.logger.Printf("[swap] transaction %s never confirmed", txID)
	return 0, ErrTxNotFound
}
