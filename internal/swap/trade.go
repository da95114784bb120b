package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raydium-sniper/internal/store"
)

// Buy swaps the configured USD notional of SOL into mint and returns
// the resulting token balance in base units.
func (c *Client) Buy(ctx context.Context, mint string) (uint64, error) {
	amount := c.prices.USDToLamports(c.config.BuyUSD)
	fee := c.prices.USDToLamports(c.config.BuyFeeUSD)

	balance, err := c.rpc.GetBalance(ctx, c.wallet)
	if err != nil {
		return 0, fmt.Errorf("fetch wallet balance: %w", err)
	}
	if balance <= amount+fee {
		c.logger.Printf("[swap] insufficient balance %d for buy of %d+%d", balance, amount, fee)
		return 0, ErrInsufficientBalance
	}

	tokens, txID, err := c.execute(ctx, wsolMint, mint, amount, fee, DirectionBuy, mint)
	c.record(ctx, DirectionBuy, mint, amount, fee, txID, float64(tokens), 0, err)
	if err != nil {
		return 0, err
	}
	c.logger.Printf("[swap] bought %d of %s", tokens, mint)
	return tokens, nil
}

// Sell swaps amount base units of mint back into SOL. changePct is the
// position's change at the moment of sale, recorded with the order.
func (c *Client) Sell(ctx context.Context, mint string, amount uint64, changePct float64) error {
	fee := c.prices.USDToLamports(c.config.SellFeeUSD)

	lamports, txID, err := c.execute(ctx, mint, wsolMint, amount, fee, DirectionSell, mint)
	c.record(ctx, DirectionSell, mint, amount, fee, txID, float64(lamports), changePct, err)
	if err != nil {
		return err
	}
	c.logger.Printf("[swap] sold %s, wallet at %d lamports", mint, lamports)
	return nil
}

// execute runs the full quote, swap, sign, submit, confirm pipeline.
func (c *Client) execute(ctx context.Context, inputMint, outputMint string, amount, fee uint64, direction, mint string) (uint64, string, error) {
	quote, err := c.Quote(ctx, inputMint, outputMint, amount)
	if err != nil {
		return 0, "", err
	}

	swapTx, err := c.Swap(ctx, quote, fee)
	if err != nil {
		return 0, "", err
	}

	// Once a transaction exists it must reach a terminal state even if
	// the process is shutting down.
	ctx = context.WithoutCancel(ctx)

	txID, err := c.signAndSubmit(ctx, swapTx)
	if err != nil {
		return 0, "", err
	}
	c.logger.Printf("[swap] %s order for %s: %s", direction, mint, txID)

	balance, err := c.Confirm(ctx, txID, mint, direction)
	if err != nil {
		return 0, txID, err
	}
	return balance, txID, nil
}

// record persists the order result and counts it. Persistence failures
// are logged, never propagated into the trade path.
func (c *Client) record(ctx context.Context, direction, mint string, amount, fee uint64, txID string, balance, changePct float64, tradeErr error) {
	outcome := OutcomeConfirmed
	switch {
	case errors.Is(tradeErr, ErrInstructionError):
		outcome = OutcomeInstructionError
	case errors.Is(tradeErr, ErrTxNotFound):
		outcome = OutcomeTxFail
	case tradeErr != nil:
		// Order never reached the chain; nothing to persist.
		if c.metrics != nil {
			c.metrics.OrdersPlaced.WithLabelValues(direction, "error").Inc()
		}
		return
	}

	if c.metrics != nil {
		c.metrics.OrdersPlaced.WithLabelValues(direction, outcome).Inc()
	}
	if c.orders == nil {
		return
	}

	result := &store.OrderResult{
		Timestamp:      time.Now().UTC(),
		Direction:      direction,
		Mint:           mint,
		AmountLamports: amount,
		FeeLamports:    fee,
		TxID:           txID,
		Outcome:        outcome,
		Balance:        balance,
		ChangePct:      changePct,
	}
	// Results are written even when the root context is already gone.
	if err := c.orders.Append(context.WithoutCancel(ctx), result); err != nil {
		c.logger.Printf("[swap] persisting %s order result: %v", direction, err)
	}
}
