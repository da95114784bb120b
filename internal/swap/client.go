// Package swap places orders through the quote/swap websocket service
// and confirms them against the chain.
package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"raydium-sniper/internal/observability"
	"raydium-sniper/internal/pricing"
	"raydium-sniper/internal/solana"
	"raydium-sniper/internal/store"
)

// Protocol failures.
var (
	// ErrQuoteUnavailable means no route to the token exists after all
	// quote retries. The session should be abandoned.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrInstructionError means the submitted transaction landed but an
	// instruction failed.
	ErrInstructionError = errors.New("instruction error")

	// ErrTxNotFound means the transaction never appeared on chain
	// within the confirmation window.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrInsufficientBalance means the wallet cannot cover the order
	// plus its priority fee.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

const wsolMint = "So11111111111111111111111111111111111111112"

// Order directions.
const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

// Order outcomes, as persisted.
const (
	OutcomeConfirmed        = "confirmed"
	OutcomeTxFail           = "tx_fail"
	OutcomeInstructionError = "instruction_error"
)

// Config configures the swap client.
type Config struct {
	// Endpoint is the quote/swap websocket URL.
	Endpoint string
	// QuoteRetries is how many times a non-tradable quote is retried.
	QuoteRetries int
	// QuoteRetryDelay is the pause between quote retries.
	QuoteRetryDelay time.Duration
	// ConfirmInitialDelay is slept before the first confirmation poll.
	ConfirmInitialDelay time.Duration
	// ConfirmAttempts bounds the confirmation polls.
	ConfirmAttempts int
	// ConfirmRetryDelay is the pause between confirmation polls.
	ConfirmRetryDelay time.Duration
	// BuyUSD is the notional buy size.
	BuyUSD float64
	// BuyFeeUSD is the buy priority fee.
	BuyFeeUSD float64
	// SellFeeUSD is the sell priority fee.
	SellFeeUSD float64
}

// DefaultConfig returns default swap client configuration.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:            endpoint,
		QuoteRetries:        15,
		QuoteRetryDelay:     500 * time.Millisecond,
		ConfirmInitialDelay: 1 * time.Second,
		ConfirmAttempts:     8,
		ConfirmRetryDelay:   500 * time.Millisecond,
		BuyUSD:              1,
		BuyFeeUSD:           0.07,
		SellFeeUSD:          0.1,
	}
}

// Client places and confirms orders. The websocket connection is dialed
// lazily and reused; a dead socket is redialed on the next order.
type Client struct {
	config  Config
	rpc     solana.RPCClient
	keypair *solana.Keypair
	wallet  string
	prices  *pricing.SolPrice
	orders  store.OrderStore
	logger  *log.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	conn      *websocket.Conn
	requestID uint64
}

// NewClient creates a swap client. orders and metrics may be nil.
func NewClient(config Config, rpc solana.RPCClient, keypair *solana.Keypair, prices *pricing.SolPrice, orders store.OrderStore, logger *log.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		config:  config,
		rpc:     rpc,
		keypair: keypair,
		wallet:  keypair.PublicKey(),
		prices:  prices,
		orders:  orders,
		logger:  logger,
		metrics: metrics,
	}
}

type wsRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      uint64      `json:"id"`
}

type wsResponse struct {
	Result json.RawMessage `json:"result"`
}

// call sends one request and reads one response on the shared socket.
// Any transport error drops the connection so the next call redials.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.DialContext(ctx, c.config.Endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("dial swap socket: %w", err)
		}
		c.conn = conn
		c.logger.Printf("[swap] socket opened to %s", c.config.Endpoint)
	}

	c.requestID++
	req := wsRequest{JSONRPC: "2.0", Method: method, Params: params, ID: c.requestID}
	if err := c.conn.WriteJSON(req); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("write %s request: %w", method, err)
	}

	var resp wsResponse
	if err := c.conn.ReadJSON(&resp); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	return resp.Result, nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close closes the socket if open.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}

type quoteParams struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      uint64 `json:"amount"`
	SlippageBps int    `json:"slippageBps"`
}

// quoteError is the subset of the quote result checked for retryable
// route failures.
type quoteError struct {
	ErrorCode string `json:"errorCode"`
}

func retryableQuoteError(code string) bool {
	return code == "TOKEN_NOT_TRADABLE" || code == "COULD_NOT_FIND_ANY_ROUTE"
}

// Quote requests a route for swapping amount of inputMint into
// outputMint. Route failures are retried on a fixed delay; exhaustion
// returns ErrQuoteUnavailable.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (json.RawMessage, error) {
	params := quoteParams{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		SlippageBps: 10000,
	}

	for attempt := 0; ; attempt++ {
		result, err := c.call(ctx, "quote", params)
		if err != nil {
			return nil, err
		}

		var qe quoteError
		if err := json.Unmarshal(result, &qe); err == nil && retryableQuoteError(qe.ErrorCode) {
			if attempt >= c.config.QuoteRetries {
				c.logger.Printf("[swap] giving up on quote for %s after %d retries", outputMint, attempt)
				return nil, ErrQuoteUnavailable
			}
			c.logger.Printf("[swap] token not tradable yet, retrying quote for %s", outputMint)
			if c.metrics != nil {
				c.metrics.QuoteRetries.Inc()
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.QuoteRetryDelay):
			}
			continue
		}
		return result, nil
	}
}

type swapParams struct {
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports"`
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
}

type swapResult struct {
	SwapTransaction string      `json:"swapTransaction"`
	SimulationError interface{} `json:"simulationError"`
}

// Swap exchanges a quote for an unsigned transaction.
func (c *Client) Swap(ctx context.Context, quote json.RawMessage, feeLamports uint64) (string, error) {
	params := swapParams{
		UserPublicKey:             c.wallet,
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: feeLamports,
		QuoteResponse:             quote,
	}

	result, err := c.call(ctx, "swap", params)
	if err != nil {
		return "", err
	}

	var sr swapResult
	if err := json.Unmarshal(result, &sr); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}
	if sr.SwapTransaction == "" {
		return "", ErrQuoteUnavailable
	}
	if sr.SimulationError != nil {
		return "", fmt.Errorf("swap simulation failed: %v", sr.SimulationError)
	}
	return sr.SwapTransaction, nil
}

// signAndSubmit signs the service-built transaction and sends it.
func (c *Client) signAndSubmit(ctx context.Context, swapTxBase64 string) (string, error) {
	tx, err := solana.ParseTransactionBase64(swapTxBase64)
	if err != nil {
		return "", fmt.Errorf("parse swap transaction: %w", err)
	}
	tx.Sign(c.keypair)

	txID, err := c.rpc.SendTransaction(ctx, tx.SerializeBase64())
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	c.logger.Printf("[swap] transaction sent: https://solscan.io/tx/%s", txID)
	return txID, nil
}
