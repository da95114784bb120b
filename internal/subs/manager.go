package subs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"raydium-sniper/internal/observability"
)

// Config configures socket behavior for all subscriptions.
type Config struct {
	// Endpoint is the node's WebSocket URL.
	Endpoint string
	// ReconnectDelay is the fixed pause before redialing the log feed.
	ReconnectDelay time.Duration
	// ReadTimeout is the per-read deadline on account sockets.
	ReadTimeout time.Duration
	// WriteTimeout bounds subscribe-request and ping writes.
	WriteTimeout time.Duration
	// PingInterval is how often idle account sockets are pinged.
	PingInterval time.Duration
	// QueueSize is the capacity of the shared log event queue.
	QueueSize int
}

// DefaultConfig returns default subscription configuration.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:       endpoint,
		ReconnectDelay: 1 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   15 * time.Second,
		QueueSize:      1024,
	}
}

// Manager owns the pool table and every live subscription socket. Each
// subscription runs its own goroutine and receive loop, so adding or
// removing one never interrupts another's delivery.
type Manager struct {
	config  Config
	handler AccountHandler
	logger  *log.Logger
	metrics *observability.Metrics

	events chan LogEvent

	mu    sync.Mutex
	pools map[string]*PoolRecord // keyed by mint
	subs  map[string]*accountSub // keyed by account address

	requestID atomic.Uint64
	wg        sync.WaitGroup
}

// accountSub is one live account subscription handle.
type accountSub struct {
	address string
	mint    string
	role    Role
	conn    *websocket.Conn
}

// NewManager creates a subscription manager delivering account updates to
// handler. Metrics may be nil.
func NewManager(config Config, handler AccountHandler, logger *log.Logger, metrics *observability.Metrics) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	return &Manager{
		config:  config,
		handler: handler,
		logger:  logger,
		metrics: metrics,
		events:  make(chan LogEvent, config.QueueSize),
		pools:   make(map[string]*PoolRecord),
		subs:    make(map[string]*accountSub),
	}
}

// Events returns the shared queue of program log notifications.
func (m *Manager) Events() <-chan LogEvent {
	return m.events
}

// RegisterPool adds a pool to the table. Re-registering a mint is a no-op.
func (m *Manager) RegisterPool(rec PoolRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[rec.Mint]; ok {
		return
	}
	r := rec
	m.pools[rec.Mint] = &r
}

// Pool returns a copy of the pool record for mint.
func (m *Manager) Pool(mint string) (PoolRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.pools[mint]
	if !ok {
		return PoolRecord{}, false
	}
	return *rec, true
}

// MarkSold flips the pool's sold flag. The flag never flips back.
func (m *Manager) MarkSold(mint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.pools[mint]; ok {
		rec.Sold = true
	}
}

// IsSold reports the pool's sold flag; unknown mints read as sold so that
// orphaned subscription loops terminate.
func (m *Manager) IsSold(mint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.pools[mint]
	if !ok {
		return true
	}
	return rec.Sold
}

// Creator returns the pool creator's address, if known.
func (m *Manager) Creator(mint string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.pools[mint]; ok {
		return rec.Creator
	}
	return ""
}

// Subscribed reports whether a live handle exists for address.
func (m *Manager) Subscribed(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[address]
	return ok
}

// Unsubscribe closes and removes the handle for address. Absence of a
// handle is not an error.
func (m *Manager) Unsubscribe(address string) {
	m.mu.Lock()
	sub, ok := m.subs[address]
	if ok {
		delete(m.subs, address)
	}
	m.mu.Unlock()

	if ok {
		sub.conn.Close()
		if m.metrics != nil {
			m.metrics.LiveSubscriptions.Dec()
		}
	}
}

// Wait blocks until every subscription goroutine has exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// wsRequest is a JSON-RPC 2.0 subscribe request.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.config.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

func (m *Manager) writeJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(m.config.WriteTimeout))
	return conn.WriteJSON(v)
}

// isTimeout reports whether a read error is a deadline expiry rather than
// a dead connection.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// logNotification mirrors the logsNotification frame shape.
type logNotification struct {
	Method string `json:"method"`
	Params *struct {
		Result struct {
			Context struct {
				Slot int64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string      `json:"signature"`
				Logs      []string    `json:"logs"`
				Err       interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// accountNotification mirrors the accountNotification frame shape.
type accountNotification struct {
	Method string `json:"method"`
	Params *struct {
		Result struct {
			Value struct {
				Data struct {
					Parsed struct {
						Info struct {
							TokenAmount struct {
								UIAmount float64 `json:"uiAmount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// SubscribeLogs runs the persistent program log feed in a new goroutine.
// On any socket failure it redials after a fixed delay, indefinitely,
// until ctx is cancelled. A single malformed message is dropped without
// terminating the socket.
func (m *Manager) SubscribeLogs(ctx context.Context, program string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for ctx.Err() == nil {
			if err := m.runLogFeed(ctx, program); err != nil && ctx.Err() == nil {
				m.logger.Printf("[subs] log feed error: %v, reconnecting in %v", err, m.config.ReconnectDelay)
			}
			if m.metrics != nil {
				m.metrics.LogFeedReconnects.Inc()
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.config.ReconnectDelay):
			}
		}
	}()
}

// runLogFeed dials and drains the log feed socket until it fails.
func (m *Manager) runLogFeed(ctx context.Context, program string) error {
	conn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket on cancellation so the blocked read returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      m.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{program}},
			map[string]string{"commitment": "processed"},
		},
	}
	if err := m.writeJSON(conn, req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	// First frame is the subscription confirmation.
	if _, _, err := conn.ReadMessage(); err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	m.logger.Printf("[subs] subscribed to logs for program %s", program)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var notif logNotification
		if err := json.Unmarshal(message, &notif); err != nil {
			m.logger.Printf("[subs] dropping malformed log message: %v", err)
			if m.metrics != nil {
				m.metrics.DroppedMessages.Inc()
			}
			continue
		}
		if notif.Params == nil {
			continue
		}

		event := LogEvent{
			Slot:      notif.Params.Result.Context.Slot,
			Logs:      notif.Params.Result.Value.Logs,
			Signature: notif.Params.Result.Value.Signature,
			Err:       notif.Params.Result.Value.Err,
		}

		select {
		case m.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SubscribeAccount starts a dedicated subscription for one reserve
// account in a new goroutine. A second subscription for an address that
// already has a live handle is a no-op.
func (m *Manager) SubscribeAccount(ctx context.Context, address, mint string, role Role) {
	m.mu.Lock()
	if _, ok := m.subs[address]; ok {
		m.mu.Unlock()
		return
	}
	// Reserve the slot before dialing so concurrent discoveries of the
	// same address cannot race into two sockets.
	m.subs[address] = &accountSub{address: address, mint: mint, role: role}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runAccountSub(ctx, address, mint, role)
	}()
}

// runAccountSub owns one account socket from dial to teardown.
func (m *Manager) runAccountSub(ctx context.Context, address, mint string, role Role) {
	defer m.Unsubscribe(address)

	conn, err := m.dial(ctx)
	if err != nil {
		m.logger.Printf("[subs] account %s dial failed: %v", address, err)
		m.MarkSold(mint)
		return
	}
	defer conn.Close()

	m.mu.Lock()
	if sub, ok := m.subs[address]; ok {
		sub.conn = conn
	}
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.LiveSubscriptions.Inc()
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      m.requestID.Add(1),
		Method:  "accountSubscribe",
		Params: []interface{}{
			address,
			map[string]string{"encoding": "jsonParsed", "commitment": "processed"},
		},
	}
	if err := m.writeJSON(conn, req); err != nil {
		m.logger.Printf("[subs] account %s subscribe failed: %v", address, err)
		m.MarkSold(mint)
		return
	}

	if _, _, err := conn.ReadMessage(); err != nil {
		m.logger.Printf("[subs] account %s confirmation failed: %v", address, err)
		m.MarkSold(mint)
		return
	}
	m.logger.Printf("[subs] subscribed to account %s as %s", address, role)

	// Pong responses extend the read deadline past the next ping.
	conn.SetReadDeadline(time.Now().Add(m.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(m.config.ReadTimeout))
		return nil
	})

	pinger := time.NewTicker(m.config.PingInterval)
	defer pinger.Stop()

	reads := make(chan []byte, 1)
	readErrs := make(chan error, 1)
	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				readErrs <- err
				return
			}
			select {
			case reads <- message:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pinger.C:
			// Keep-alive rather than letting the read deadline kill a
			// quiet socket.
			conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.config.WriteTimeout))

		case err := <-readErrs:
			if ctx.Err() != nil {
				return
			}
			if isTimeout(err) {
				// Deadline expiry with no pong means the peer is gone.
				m.logger.Printf("[subs] account %s went quiet, dropping", address)
			} else {
				m.logger.Printf("[subs] account %s read failed: %v", address, err)
			}
			m.MarkSold(mint)
			return

		case message := <-reads:
			conn.SetReadDeadline(time.Now().Add(m.config.ReadTimeout))

			var notif accountNotification
			if err := json.Unmarshal(message, &notif); err != nil {
				// Unrecoverable shape mismatch; unblock the session loop.
				m.logger.Printf("[subs] account %s unparseable update, stopping: %v", address, err)
				m.MarkSold(mint)
				return
			}
			if notif.Params == nil {
				// Subscription confirmation or keepalive frame.
				continue
			}

			update := AccountUpdate{
				Address:   address,
				Mint:      mint,
				Role:      role,
				Timestamp: time.Now(),
				UIAmount:  notif.Params.Result.Value.Data.Parsed.Info.TokenAmount.UIAmount,
			}
			if m.metrics != nil {
				m.metrics.AccountUpdates.Inc()
			}
			m.handler.HandleAccountUpdate(ctx, update)

			if m.IsSold(mint) {
				m.logger.Printf("[subs] unsubscribing %s, pool for %s is closed", address, mint)
				return
			}
		}
	}
}
