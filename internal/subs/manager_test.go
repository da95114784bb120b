package subs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// nopHandler records delivered updates.
type nopHandler struct {
	mu      sync.Mutex
	updates []AccountUpdate
}

func (h *nopHandler) HandleAccountUpdate(_ context.Context, u AccountUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
}

func (h *nopHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates)
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig(endpoint string) Config {
	cfg := DefaultConfig(endpoint)
	cfg.ReconnectDelay = 20 * time.Millisecond
	cfg.ReadTimeout = 2 * time.Second
	cfg.PingInterval = 500 * time.Millisecond
	return cfg
}

func confirmFrame(id uint64) map[string]interface{} {
	return map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": 1}
}

func TestManager_LogFeed_DeliversAndDropsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("expected logsSubscribe, got %s", req.Method)
		}

		conn.WriteJSON(confirmFrame(req.ID))

		// Malformed frame must be dropped without killing the socket.
		conn.WriteMessage(websocket.TextMessage, []byte("{not json"))

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]interface{}{
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 4242},
					"value": map[string]interface{}{
						"signature": "sig1",
						"logs":      []string{"Program log: InitializeMint"},
						"err":       nil,
					},
				},
			},
		})

		// Hold the socket open.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager(testConfig(wsURL(server)), &nopHandler{}, nil, nil)
	m.SubscribeLogs(ctx, "program1")

	select {
	case event := <-m.Events():
		if event.Slot != 4242 {
			t.Errorf("slot = %d, want 4242", event.Slot)
		}
		if event.Signature != "sig1" {
			t.Errorf("signature = %s, want sig1", event.Signature)
		}
		if len(event.Logs) != 1 {
			t.Errorf("logs = %v", event.Logs)
		}
		if event.Err != nil {
			t.Errorf("err = %v, want nil", event.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for log event")
	}

	cancel()
	m.Wait()
}

func TestManager_LogFeed_Reconnects(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		mu.Lock()
		connections++
		n := connections
		mu.Unlock()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return
		}
		var req wsRequest
		json.Unmarshal(msg, &req)
		conn.WriteJSON(confirmFrame(req.ID))

		if n == 1 {
			// Drop the first connection immediately after confirming.
			conn.Close()
			return
		}

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]interface{}{
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 1},
					"value": map[string]interface{}{
						"signature": "after-reconnect",
						"logs":      []string{},
						"err":       nil,
					},
				},
			},
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager(testConfig(wsURL(server)), &nopHandler{}, nil, nil)
	m.SubscribeLogs(ctx, "program1")

	select {
	case event := <-m.Events():
		if event.Signature != "after-reconnect" {
			t.Errorf("signature = %s, want after-reconnect", event.Signature)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for post-reconnect event")
	}

	mu.Lock()
	if connections < 2 {
		t.Errorf("expected at least 2 connections, got %d", connections)
	}
	mu.Unlock()

	cancel()
	m.Wait()
}

func accountServer(t *testing.T, updates []float64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			return
		}
		if req.Method != "accountSubscribe" {
			t.Errorf("expected accountSubscribe, got %s", req.Method)
		}
		conn.WriteJSON(confirmFrame(req.ID))

		for _, amount := range updates {
			conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "accountNotification",
				"params": map[string]interface{}{
					"result": map[string]interface{}{
						"value": map[string]interface{}{
							"data": map[string]interface{}{
								"parsed": map[string]interface{}{
									"info": map[string]interface{}{
										"tokenAmount": map[string]interface{}{
											"uiAmount": amount,
										},
									},
								},
							},
						},
					},
				},
			})
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestManager_AccountSubscription_Delivers(t *testing.T) {
	server := accountServer(t, []float64{100.5, 99.25})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &nopHandler{}
	m := NewManager(testConfig(wsURL(server)), handler, nil, nil)
	m.RegisterPool(PoolRecord{Mint: "mintA", ReserveA: "acct1", ReserveB: "acct2"})

	m.SubscribeAccount(ctx, "acct1", "mintA", RolePool1)

	deadline := time.Now().Add(5 * time.Second)
	for handler.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if handler.count() < 2 {
		t.Fatalf("expected 2 updates, got %d", handler.count())
	}

	handler.mu.Lock()
	first := handler.updates[0]
	handler.mu.Unlock()
	if first.UIAmount != 100.5 || first.Mint != "mintA" || first.Role != RolePool1 {
		t.Errorf("unexpected first update: %+v", first)
	}

	cancel()
	m.Wait()
}

func TestManager_AccountSubscription_StopsWhenSold(t *testing.T) {
	server := accountServer(t, []float64{1, 2, 3})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &nopHandler{}
	m := NewManager(testConfig(wsURL(server)), handler, nil, nil)
	m.RegisterPool(PoolRecord{Mint: "mintA"})
	m.MarkSold("mintA")

	m.SubscribeAccount(ctx, "acct1", "mintA", RolePool1)

	// The first delivered update observes the sold flag and the loop exits.
	deadline := time.Now().Add(5 * time.Second)
	for m.Subscribed("acct1") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.Subscribed("acct1") {
		t.Fatal("subscription should have been removed after sold")
	}
	if handler.count() != 1 {
		t.Errorf("expected exactly 1 delivered update, got %d", handler.count())
	}

	cancel()
	m.Wait()
}

func TestManager_SubscribeAccount_DuplicateIsNoop(t *testing.T) {
	server := accountServer(t, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager(testConfig(wsURL(server)), &nopHandler{}, nil, nil)
	m.RegisterPool(PoolRecord{Mint: "mintA"})

	m.SubscribeAccount(ctx, "acct1", "mintA", RolePool1)
	m.SubscribeAccount(ctx, "acct1", "mintA", RolePool1)

	if !m.Subscribed("acct1") {
		t.Error("expected live handle for acct1")
	}

	cancel()
	m.Wait()
}

func TestManager_Unsubscribe_Idempotent(t *testing.T) {
	m := NewManager(DefaultConfig("ws://unused"), &nopHandler{}, nil, nil)

	// No handle present: must not panic or error.
	m.Unsubscribe("missing")
	m.Unsubscribe("missing")
}

func TestManager_PoolTable(t *testing.T) {
	m := NewManager(DefaultConfig("ws://unused"), &nopHandler{}, nil, nil)

	m.RegisterPool(PoolRecord{Mint: "m1", Creator: "creator1", PoolAddress: "p1"})

	rec, ok := m.Pool("m1")
	if !ok {
		t.Fatal("expected pool record")
	}
	if rec.Creator != "creator1" {
		t.Errorf("creator = %s", rec.Creator)
	}
	if m.IsSold("m1") {
		t.Error("new pool should not be sold")
	}

	// Re-registering must not reset state.
	m.MarkSold("m1")
	m.RegisterPool(PoolRecord{Mint: "m1", Creator: "other"})
	if !m.IsSold("m1") {
		t.Error("re-register must not clear sold flag")
	}

	// Unknown mints read as sold so orphaned loops terminate.
	if !m.IsSold("unknown") {
		t.Error("unknown mint should read as sold")
	}
}
