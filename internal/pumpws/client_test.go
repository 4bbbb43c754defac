package pumpws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// readSubscribe consumes the subscribeNewToken payload the client sends on
// connect and fails the test if it is anything else.
func readSubscribe(t *testing.T, c *websocket.Conn) {
	t.Helper()

	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Errorf("read subscribe: %v", err)
		return
	}
	var req map[string]string
	if err := json.Unmarshal(msg, &req); err != nil {
		t.Errorf("unmarshal subscribe: %v", err)
		return
	}
	if req["method"] != "subscribeNewToken" {
		t.Errorf("expected subscribeNewToken, got %q", req["method"])
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		readSubscribe(t, conn)

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := New(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
	if client.LastMessageAt() != 0 {
		t.Error("no messages yet, LastMessageAt should be 0")
	}
}

func TestClient_ReceivesMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		readSubscribe(t, conn)

		events := []string{
			`{"txType":"create","mint":"Mint1"}`,
			`{"txType":"create","mint":"Mint2"}`,
		}
		for _, e := range events {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(e)); err != nil {
				t.Errorf("write event: %v", err)
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := New(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	// Messages arrive in order.
	for i, want := range []string{"Mint1", "Mint2"} {
		select {
		case msg := <-client.Messages():
			var payload struct {
				Mint string `json:"mint"`
			}
			if err := json.Unmarshal(msg, &payload); err != nil {
				t.Fatalf("unmarshal message %d: %v", i, err)
			}
			if payload.Mint != want {
				t.Errorf("message %d: expected mint %s, got %s", i, want, payload.Mint)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for message %d", i)
		}
	}

	if client.LastMessageAt() == 0 {
		t.Error("LastMessageAt should be set after receiving messages")
	}
}

func TestClient_ReconnectResubscribes(t *testing.T) {
	var connCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}

		n := connCount.Add(1)
		readSubscribe(t, conn)

		if n == 1 {
			// Drop the first connection to force a reconnect.
			conn.Close()
			return
		}

		defer conn.Close()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"txType":"create","mint":"AfterReconnect"}`)); err != nil {
			t.Errorf("write event: %v", err)
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.ReconnectDelay = 50 * time.Millisecond

	client, err := New(context.Background(), wsURL(server), &cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	select {
	case msg := <-client.Messages():
		var payload struct {
			Mint string `json:"mint"`
		}
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if payload.Mint != "AfterReconnect" {
			t.Errorf("expected AfterReconnect, got %s", payload.Mint)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for post-reconnect message")
	}

	if connCount.Load() < 2 {
		t.Errorf("expected at least 2 connections, got %d", connCount.Load())
	}
}

func TestClient_ReconnectSurvivesFailedDial(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)

		// Refuse the upgrade on attempts 2 and 3 so the reconnect dial
		// itself fails; the endpoint comes back on attempt 4.
		if n == 2 || n == 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}

		readSubscribe(t, conn)

		if n == 1 {
			// Drop the first connection to trigger the reconnect cycle.
			conn.Close()
			return
		}

		defer conn.Close()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"txType":"create","mint":"AfterOutage"}`)); err != nil {
			t.Errorf("write event: %v", err)
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	var reconnects atomic.Int32
	cfg := DefaultConfig()
	cfg.ReconnectDelay = 20 * time.Millisecond
	cfg.MaxReconnectDelay = 100 * time.Millisecond
	cfg.OnReconnect = func() { reconnects.Add(1) }

	client, err := New(context.Background(), wsURL(server), &cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	select {
	case msg := <-client.Messages():
		var payload struct {
			Mint string `json:"mint"`
		}
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if payload.Mint != "AfterOutage" {
			t.Errorf("expected AfterOutage, got %s", payload.Mint)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("client never recovered from the failed dials: attempts=%d", attempts.Load())
	}

	if attempts.Load() < 4 {
		t.Errorf("expected at least 4 dial attempts, got %d", attempts.Load())
	}
	if reconnects.Load() < 3 {
		t.Errorf("expected at least 3 reconnect callbacks, got %d", reconnects.Load())
	}
}

func TestClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		readSubscribe(t, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := New(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	// Channel is closed after Close.
	select {
	case _, ok := <-client.Messages():
		if ok {
			t.Error("expected closed message channel")
		}
	case <-time.After(time.Second):
		t.Error("message channel not closed")
	}

	// Second close is a no-op.
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestClient_DialFailure(t *testing.T) {
	_, err := New(context.Background(), "ws://127.0.0.1:1/ws", nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
}

func TestWithJitter(t *testing.T) {
	base := time.Second
	for i := 0; i < 100; i++ {
		d := withJitter(base)
		if d < base/2 || d > base {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, base/2, base)
		}
	}
	if withJitter(0) != 0 {
		t.Error("zero delay should stay zero")
	}
}
