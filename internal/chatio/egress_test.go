package chatio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWSEgressRejectsWhenDisconnected(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws", 0, time.Second)
	e := NewEgress("ws", false, nil, ws, nil)
	if err := e.SendText(context.Background(), "room1", "hi"); err == nil {
		t.Fatalf("expected error while disconnected")
	}
	if err := e.SendTyping(context.Background(), "room1"); err == nil {
		t.Fatalf("expected typing error while disconnected")
	}
}

func TestAutoEgressFallsBackToHTTP(t *testing.T) {
	var got ReplyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reply" {
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	ws := NewWebSocket("ws://127.0.0.1:1/ws", 0, time.Second)
	e := NewEgress("auto", false, NewClient(srv.URL), ws, nil)
	if err := e.SendText(context.Background(), "room1", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got.Type != "text" || got.Room != "room1" || got.Data != "hello" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestConnStateOnFreshSocket(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws", 0, time.Second)
	conn, state := ws.connState()
	if conn != nil || state != WSStateDisconnected {
		t.Fatalf("fresh socket = conn %v state %v", conn, state)
	}
}
