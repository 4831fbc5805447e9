package chatio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/config" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"port":3000,"polling_speed":200,"message_rate":5,"webserver_endpoint":"/ws"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	cfg, err := c.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.Port != 3000 || cfg.WebserverEndpoint != "/ws" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestSendMessage(t *testing.T) {
	var got ReplyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reply" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.SendMessage(context.Background(), "room1", "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got.Type != "text" || got.Room != "room1" || got.Data != "hello" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestSendMessageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.SendMessage(context.Background(), "room1", "hello"); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestHeaderProvider(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Session-Id")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Session-Id": "abc"}
	}))
	if err := c.SendTyping(context.Background(), "room1"); err != nil {
		t.Fatalf("SendTyping: %v", err)
	}
	if gotHeader != "abc" {
		t.Fatalf("header = %q", gotHeader)
	}
}
