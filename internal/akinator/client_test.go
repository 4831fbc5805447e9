package akinator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL), srv.Close
}

func TestStartSessionParsesNestedStep(t *testing.T) {
	var gotPlayer string
	c, cleanup := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/new_session" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("partner") != "1" {
			t.Fatalf("missing partner param")
		}
		gotPlayer = r.URL.Query().Get("player")
		w.Write([]byte(`{"completion":"OK","parameters":{
			"identification":{"session":"s1","signature":"sig1"},
			"step_information":{"question":"Is it living?","step":0,"progression":"10.5"}}}`))
	}))
	defer cleanup()

	info, err := c.StartSession(context.Background(), "tok123")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if gotPlayer != "tok123" {
		t.Fatalf("player param = %q", gotPlayer)
	}
	if info.Session != "s1" || info.Signature != "sig1" {
		t.Fatalf("identification = %q/%q", info.Session, info.Signature)
	}
	if info.Question != "Is it living?" || info.Step != 0 || info.Progression != 10.5 {
		t.Fatalf("step info = %+v", info)
	}
}

func TestStartSessionMissingIdentification(t *testing.T) {
	c, cleanup := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"completion":"OK","parameters":{"step_information":{"question":"q","step":0,"progression":1}}}`))
	}))
	defer cleanup()

	if _, err := c.StartSession(context.Background(), "tok"); !errors.Is(err, ErrProtocolError) {
		t.Fatalf("expected ErrProtocolError, got %v", err)
	}
}

func TestSubmitAnswerInlineParams(t *testing.T) {
	c, cleanup := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("session") != "s1" || q.Get("signature") != "sig1" || q.Get("step") != "3" || q.Get("answer") != "0" {
			t.Fatalf("bad query: %v", q)
		}
		w.Write([]byte(`{"completion":"OK","parameters":{"question":"Next?","step":4,"progression":95.2}}`))
	}))
	defer cleanup()

	info, err := c.SubmitAnswer(context.Background(), "s1", "sig1", 3, AnswerYes)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if info.GameOver {
		t.Fatalf("unexpected game over")
	}
	if info.Step != 4 || info.Progression != 95.2 || info.Question != "Next?" {
		t.Fatalf("step info = %+v", info)
	}
}

func TestSubmitAnswerGameOver(t *testing.T) {
	c, cleanup := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"completion":"KO - ELEM LIST IS EMPTY"}`))
	}))
	defer cleanup()

	info, err := c.SubmitAnswer(context.Background(), "s1", "sig1", 10, AnswerNo)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !info.GameOver {
		t.Fatalf("expected game over")
	}
}

func TestFetchGuess(t *testing.T) {
	c, cleanup := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"completion":"OK","parameters":{"elements":[{"element":{
			"id":"42","name":"Sherlock Holmes","description":"Detective",
			"pseudo":"none","ranking":"3","absolute_picture_path":"http://img/42.png"}}]}}`))
	}))
	defer cleanup()

	g, err := c.FetchGuess(context.Background(), "s1", "sig1", 12)
	if err != nil {
		t.Fatalf("FetchGuess: %v", err)
	}
	if g.ID != "42" || g.Name != "Sherlock Holmes" || g.Ranking != 3 || g.ImageURL != "http://img/42.png" {
		t.Fatalf("guess = %+v", g)
	}
}

func TestFetchGuessEmptyList(t *testing.T) {
	c, cleanup := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"completion":"OK","parameters":{"elements":[]}}`))
	}))
	defer cleanup()

	if _, err := c.FetchGuess(context.Background(), "s1", "sig1", 1); !errors.Is(err, ErrProtocolError) {
		t.Fatalf("expected ErrProtocolError, got %v", err)
	}
}

func TestResolveGuessRoutes(t *testing.T) {
	var paths []string
	var lastQuery map[string][]string
	c, cleanup := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		lastQuery = r.URL.Query()
		w.Write([]byte(`{"completion":"OK","parameters":{}}`))
	}))
	defer cleanup()

	if err := c.ResolveGuess(context.Background(), "s1", "sig1", 7, "42", true); err != nil {
		t.Fatalf("ResolveGuess(confirm): %v", err)
	}
	if paths[0] != "/choice" || lastQuery["element"][0] != "42" {
		t.Fatalf("confirm call: path=%s query=%v", paths[0], lastQuery)
	}

	if err := c.ResolveGuess(context.Background(), "s1", "sig1", 7, "42", false); err != nil {
		t.Fatalf("ResolveGuess(reject): %v", err)
	}
	if paths[1] != "/exclusion" || lastQuery["forward_answer"][0] != "1" {
		t.Fatalf("reject call: path=%s query=%v", paths[1], lastQuery)
	}
}

func TestServiceUnavailable(t *testing.T) {
	c, cleanup := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer cleanup()

	if _, err := c.SubmitAnswer(context.Background(), "s", "sig", 0, AnswerYes); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestNewPlayerToken(t *testing.T) {
	a, b := NewPlayerToken(), NewPlayerToken()
	if len(a) != 16 || len(b) != 16 {
		t.Fatalf("token length: %q %q", a, b)
	}
	if a == b {
		t.Fatalf("tokens should differ")
	}
}
