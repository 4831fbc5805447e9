package chatio

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket/wsjson"
)

// Egress abstracts message/typing sending over HTTP or WebSocket.
type Egress interface {
	SendText(ctx context.Context, room, message string) error
	SendTyping(ctx context.Context, room string) error
}

type transportMode string

const (
	transportHTTP transportMode = "http"
	transportWS   transportMode = "ws"
	transportAuto transportMode = "auto"
)

// NewEgress creates an Egress based on mode. When mode is auto, WS is preferred when connected;
// on WS failure, it falls back to HTTP once.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := transportMode(mode)
	switch m {
	case transportWS:
		return &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
	case transportAuto:
		return &autoEgress{ws: &wsEgress{ws: ws, dryrun: dryrun, logger: logger}, http: &httpEgress{c: c}, logger: logger}
	default:
		return &httpEgress{c: c}
	}
}

// httpEgress delegates to Client.
type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, room, message string) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendMessage(ctx, room, message)
}

func (h *httpEgress) SendTyping(ctx context.Context, room string) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendTyping(ctx, room)
}

// wsEgress writes ReplyRequest frames over WebSocket.
type wsEgress struct {
	ws     *WebSocket
	dryrun bool
	logger *zap.Logger
}

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", "text"), zap.String("room", room))
		return nil
	}
	req := ReplyRequest{Type: "text", Room: room, Data: message}
	return w.writeJSON(ctx, &req)
}

func (w *wsEgress) SendTyping(ctx context.Context, room string) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", "typing"), zap.String("room", room))
		return nil
	}
	req := ReplyRequest{Type: "typing", Room: room}
	return w.writeJSON(ctx, &req)
}

func (w *wsEgress) writeJSON(ctx context.Context, v any) error {
	conn, state := w.ws.connState()
	if conn == nil || state != WSStateConnected {
		return errors.New("ws not connected")
	}
	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	// wsjson.Write is not concurrency-safe; call sites send one frame at a time.
	return wsjson.Write(dctx, conn, v)
}

// autoEgress prefers WS if available, with single fallback to HTTP.
type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) wsReady() bool {
	if a.ws == nil || a.ws.ws == nil {
		return false
	}
	conn, state := a.ws.ws.connState()
	return conn != nil && state == WSStateConnected
}

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
	if a.wsReady() {
		if err := a.ws.SendText(ctx, room, message); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "text"), zap.String("room", room))
	}
	return a.http.SendText(ctx, room, message)
}

func (a *autoEgress) SendTyping(ctx context.Context, room string) error {
	if a.wsReady() {
		if err := a.ws.SendTyping(ctx, room); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "typing"), zap.String("room", room))
	}
	return a.http.SendTyping(ctx, room)
}
