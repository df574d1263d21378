package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// Frame is the JSON message exchanged over a WebSocket connection.
type Frame struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// Frame types.
const (
	FrameWelcome = "welcome"
	FrameMessage = "message"
	FrameTyping  = "typing"
)

// WebSocketChannel serves one learner per connection. Mount it as an
// http.Handler; inbound frames are passed to the handler registered by Start.
type WebSocketChannel struct {
	mu      sync.RWMutex
	conns   map[string]*websocket.Conn
	handler func(InboundMessage)
	ctx     context.Context
	cancel  context.CancelFunc

	// AcceptOptions is passed to websocket.Accept. Nil keeps the library's
	// same-origin check.
	AcceptOptions *websocket.AcceptOptions
}

// NewWebSocketChannel creates a WebSocket channel adapter.
func NewWebSocketChannel() *WebSocketChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketChannel{
		conns:  make(map[string]*websocket.Conn),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (w *WebSocketChannel) Start(ctx context.Context, handler func(InboundMessage)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = handler
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Stop()
		case <-w.ctx.Done():
		}
	}()
	return nil
}

// Stop closes every open connection.
func (w *WebSocketChannel) Stop() error {
	w.cancel()

	w.mu.Lock()
	conns := w.conns
	w.conns = make(map[string]*websocket.Conn)
	w.mu.Unlock()

	for _, c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}

func (w *WebSocketChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	return w.write(ctx, userID, Frame{Type: FrameMessage, Text: msg.Text})
}

func (w *WebSocketChannel) SendTyping(ctx context.Context, userID string) error {
	return w.write(ctx, userID, Frame{Type: FrameTyping})
}

func (w *WebSocketChannel) write(ctx context.Context, userID string, f Frame) error {
	w.mu.RLock()
	c, ok := w.conns[userID]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no websocket connection for user %s", userID)
	}
	if err := wsjson.Write(ctx, c, f); err != nil {
		return fmt.Errorf("writing websocket frame: %w", err)
	}
	return nil
}

// ServeHTTP upgrades the request and runs the read loop for the connection.
// The learner is identified by the "user" query parameter, or a fresh ID.
// A synthetic /start is delivered first so the learner is greeted.
func (w *WebSocketChannel) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.mu.RLock()
	handler := w.handler
	w.mu.RUnlock()
	if handler == nil {
		http.Error(rw, "chat channel not started", http.StatusServiceUnavailable)
		return
	}

	c, err := websocket.Accept(rw, r, w.AcceptOptions)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = uuid.NewString()
	}

	w.mu.Lock()
	if prev, ok := w.conns[userID]; ok {
		_ = prev.Close(websocket.StatusPolicyViolation, "replaced by a new connection")
	}
	w.conns[userID] = c
	w.mu.Unlock()
	defer w.forget(userID, c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-w.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("websocket connected", "user_id", userID)
	if err := wsjson.Write(ctx, c, Frame{Type: FrameWelcome, UserID: userID}); err != nil {
		slog.Warn("websocket welcome failed", "user_id", userID, "error", err)
		return
	}

	handler(w.inbound(userID, "/start"))

	for {
		var f Frame
		if err := wsjson.Read(ctx, c, &f); err != nil {
			if s := websocket.CloseStatus(err); s == websocket.StatusNormalClosure || s == websocket.StatusGoingAway {
				slog.Info("websocket closed", "user_id", userID)
			} else if !errors.Is(err, context.Canceled) {
				slog.Warn("websocket read failed", "user_id", userID, "error", err)
			}
			return
		}
		if f.Type != "" && f.Type != FrameMessage {
			continue
		}
		if f.Text == "" {
			continue
		}
		handler(w.inbound(userID, f.Text))
	}
}

func (w *WebSocketChannel) inbound(userID, text string) InboundMessage {
	return InboundMessage{
		Channel:    "websocket",
		UserID:     userID,
		ExternalID: userID,
		Text:       text,
	}
}

func (w *WebSocketChannel) forget(userID string, c *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conns[userID] == c {
		delete(w.conns, userID)
	}
}

// Connected reports whether the learner has an open connection.
func (w *WebSocketChannel) Connected(userID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.conns[userID]
	return ok
}
