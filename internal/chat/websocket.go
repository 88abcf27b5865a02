package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// ChannelWebSocket is the gateway name of the browser widget channel.
const ChannelWebSocket = "ws"

const maxDecodeErrorsPerConn = 5

// Frame types exchanged with the widget.
const (
	FrameWelcome = "welcome"
	FrameAsk     = "ask"
	FrameSubject = "subject"
	FrameRandom  = "random"
	FrameCancel  = "cancel"
	FrameTyping  = "typing"
	FrameReply   = "reply"
	FrameError   = "error"
)

// Frame is a JSON message on the widget socket.
type Frame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Source    string `json:"source,omitempty"`
}

// WebSocketChannel serves the chat widget. Each connection is one user; the
// connection's session id is its UserID. It implements both Channel and
// http.Handler.
type WebSocketChannel struct {
	originPatterns []string

	mu      sync.RWMutex
	conns   map[string]*websocket.Conn
	handler func(InboundMessage)
	ctx     context.Context
	stopped bool
}

// NewWebSocketChannel creates the widget channel. allowedOrigins are full
// origins ("https://example.org") or host patterns; "*" allows any origin.
func NewWebSocketChannel(allowedOrigins []string) *WebSocketChannel {
	var patterns []string
	for _, o := range allowedOrigins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o = strings.TrimSuffix(o, "/"); o != "" {
			patterns = append(patterns, o)
		}
	}
	return &WebSocketChannel{
		originPatterns: patterns,
		conns:          make(map[string]*websocket.Conn),
	}
}

func (c *WebSocketChannel) Start(ctx context.Context, handler func(InboundMessage)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
	c.handler = handler
	c.stopped = false
	return nil
}

func (c *WebSocketChannel) Stop() error {
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[string]*websocket.Conn)
	c.stopped = true
	c.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}

func (c *WebSocketChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	return c.write(ctx, userID, Frame{
		Type:      FrameReply,
		RequestID: msg.RequestID,
		Text:      msg.Text,
		Source:    msg.Source,
	})
}

func (c *WebSocketChannel) SendTyping(ctx context.Context, userID string) error {
	return c.write(ctx, userID, Frame{Type: FrameTyping})
}

// Connections returns the number of open widget connections.
func (c *WebSocketChannel) Connections() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

func (c *WebSocketChannel) write(ctx context.Context, userID string, f Frame) error {
	c.mu.RLock()
	conn, ok := c.conns[userID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("websocket session %s is not connected", userID)
	}
	if err := wsjson.Write(ctx, conn, f); err != nil {
		return fmt.Errorf("writing %s frame: %w", f.Type, err)
	}
	return nil
}

// ServeHTTP upgrades the request and serves one widget connection until it
// closes. A client may resume its session with ?session_id=<id>.
func (c *WebSocketChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	handler, appCtx, stopped := c.handler, c.ctx, c.stopped
	c.mu.RUnlock()
	if handler == nil || stopped {
		http.Error(w, "chat is not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: c.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sessionID := c.register(r.URL.Query().Get("session_id"), conn)
	defer c.unregister(sessionID, conn)
	log := slog.With("channel", ChannelWebSocket, "user_id", sessionID)
	log.Info("widget connected")

	ctx := r.Context()
	if err := wsjson.Write(ctx, conn, Frame{Type: FrameWelcome, SessionID: sessionID}); err != nil {
		log.Warn("failed to send welcome frame", "error", err)
		return
	}

	decodeErrors := 0
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Info("widget disconnected")
			default:
				log.Info("widget connection closed", "error", err)
			}
			return
		}

		var f Frame
		if typ != websocket.MessageText || json.Unmarshal(data, &f) != nil {
			decodeErrors++
			_ = wsjson.Write(ctx, conn, Frame{Type: FrameError, Text: "invalid frame payload"})
			if decodeErrors >= maxDecodeErrorsPerConn {
				_ = conn.Close(websocket.StatusPolicyViolation, "too many invalid frames")
				return
			}
			continue
		}
		decodeErrors = 0

		msg, ok, ferr := mapWebSocketInbound(sessionID, f)
		if ferr != nil {
			_ = wsjson.Write(ctx, conn, Frame{Type: FrameError, RequestID: f.RequestID, Text: ferr.Error()})
			continue
		}
		if !ok {
			continue
		}
		if appCtx != nil && appCtx.Err() != nil {
			return
		}
		go handler(msg)
	}
}

func (c *WebSocketChannel) register(requested string, conn *websocket.Conn) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := requested
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	} else if _, taken := c.conns[id]; taken {
		id = uuid.NewString()
	}
	c.conns[id] = conn
	return id
}

func (c *WebSocketChannel) unregister(id string, conn *websocket.Conn) {
	c.mu.Lock()
	if c.conns[id] == conn {
		delete(c.conns, id)
	}
	c.mu.Unlock()
	_ = conn.CloseNow()
}

// mapWebSocketInbound converts a widget frame into an InboundMessage.
// Subject, random and cancel frames become the equivalent chat commands.
// Blank ask frames are dropped.
func mapWebSocketInbound(sessionID string, f Frame) (InboundMessage, bool, error) {
	msg := InboundMessage{
		Channel:    ChannelWebSocket,
		UserID:     sessionID,
		ExternalID: sessionID,
		RequestID:  f.RequestID,
	}

	switch f.Type {
	case FrameAsk:
		text := strings.TrimSpace(f.Text)
		if text == "" {
			return InboundMessage{}, false, nil
		}
		msg.Text = text
		if msg.RequestID == "" {
			msg.RequestID = uuid.NewString()
		}
	case FrameSubject:
		subject := strings.ToLower(strings.TrimSpace(f.Subject))
		if subject == "" || strings.ContainsAny(subject, " /@") {
			return InboundMessage{}, false, fmt.Errorf("invalid subject %q", f.Subject)
		}
		msg.Text = "/" + subject
	case FrameRandom:
		msg.Text = "/random"
	case FrameCancel:
		if strings.TrimSpace(f.RequestID) == "" {
			return InboundMessage{}, false, errors.New("cancel frame needs a request_id")
		}
		msg.Text = "/cancel " + strings.TrimSpace(f.RequestID)
		msg.RequestID = ""
	default:
		return InboundMessage{}, false, fmt.Errorf("unsupported frame type %q", f.Type)
	}
	return msg, true, nil
}
