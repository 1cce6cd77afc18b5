package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ChatEvent is a realtime support chat notification. The payload carries the
// affected message; consumers still refetch the list for authoritative state.
type ChatEvent struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversation_id"`
	Message        *Message `json:"message,omitempty"`
}

// ChatEventHandler handles realtime chat events.
type ChatEventHandler func(event ChatEvent)

// RealtimeChat is an optional websocket channel for support chat events.
// When unavailable, callers fall back to the MessagePoller.
type RealtimeChat struct {
	mu sync.Mutex

	url      string
	tokens   TokenSource
	conn     *websocket.Conn
	handlers map[string][]ChatEventHandler
	log      zerolog.Logger
	done     chan struct{}
}

// NewRealtimeChat builds a realtime channel against the API origin. The
// http(s) scheme is rewritten to ws(s).
func NewRealtimeChat(baseURL string, tokens TokenSource, logger *zerolog.Logger) *RealtimeChat {
	wsURL := baseURL
	if strings.HasPrefix(wsURL, "https") {
		wsURL = "wss" + wsURL[len("https"):]
	} else if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + wsURL[len("http"):]
	}
	wsURL = strings.TrimSuffix(wsURL, "/") + "/support-chat/ws"

	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "realtime-chat").Logger()
	}

	return &RealtimeChat{
		url:      wsURL,
		tokens:   tokens,
		handlers: make(map[string][]ChatEventHandler),
		log:      log,
		done:     make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the read and
// heartbeat loops. Connecting twice is a no-op.
func (r *RealtimeChat) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := map[string][]string{}
	if r.tokens != nil {
		if token, ok := r.tokens.Get(); ok && token != "" {
			header["Authorization"] = []string{"Bearer " + token}
		}
	}

	conn, _, err := dialer.DialContext(ctx, r.url, header)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	r.conn = conn
	r.done = make(chan struct{})

	// The goroutines work on this connection's channel pair; a later
	// reconnect swaps the fields without racing them.
	go r.readLoop(conn, r.done)
	go r.heartbeat(conn, r.done)

	return nil
}

// Disconnect closes the websocket connection.
func (r *RealtimeChat) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}

	close(r.done)
	err := r.conn.Close()
	r.conn = nil
	return err
}

// Subscribe registers a handler for one conversation's events. "*" receives
// events for every conversation.
func (r *RealtimeChat) Subscribe(conversationID string, handler ChatEventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[conversationID] = append(r.handlers[conversationID], handler)
}

func (r *RealtimeChat) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			r.log.Debug().Err(err).Msg("read closed")
			return
		}

		var event ChatEvent
		if err := json.Unmarshal(data, &event); err != nil {
			r.log.Warn().Err(err).Msg("malformed event")
			continue
		}

		r.dispatch(event)
	}
}

func (r *RealtimeChat) dispatch(event ChatEvent) {
	r.mu.Lock()
	handlers := append([]ChatEventHandler(nil), r.handlers[event.ConversationID]...)
	handlers = append(handlers, r.handlers["*"]...)
	r.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

func (r *RealtimeChat) heartbeat(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				r.log.Debug().Err(err).Msg("heartbeat failed")
				return
			}
		}
	}
}
