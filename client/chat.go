package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// Support Chat Types
// =============================================================================

// ConversationStatus is the lifecycle status of a support conversation.
type ConversationStatus string

const (
	ConversationOpen     ConversationStatus = "open"
	ConversationClosed   ConversationStatus = "closed"
	ConversationResolved ConversationStatus = "resolved"
)

// Valid reports whether the conversation status is a known value.
func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationOpen, ConversationClosed, ConversationResolved:
		return true
	}
	return false
}

// ParseConversationStatus converts a wire string into a ConversationStatus.
func ParseConversationStatus(s string) (ConversationStatus, error) {
	if status := ConversationStatus(s); status.Valid() {
		return status, nil
	}
	return "", fmt.Errorf("unknown conversation status: %q", s)
}

// Conversation is a support chat thread.
type Conversation struct {
	ID           string             `json:"id"`
	Subject      string             `json:"subject"`
	Status       ConversationStatus `json:"status"`
	IssueType    string             `json:"issue_type"`
	Participants []string           `json:"participants"`
	MessageCount int                `json:"message_count"`
}

// SenderType identifies who wrote a support message.
type SenderType string

const (
	SenderAdmin            SenderType = "admin"
	SenderVoucherOwner     SenderType = "voucher_owner"
	SenderVoucherRecipient SenderType = "voucher_recipient"
	SenderUser             SenderType = "user"
)

// Valid reports whether the sender type is a known value.
func (s SenderType) Valid() bool {
	switch s {
	case SenderAdmin, SenderVoucherOwner, SenderVoucherRecipient, SenderUser:
		return true
	}
	return false
}

// Message is one support chat message.
type Message struct {
	ID        string     `json:"id"`
	SenderID  string     `json:"sender_id"`
	Sender    SenderType `json:"sender_type"`
	Message   string     `json:"message"`
	FileURL   string     `json:"file_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// =============================================================================
// Support Chat Operations
// =============================================================================

// SupportChatService groups support chat endpoints.
type SupportChatService struct {
	client *Client
}

// Conversations lists the user's support conversations.
func (s *SupportChatService) Conversations(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/support-chat/conversations")
}

// CreateConversation opens a new support thread.
func (s *SupportChatService) CreateConversation(ctx context.Context, subject, issueType string) *Envelope {
	return s.client.Post(ctx, "/support-chat/conversations", map[string]string{
		"subject":    subject,
		"issue_type": issueType,
	})
}

// Messages fetches the full message list for a conversation.
func (s *SupportChatService) Messages(ctx context.Context, conversationID string) *Envelope {
	return s.client.Get(ctx, fmt.Sprintf("/support-chat/conversations/%s/messages", url.PathEscape(conversationID)))
}

// Send posts a message, optionally with an uploaded file URL.
func (s *SupportChatService) Send(ctx context.Context, conversationID, text, fileURL string) *Envelope {
	body := map[string]string{"message": text}
	if fileURL != "" {
		body["file_url"] = fileURL
	}
	return s.client.Post(ctx, fmt.Sprintf("/support-chat/conversations/%s/messages", url.PathEscape(conversationID)), body)
}

// Close closes a conversation.
func (s *SupportChatService) Close(ctx context.Context, conversationID string) *Envelope {
	return s.client.Post(ctx, fmt.Sprintf("/support-chat/conversations/%s/close", url.PathEscape(conversationID)), nil)
}

// Resolve marks a conversation resolved.
func (s *SupportChatService) Resolve(ctx context.Context, conversationID string) *Envelope {
	return s.client.Post(ctx, fmt.Sprintf("/support-chat/conversations/%s/resolve", url.PathEscape(conversationID)), nil)
}

// =============================================================================
// Message Poller
// =============================================================================

// MessageHandler receives the full, replaced message list on each successful
// poll. Last write wins; the poller never merges.
type MessageHandler func(messages []Message)

// MessagePoller periodically refetches a conversation's messages. A tick is
// skipped while the previous fetch is still in flight, so responses are never
// applied out of order.
type MessagePoller struct {
	mu sync.Mutex

	chat           *SupportChatService
	conversationID string
	interval       time.Duration
	handler        MessageHandler
	log            zerolog.Logger

	running  bool
	inFlight bool
	done     chan struct{}
}

// PollerConfig holds message poller configuration.
type PollerConfig struct {
	ConversationID string
	// Interval between polls. Defaults to 3 seconds.
	Interval time.Duration
	Handler  MessageHandler
	Logger   *zerolog.Logger
}

// NewMessagePoller creates a poller for one conversation.
func (s *SupportChatService) NewMessagePoller(cfg PollerConfig) (*MessagePoller, error) {
	if cfg.ConversationID == "" {
		return nil, fmt.Errorf("conversation ID required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler required")
	}
	if cfg.Interval == 0 {
		cfg.Interval = 3 * time.Second
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "chat-poller").Logger()
	}
	return &MessagePoller{
		chat:           s,
		conversationID: cfg.ConversationID,
		interval:       cfg.Interval,
		handler:        cfg.Handler,
		log:            logger,
		done:           make(chan struct{}),
	}, nil
}

// Start starts the poll loop. It returns an error if already running.
func (p *MessagePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.loop(ctx)
	return nil
}

// Stop stops the poll loop. Safe to call more than once.
func (p *MessagePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.done)
}

// IsRunning reports whether the poll loop is active.
func (p *MessagePoller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MessagePoller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Fetch once immediately so the first paint does not wait an interval.
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Stop()
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *MessagePoller) poll(ctx context.Context) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	env := p.chat.Messages(ctx, p.conversationID)
	if !env.Success {
		p.log.Warn().Str("conversation", p.conversationID).Str("error", env.Error).Msg("poll failed")
		return
	}

	var messages []Message
	if err := env.Decode(&messages); err != nil {
		p.log.Warn().Str("conversation", p.conversationID).Err(err).Msg("decode messages")
		return
	}
	p.handler(messages)
}
