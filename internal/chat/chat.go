// Package chat enforces the chat settings around a pluggable completion
// backend.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"esuvi/internal/core"
	"esuvi/internal/identity"
	"esuvi/internal/log"
	"esuvi/internal/settings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SystemPrompt introduces the assistant to completion backends.
const SystemPrompt = "You are Esuvi, a friendly assistant for personal chat and budgeting."

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
	// ErrCompletionFailed wraps failures of the completion backend.
	ErrCompletionFailed = errors.New("completion failed")
)

// Message is one entry of the conversation.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sentAt"`
}

// Request is what a Completer receives. Messages ends with the user's input.
type Request struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []Message
}

// Completer produces the assistant's reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Conversation is a single chat thread. Safe for concurrent use; sends are
// serialized so replies stay in order.
type Conversation struct {
	mu      sync.Mutex
	history []Message

	settings  *settings.Settings
	completer Completer
	identity  identity.Provider
	now       func() time.Time
	logger    *log.Logger
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Conversation) { c.logger = l }
}

// New creates an empty conversation. A nil completer falls back to Echo.
func New(cfg *settings.Settings, completer Completer, ids identity.Provider, opts ...Option) *Conversation {
	if completer == nil {
		completer = Echo{}
	}
	if ids == nil {
		ids = identity.Anonymous{}
	}
	c := &Conversation{
		settings:  cfg,
		completer: completer,
		identity:  ids,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.OrDiscard(c.logger).WithComponent(log.ComponentChat)
	return c
}

// Send submits text and returns the assistant's reply. On error the history
// is unchanged.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	id, signedIn := c.identity.CurrentIdentity()
	if !signedIn && c.settings.RequiresIdentity(settings.FeatureChat) {
		return Message{}, core.ErrUnauthorized
	}
	if signedIn {
		ctx = identity.NewContext(ctx, id)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, fmt.Errorf("%w: %w", core.ErrInvalidRecord, ErrEmptyMessage)
	}
	limit := c.settings.IntOr(settings.CategoryChat, settings.KeyMaxMessageLength, 0)
	if n := utf8.RuneCountInString(text); limit > 0 && n > limit {
		return Message{}, fmt.Errorf("%w: %w (%d characters, limit %d)",
			core.ErrInvalidRecord, ErrMessageTooLong, n, limit)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	keep := c.settings.BoolOr(settings.CategoryChat, settings.KeySaveHistory, true)
	question := Message{Role: RoleUser, Content: text, SentAt: c.now()}

	var thread []Message
	if keep {
		thread = append(thread, c.history...)
	}
	thread = append(thread, question)

	req := Request{
		Model:       c.settings.StringOr(settings.CategoryChat, settings.KeyDefaultModel, ""),
		Temperature: c.settings.FloatOr(settings.CategoryChat, settings.KeyTemperature, 0.7),
		MaxTokens:   c.settings.IntOr(settings.CategoryChat, settings.KeyMaxTokens, 0),
		Messages:    thread,
	}
	content, err := c.completer.Complete(ctx, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Completion failed", "model", req.Model, log.FieldError, err)
		return Message{}, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	reply := Message{Role: RoleAssistant, Content: content, SentAt: c.now()}

	if keep {
		c.history = trim(append(thread, reply),
			c.settings.IntOr(settings.CategoryChat, settings.KeyMaxMessages, 0))
	} else {
		c.history = nil
	}

	c.logger.DebugContext(ctx, "Message answered",
		"model", req.Model, log.FieldCount, len(c.history))
	return reply, nil
}

// History returns a copy of the retained messages, oldest first.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// Reset forgets the history.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}

// trim keeps the newest max messages. A non-positive max keeps everything.
func trim(msgs []Message, max int) []Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	out := make([]Message, max)
	copy(out, msgs[len(msgs)-max:])
	return out
}
