package agent

import (
	"strings"
	"sync"

	"github.com/michaelbrown/ibrl/internal/llm"
)

// Conversation is an append-only message list with at most one in-progress
// assistant message at the end. A reply that produced no text is dropped when
// finished.
type Conversation struct {
	mu       sync.Mutex
	messages []llm.Message
	pending  *strings.Builder
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Begin records a user message, opens an empty assistant message and returns
// the history to send for the turn (everything up to the user message).
func (c *Conversation) Begin(userText string) []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finishLocked()
	c.messages = append(c.messages, llm.UserMessage(userText))
	c.pending = &strings.Builder{}

	history := make([]llm.Message, len(c.messages))
	copy(history, c.messages)
	return history
}

// Append adds a streamed chunk to the in-progress assistant message.
func (c *Conversation) Append(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.pending = &strings.Builder{}
	}
	c.pending.WriteString(chunk)
}

// Finish closes the in-progress assistant message and returns its text.
func (c *Conversation) Finish() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishLocked()
}

func (c *Conversation) finishLocked() string {
	if c.pending == nil {
		return ""
	}
	text := c.pending.String()
	if text != "" {
		c.messages = append(c.messages, llm.AssistantMessage(text))
	}
	c.pending = nil
	return text
}

// Withdraw abandons the in-progress turn, dropping its assistant message and
// the user message that opened it.
func (c *Conversation) Withdraw() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	if n := len(c.messages); n > 0 && c.messages[n-1].Role == llm.RoleUser {
		c.messages = c.messages[:n-1]
	}
}

// Reset drops every message.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.pending = nil
}

// Messages returns a copy of the finished messages plus the in-progress one.
func (c *Conversation) Messages() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Message, len(c.messages), len(c.messages)+1)
	copy(out, c.messages)
	if c.pending != nil {
		out = append(out, llm.AssistantMessage(c.pending.String()))
	}
	return out
}

// Len returns the number of finished messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
