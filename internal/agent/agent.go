// Package agent runs chat turns: it prepends the persona, bounds the history,
// opens a completion stream and hands it to the dispatcher.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/michaelbrown/ibrl/internal/dispatch"
	"github.com/michaelbrown/ibrl/internal/llm"
	"github.com/michaelbrown/ibrl/internal/storage"
	"github.com/michaelbrown/ibrl/internal/tools"
)

// ErrMissingCredential is returned by Turn when no completion API key is stored.
var ErrMissingCredential = errors.New("completion API key not configured")

const (
	defaultMaxTokens   = 6000
	defaultMaxMessages = 10
)

// Credentials looks up stored secrets by name.
type Credentials interface {
	Credential(ctx context.Context, name string) (string, error)
}

// ClientFactory builds a completion client for one turn from an API key.
type ClientFactory func(apiKey string) llm.Client

// OpenAIFactory returns a ClientFactory for an OpenAI-compatible endpoint.
func OpenAIFactory(baseURL, model string, temperature float64) ClientFactory {
	return func(apiKey string) llm.Client {
		c := llm.NewClient(baseURL, apiKey, model)
		c.SetTemperature(temperature)
		return c
	}
}

// Agent runs turns for one persona over one function catalog.
type Agent struct {
	persona     *Persona
	registry    *tools.Registry
	dispatcher  *dispatch.Dispatcher
	credentials Credentials
	newClient   ClientFactory
	logger      *slog.Logger
	maxTokens   int
	maxMessages int
}

// New creates an Agent. The registry is restricted to the persona's function
// allowlist when it has one.
func New(persona *Persona, registry *tools.Registry, creds Credentials, newClient ClientFactory, logger *slog.Logger) *Agent {
	if persona == nil {
		persona = DefaultPersona()
	}
	if logger == nil {
		logger = slog.Default()
	}
	registry = registry.Filter(persona.Functions)
	return &Agent{
		persona:     persona,
		registry:    registry,
		dispatcher:  dispatch.New(registry, logger),
		credentials: creds,
		newClient:   newClient,
		logger:      logger,
		maxTokens:   defaultMaxTokens,
		maxMessages: defaultMaxMessages,
	}
}

// SetHistoryLimits sets the token budget and message cap applied to history
// before each turn. Non-positive values keep the current setting.
func (a *Agent) SetHistoryLimits(maxTokens, maxMessages int) {
	if maxTokens > 0 {
		a.maxTokens = maxTokens
	}
	if maxMessages > 0 {
		a.maxMessages = maxMessages
	}
}

// Persona returns the agent's persona.
func (a *Agent) Persona() *Persona {
	return a.persona
}

// Functions returns the descriptors advertised to the model.
func (a *Agent) Functions() []llm.ToolDef {
	return a.registry.AllTools()
}

// Turn streams one assistant reply to history through onChunk. The credential
// is read once; when it is missing Turn returns ErrMissingCredential without
// touching the network. A completion that fails to open or breaks mid-stream
// emits the connection fallback and returns the wrapped error.
func (a *Agent) Turn(ctx context.Context, history []llm.Message, onChunk func(string)) error {
	key, err := a.credentials.Credential(ctx, storage.OpenAIKeyName)
	if errors.Is(err, storage.ErrCredentialNotFound) || (err == nil && key == "") {
		return ErrMissingCredential
	}
	if err != nil {
		return fmt.Errorf("reading credential: %w", err)
	}

	trimmed := trimHistory(history, a.maxTokens, a.maxMessages)
	messages := make([]llm.Message, 0, len(trimmed)+1)
	messages = append(messages, llm.SystemMessage(a.persona.SystemPrompt))
	messages = append(messages, trimmed...)

	a.logger.Debug("starting turn",
		"persona", a.persona.Name,
		"messages", len(messages),
		"estimated_tokens", estimateHistoryTokens(messages),
	)

	stream, err := a.newClient(key).Stream(ctx, messages, a.registry.AllTools())
	if err != nil {
		return a.dispatcher.Abort(err, onChunk)
	}
	return a.dispatcher.Run(ctx, stream, onChunk)
}

// Converse appends userText to conv, runs a turn against it and finishes the
// assistant message. The finished reply is returned even on error so callers
// can show partial output. A turn that fails before producing any output is
// withdrawn from conv, user message included.
func (a *Agent) Converse(ctx context.Context, conv *Conversation, userText string, onChunk func(string)) (string, error) {
	history := conv.Begin(userText)
	streamed := false
	err := a.Turn(ctx, history, func(chunk string) {
		streamed = true
		conv.Append(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	})
	if err != nil && !streamed {
		conv.Withdraw()
		return "", err
	}
	return conv.Finish(), err
}
