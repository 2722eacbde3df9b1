// Package dispatch turns a streamed completion into display text, running the
// function calls the model asks for along the way.
//
// The upstream API never marks the end of a function call. A call is complete
// when the first event without a call fragment arrives; if the stream ends
// first, the call is dropped.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/michaelbrown/ibrl/internal/llm"
	"github.com/michaelbrown/ibrl/internal/logger"
	"github.com/michaelbrown/ibrl/internal/tools"
)

// ErrMalformedArguments is reported when accumulated arguments are not a JSON object.
var ErrMalformedArguments = errors.New("malformed function arguments")

// Fallbacks holds the user-visible lines emitted in place of failed work.
type Fallbacks struct {
	Malformed  string
	Unknown    string
	Failed     string
	Connection string
}

// DefaultFallbacks are written in the assistant's voice.
var DefaultFallbacks = Fallbacks{
	Malformed:  "\nI got my wires crossed reading that request. Mind asking again? ⚡\n",
	Unknown:    "\nThat's not something I know how to do yet. Still faster than an ETH transaction at saying no! 😅⚡\n",
	Failed:     "\nEven my lightning-fast circuits hit a snag sometimes! Probably just taking a microsecond break - still faster than an ETH transaction! 😅⚡\n",
	Connection: "\nLooks like even my lightning-fast processors need a breather! Still faster than a Layer 2 rollup though! 🤔⚡",
}

// Dispatcher consumes one turn's event stream. It holds no per-turn state of
// its own, so one Dispatcher can serve consecutive turns.
type Dispatcher struct {
	registry  *tools.Registry
	logger    *slog.Logger
	fallbacks Fallbacks
}

// New creates a Dispatcher over the given registry.
func New(registry *tools.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:  registry,
		logger:    logger,
		fallbacks: DefaultFallbacks,
	}
}

// SetFallbacks overrides the fallback lines.
func (d *Dispatcher) SetFallbacks(f Fallbacks) {
	d.fallbacks = f
}

// pendingCall accumulates the fragments of the call currently in flight.
type pendingCall struct {
	active bool
	name   string
	args   strings.Builder
}

func (p *pendingCall) add(delta *llm.ToolCallDelta) {
	p.active = true
	if p.name == "" {
		p.name = delta.Name
	}
	p.args.WriteString(delta.Arguments)
}

func (p *pendingCall) take() (name, args string) {
	name, args = p.name, p.args.String()
	p.active = false
	p.name = ""
	p.args.Reset()
	return name, args
}

// Run drains stream, passing text through to emit and executing each completed
// function call in arrival order. Only a failure of the stream itself is
// returned; it is preceded by the connection fallback line.
func (d *Dispatcher) Run(ctx context.Context, stream llm.EventStream, emit tools.Emit) error {
	defer stream.Close()

	var call pendingCall
	for stream.Next() {
		ev := stream.Current()

		if ev.ToolCall != nil {
			call.add(ev.ToolCall)
			continue
		}

		if call.active {
			name, args := call.take()
			d.invoke(ctx, name, args, emit)
		}

		if ev.Text != "" {
			emit(ev.Text)
		}
	}

	if err := stream.Err(); err != nil {
		return d.Abort(err, emit)
	}

	if call.active {
		name, _ := call.take()
		d.logger.Debug("stream ended during function call", "function", name)
	}
	return nil
}

// Abort reports a completion that failed before or while streaming: it logs
// err, emits the connection fallback and returns err wrapped.
func (d *Dispatcher) Abort(err error, emit tools.Emit) error {
	d.logger.Error("completion stream failed", "error", err)
	emit(d.fallbacks.Connection)
	return fmt.Errorf("completion stream: %w", err)
}

// invoke parses, validates and runs one call. Every failure becomes exactly
// one fallback chunk.
func (d *Dispatcher) invoke(ctx context.Context, name, rawArgs string, emit tools.Emit) {
	log := d.logger.With("function", name)

	args, err := ParseArguments(rawArgs)
	if err != nil {
		log.Warn("function arguments rejected", "error", err, "raw", rawArgs)
		emit(d.fallbacks.Malformed)
		return
	}

	ctx = logger.WithContext(ctx, log)
	if err := d.call(ctx, name, args, emit); err != nil {
		if errors.Is(err, tools.ErrUnknownFunction) {
			log.Warn("model requested unknown function")
			emit(d.fallbacks.Unknown)
			return
		}
		log.Error("function failed", "error", err)
		emit(d.fallbacks.Failed)
		return
	}
	log.Debug("function completed")
}

func (d *Dispatcher) call(ctx context.Context, name string, args map[string]any, emit tools.Emit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("function %s panicked: %v", name, r)
		}
	}()
	return d.registry.CallTool(ctx, name, args, emit)
}

// ParseArguments decodes accumulated argument text into a JSON object.
// Blank input is an empty object, which is what argument-less functions send
// on some providers.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if args == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedArguments)
	}
	return args, nil
}
