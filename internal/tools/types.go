package tools

import (
	"context"
	"encoding/json"

	"github.com/michaelbrown/ibrl/internal/llm"
)

// Emit appends one chunk of display text to the outgoing stream.
type Emit func(chunk string)

// Handler performs the work behind a function call and writes its output
// through emit, in order. A returned error means no usable output was produced;
// handlers should prefer emitting their own explanation and returning nil.
type Handler func(ctx context.Context, args map[string]any, emit Emit) error

// Function binds a descriptor to its handler.
type Function struct {
	Def     llm.ToolDef
	Handler Handler
}

// Args is a convenience view over decoded JSON arguments.
type Args map[string]any

// String returns the string argument under key, or "".
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Float returns the numeric argument under key.
func (a Args) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
