package tools

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValidationError reports arguments that do not satisfy a function's schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// validateArgs covers required fields and primitive type checks.
func validateArgs(args map[string]any, schema map[string]any) error {
	if schema == nil {
		return nil
	}

	for _, field := range requiredFields(schema["required"]) {
		if _, ok := args[field]; !ok {
			return &ValidationError{Field: field, Reason: "is required"}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for key, value := range args {
		def, ok := props[key].(map[string]any)
		if !ok {
			continue
		}
		want, _ := def["type"].(string)
		if want == "" {
			continue
		}
		if err := checkType(value, want); err != nil {
			return &ValidationError{Field: key, Reason: err.Error()}
		}
	}
	return nil
}

func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func checkType(value any, want string) error {
	switch want {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		if !isNumber(value) {
			return fmt.Errorf("expected number, got %T", value)
		}
	case "integer":
		if !isInteger(value) {
			return fmt.Errorf("expected integer, got %v", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int64:
		return true
	case float64:
		return n == math.Trunc(n)
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return false
}
