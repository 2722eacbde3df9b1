package llm

// Role represents a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolDef is a function descriptor advertised to the model.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ToolCallDelta is one fragment of a streamed function call.
// Name is usually only present on the first fragment.
type ToolCallDelta struct {
	Name      string
	Arguments string
}

// StreamEvent is one incremental unit of a streamed completion.
// Either field may be empty; ToolCall is nil when the event carries no call fragment.
type StreamEvent struct {
	Text     string
	ToolCall *ToolCallDelta
}

// EventStream is an ordered sequence of stream events.
// Usage mirrors ssestream: loop on Next, read Current, then check Err.
type EventStream interface {
	Next() bool
	Current() StreamEvent
	Err() error
	Close() error
}

// ModelInfo describes a model available on the provider.
type ModelInfo struct {
	Name    string `json:"name"`
	OwnedBy string `json:"owned_by"`
}

// Helper constructors

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
