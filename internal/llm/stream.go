package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// Stream opens a streaming chat completion. Connection failures surface either
// here or later through EventStream.Err.
func (c *OpenAICompatClient) Stream(ctx context.Context, messages []Message, tools []ToolDef) (EventStream, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.newParams(messages, tools))
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	return &chunkStream{stream: stream}, nil
}

// chunkStream adapts the openai-go SSE stream to EventStream.
type chunkStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	current StreamEvent
}

func (s *chunkStream) Next() bool {
	if !s.stream.Next() {
		return false
	}
	s.current = ChunkEvent(s.stream.Current())
	return true
}

func (s *chunkStream) Current() StreamEvent { return s.current }

func (s *chunkStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("streaming: %w", err)
	}
	return nil
}

func (s *chunkStream) Close() error { return s.stream.Close() }

// ChunkEvent converts one completion chunk into a StreamEvent.
// Tool-call fragments in the same chunk are folded into a single delta; the
// legacy function_call field is honoured for older providers.
func ChunkEvent(chunk openai.ChatCompletionChunk) StreamEvent {
	if len(chunk.Choices) == 0 {
		return StreamEvent{}
	}
	delta := chunk.Choices[0].Delta
	ev := StreamEvent{Text: delta.Content}

	if len(delta.ToolCalls) > 0 {
		tc := &ToolCallDelta{}
		for _, call := range delta.ToolCalls {
			if tc.Name == "" {
				tc.Name = call.Function.Name
			}
			tc.Arguments += call.Function.Arguments
		}
		ev.ToolCall = tc
	} else if fc := delta.FunctionCall; fc.Name != "" || fc.Arguments != "" {
		ev.ToolCall = &ToolCallDelta{Name: fc.Name, Arguments: fc.Arguments}
	}
	return ev
}

// SliceStream replays a fixed event sequence, then reports Fail (if set) from Err.
type SliceStream struct {
	Events []StreamEvent
	Fail   error

	pos    int
	closed bool
}

// NewSliceStream returns a stream over events.
func NewSliceStream(events ...StreamEvent) *SliceStream {
	return &SliceStream{Events: events, pos: -1}
}

func (s *SliceStream) Next() bool {
	if s.closed || s.pos+1 >= len(s.Events) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceStream) Current() StreamEvent {
	if s.pos < 0 || s.pos >= len(s.Events) {
		return StreamEvent{}
	}
	return s.Events[s.pos]
}

func (s *SliceStream) Err() error {
	if s.pos+1 >= len(s.Events) {
		return s.Fail
	}
	return nil
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool { return s.closed }

// Text builds a text-only event.
func Text(s string) StreamEvent { return StreamEvent{Text: s} }

// Call builds a tool-call fragment event.
func Call(name, args string) StreamEvent {
	return StreamEvent{ToolCall: &ToolCallDelta{Name: name, Arguments: args}}
}
