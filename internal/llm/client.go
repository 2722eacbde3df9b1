package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// Client is the interface for streaming completions.
type Client interface {
	Stream(ctx context.Context, messages []Message, tools []ToolDef) (EventStream, error)
}

// OpenAICompatClient works with any OpenAI-compatible chat completions API.
type OpenAICompatClient struct {
	client      *openai.Client
	model       string
	temperature float64
}

// NewClient creates an LLM client for the given provider.
func NewClient(baseURL, apiKey, model string) *OpenAICompatClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Each completion is attempted exactly once per turn.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompatClient{
		client: &client,
		model:  model,
	}
}

// SetTemperature sets the sampling temperature; zero leaves the provider default.
func (c *OpenAICompatClient) SetTemperature(t float64) {
	c.temperature = t
}

// ValidateKey checks the credential by listing the provider's models.
func (c *OpenAICompatClient) ValidateKey(ctx context.Context) error {
	if _, err := c.ListModels(ctx); err != nil {
		return fmt.Errorf("validating api key: %w", err)
	}
	return nil
}

// ListModels returns the models visible to the configured credential.
func (c *OpenAICompatClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, ModelInfo{Name: m.ID, OwnedBy: m.OwnedBy})
	}
	return models, nil
}

func (c *OpenAICompatClient) newParams(messages []Message, tools []ToolDef) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
		// Calls are reassembled one at a time; interleaved calls cannot be split apart.
		params.ParallelToolCalls = param.NewOpt(false)
	}
	if c.temperature > 0 {
		params.Temperature = param.NewOpt(c.temperature)
	}
	return params
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}

func convertTools(tools []ToolDef) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		})
	}
	return out
}
