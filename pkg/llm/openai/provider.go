// Package openai adapts the OpenAI Responses API to llm.LLMProvider.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"emotion-diary-be/pkg/llm"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

type OpenAIProvider struct {
	client *sdk.Client
	model  string
}

var _ llm.LLMProvider = &OpenAIProvider{}

// NewOpenAIProvider builds a provider. Extra request options (base URL, retries)
// are passed through to the SDK client.
func NewOpenAIProvider(apiKey, model string, opts ...option.RequestOption) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIProvider{client: &client, model: model}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{}, opts...)

	var instructions []string
	items := make([]responses.ResponseInputItemUnionParam, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			instructions = append(instructions, msg.Content)
		case llm.RoleAssistant, "model":
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
		default:
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		}
	}
	if len(items) == 0 {
		return "", errors.New("openai: no user or assistant messages")
	}

	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	params := responses.ResponseNewParams{
		Model: model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if len(instructions) > 0 {
		params.Instructions = sdk.String(strings.Join(instructions, "\n\n"))
	}
	if options.MaxTokens > 0 {
		params.MaxOutputTokens = sdk.Int(int64(options.MaxTokens))
	}
	if options.Temperature > 0 {
		params.Temperature = sdk.Float(options.Temperature)
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	return resp.OutputText(), nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
