package response

import (
	"context"
	"strings"

	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/llm"
)

// Generator produces an empathetic reply for the current utterance.
type Generator interface {
	Generate(ctx context.Context, userText string, label emotion.Label, recent []conversation.Turn) (string, error)
}

// LLMGenerator is a Generator backed by a chat model.
type LLMGenerator struct {
	provider llm.LLMProvider
	opts     []llm.Option
}

var _ Generator = &LLMGenerator{}

// NewLLMGenerator wraps provider. Without options the reply is limited to
// 150 tokens at temperature 0.7.
func NewLLMGenerator(provider llm.LLMProvider, opts ...llm.Option) *LLMGenerator {
	if len(opts) == 0 {
		opts = []llm.Option{llm.WithMaxTokens(150), llm.WithTemperature(0.7)}
	}
	return &LLMGenerator{provider: provider, opts: opts}
}

// Generate returns the trimmed raw model reply.
func (g *LLMGenerator) Generate(ctx context.Context, userText string, label emotion.Label, recent []conversation.Turn) (string, error) {
	out, err := g.provider.Chat(ctx, BuildMessages(userText, label, recent), g.opts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
