package factory

import (
	"fmt"
	"strings"

	"emotion-diary-be/pkg/llm"
	"emotion-diary-be/pkg/llm/ollama"
	"emotion-diary-be/pkg/llm/openai"
)

// NewLLMProvider builds the configured chat backend. An empty provider type
// returns (nil, nil): the caller runs on fallback templates only.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch strings.ToLower(providerType) {
	case "", "none":
		return nil, nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return openai.NewOpenAIProvider(apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
