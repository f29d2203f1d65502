package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"emotion-diary-be/pkg/llm"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const responseBody = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "model": "gpt-4o-mini",
  "status": "completed",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "status": "completed",
    "role": "assistant",
    "content": [{"type": "output_text", "text": "괜찮아요, 천천히 얘기해 주세요.", "annotations": []}]
  }]
}`

func TestChatMapsSystemMessagesToInstructions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, responseBody)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be kind"},
		{Role: llm.RoleUser, Content: "힘들어"},
	}, llm.WithMaxTokens(150))
	require.NoError(t, err)

	assert.Equal(t, "괜찮아요, 천천히 얘기해 주세요.", out)
	assert.Equal(t, "be kind", got["instructions"])
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, 150, got["max_output_tokens"])
	input, ok := got["input"].([]any)
	require.True(t, ok)
	assert.Len(t, input, 1)
}

func TestChatRequiresConversation(t *testing.T) {
	p := NewOpenAIProvider("test-key", "m")
	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleSystem, Content: "only system"}})
	assert.Error(t, err)
}
