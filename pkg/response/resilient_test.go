package response

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/gateway"
	"emotion-diary-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubGenerator struct {
	reply string
	err   error
	delay time.Duration
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, _ string, _ emotion.Label, _ []conversation.Turn) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func newResilient(t *testing.T, gen Generator, cfg gateway.Config) (*Resilient, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	return NewResilient(gen, gateway.New("generation", cfg, logger), defaultTable(t), FixedSelector(0), logger), logs
}

func TestRespondUsesGeneratorReply(t *testing.T) {
	gen := &stubGenerator{reply: "많이 속상하셨겠어요. 어떤 일이 있었나요?"}
	r, logs := newResilient(t, gen, gateway.Config{})

	res := r.Respond(context.Background(), "시험 망쳤어", emotion.Sadness, nil)
	assert.False(t, res.Degraded)
	assert.Equal(t, gen.reply, res.Text)
	assert.Zero(t, logs.Len())
}

func TestRespondFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		gen    *stubGenerator
		cfg    gateway.Config
		reason string
	}{
		{"error", &stubGenerator{err: errors.New("connection refused")}, gateway.Config{}, ReasonError},
		{"short reply", &stubGenerator{reply: " 네. "}, gateway.Config{}, ReasonTooShort},
		{"empty reply", &stubGenerator{reply: ""}, gateway.Config{}, ReasonTooShort},
		{"timeout", &stubGenerator{reply: "늦은 대답이에요. 괜찮으세요?", delay: time.Second}, gateway.Config{Timeout: 20 * time.Millisecond}, ReasonTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, logs := newResilient(t, tt.gen, tt.cfg)

			res := r.Respond(context.Background(), "친구랑 싸웠어", emotion.Anger, nil)
			assert.True(t, res.Degraded)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, "정말 화나셨겠어요. 친구 상황이 어떻게 됐나요?", res.Text)

			warnings := logs.FilterMessageSnippet("RESPONSE_DEGRADED").All()
			require.Len(t, warnings, 1)
			assert.Equal(t, tt.reason, warnings[0].ContextMap()["reason"])
		})
	}
}

func TestRespondOpenBreakerSkipsGenerator(t *testing.T) {
	gen := &stubGenerator{err: errors.New("503")}
	r, _ := newResilient(t, gen, gateway.Config{MaxFailures: 1, OpenTimeout: time.Minute})

	first := r.Respond(context.Background(), "불안해", emotion.Anxiety, nil)
	assert.Equal(t, ReasonError, first.Reason)

	second := r.Respond(context.Background(), "불안해", emotion.Anxiety, nil)
	assert.Equal(t, ReasonCircuitOpen, second.Reason)
	assert.Equal(t, 1, gen.calls)
}

func TestRespondWithoutGenerator(t *testing.T) {
	r := NewResilient(nil, nil, defaultTable(t), FixedSelector(1), nil)
	res := r.Respond(context.Background(), "좋은 일이 있었어", emotion.Joy, nil)
	assert.True(t, res.Degraded)
	assert.Equal(t, ReasonNoGenerator, res.Reason)
	assert.Equal(t, "좋은 소식이네요! 더 들려주세요.", res.Text)
}

type recordingProvider struct {
	history []llm.Message
	opts    llm.Options
}

func (p *recordingProvider) Chat(_ context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	p.history = history
	p.opts = llm.Apply(llm.Options{}, opts...)
	return "  그랬군요, 많이 힘드셨겠어요.  ", nil
}

func (p *recordingProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func TestLLMGeneratorSendsRecentWindow(t *testing.T) {
	s := conversation.NewSession("s")
	for i := 0; i < 5; i++ {
		s.AppendTurn(conversation.TurnInput{
			UserText:     "말 " + string(rune('A'+i)),
			Label:        emotion.Sadness,
			ResponseText: "답 " + string(rune('A'+i)),
		})
	}

	p := &recordingProvider{}
	out, err := NewLLMGenerator(p).Generate(context.Background(), "지금 기분", emotion.Sadness, s.Turns())
	require.NoError(t, err)
	assert.Equal(t, "그랬군요, 많이 힘드셨겠어요.", out)

	require.Len(t, p.history, 1+2*conversation.DefaultWindow+1)
	assert.Equal(t, llm.RoleSystem, p.history[0].Role)
	assert.Equal(t, "말 C", p.history[1].Content)
	assert.Equal(t, llm.RoleAssistant, p.history[2].Role)
	assert.Equal(t, "답 E", p.history[6].Content)

	last := p.history[len(p.history)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.True(t, strings.Contains(last.Content, "지금 기분"))
	assert.True(t, strings.Contains(last.Content, "슬픔"))
	assert.Equal(t, 150, p.opts.MaxTokens)
}
