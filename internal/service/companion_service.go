package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"emotion-diary-be/internal/dto"
	"emotion-diary-be/internal/pkg/logger"
	"emotion-diary-be/internal/repository/memory"
	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/diary"
	"emotion-diary-be/pkg/embedding"
	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/events"
	"emotion-diary-be/pkg/gateway"
	"emotion-diary-be/pkg/index"
	"emotion-diary-be/pkg/response"
	"emotion-diary-be/pkg/retrieval"
	"emotion-diary-be/pkg/stt"

	"github.com/google/uuid"
)

var (
	// ErrInput marks requests that cannot be processed as given.
	ErrInput = errors.New("invalid input")

	// ErrVoiceUnavailable is returned for voice turns when no transcriber is configured.
	ErrVoiceUnavailable = errors.New("voice input is not available")
)

// SimilarExamples is how many historical examples accompany each turn.
const SimilarExamples = retrieval.DefaultK

// SubmitTurnRequest is one user utterance. Voice turns carry Audio, text
// turns carry Text.
type SubmitTurnRequest struct {
	Text     string
	Audio    []byte
	Modality conversation.Modality
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(sessionID string, issuedAt, expiresAt time.Time) (string, error)
}

type ICompanionService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	SubmitTurn(ctx context.Context, sessionID string, req SubmitTurnRequest) (*dto.TurnResponse, error)
	GetHistory(ctx context.Context, sessionID string) (*dto.HistoryResponse, error)
	Reset(ctx context.Context, sessionID string) error
	GenerateDiary(ctx context.Context, sessionID string) (*dto.DiaryResponse, error)
	ListEmotions() []dto.EmotionResponse
	Health() dto.HealthResponse
}

// CompanionDeps groups the collaborators of the companion service.
type CompanionDeps struct {
	Retriever   *retrieval.Retriever
	Encoder     embedding.Encoder
	EncoderGW   *gateway.Gateway
	Transcriber stt.Transcriber // optional
	STTGW       *gateway.Gateway
	Responder   *response.Resilient
	Aggregator  *diary.Aggregator
	Sessions    *memory.SessionRepository
	Tokens      TokenIssuer
	Publisher   IPublisherService // optional
	Logger      logger.ILogger
	SessionTTL  time.Duration
}

type companionService struct {
	CompanionDeps
}

func NewCompanionService(deps CompanionDeps) ICompanionService {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 24 * time.Hour
	}
	return &companionService{CompanionDeps: deps}
}

func (s *companionService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	id := uuid.NewString()
	if err := s.Sessions.Create(id); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.SessionTTL)
	token, err := s.Tokens.Issue(id, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.Logger.Info("SESSION", "Session created", map[string]interface{}{"session_id": id})
	return &dto.CreateSessionResponse{
		SessionID: id,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// SubmitTurn classifies the utterance, retrieves similar examples, produces a
// reply and appends the turn. The whole sequence holds the session lock, so
// concurrent submissions to one session are recorded in arrival order. On
// any error the session is left unchanged.
func (s *companionService) SubmitTurn(ctx context.Context, sessionID string, req SubmitTurnRequest) (*dto.TurnResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInput)
	}
	modality := req.Modality
	if modality == "" {
		modality = conversation.ModalityText
	}
	if !modality.Valid() {
		return nil, fmt.Errorf("%w: unknown modality %q", ErrInput, modality)
	}

	var out *dto.TurnResponse
	err := s.Sessions.WithSession(sessionID, true, func(sess *conversation.Session) error {
		text, err := s.utterance(ctx, modality, req)
		if err != nil {
			return err
		}

		query, err := s.encode(ctx, text)
		if err != nil {
			return err
		}

		label, confidence, err := s.Retriever.DetectEmotion(query)
		if err != nil {
			return s.queryError(err)
		}
		similar, err := s.Retriever.FindSimilar(query, label, SimilarExamples)
		if err != nil {
			return s.queryError(err)
		}

		reply := s.Responder.Respond(ctx, text, label, sess.RecentWindow(conversation.DefaultWindow))

		turn := sess.AppendTurn(conversation.TurnInput{
			UserText:     text,
			Label:        label,
			Confidence:   confidence,
			ResponseText: reply.Text,
			Modality:     modality,
		})

		s.emit(ctx, events.TurnRecorded, map[string]interface{}{
			"session_id":  sessionID,
			"turn_number": turn.TurnNumber,
			"emotion":     string(label),
			"confidence":  confidence,
			"input_type":  string(modality),
		})
		// template-only deployments degrade every turn, which is not news
		if reply.Degraded && reply.Reason != response.ReasonNoGenerator {
			s.emit(ctx, events.ResponseDegraded, map[string]interface{}{
				"session_id":  sessionID,
				"turn_number": turn.TurnNumber,
				"reason":      reply.Reason,
			})
		}

		out = &dto.TurnResponse{
			SessionID:         sessionID,
			TurnNumber:        turn.TurnNumber,
			UserInput:         turn.UserText,
			DetectedEmotion:   string(turn.Label),
			EmotionConfidence: ConfidencePercent(turn.Confidence),
			ConfidenceRaw:     turn.Confidence,
			BotResponse:       turn.ResponseText,
			Degraded:          reply.Degraded,
			SimilarExamples:   similar,
			Timestamp:         turn.Timestamp,
			InputType:         string(turn.Modality),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *companionService) GetHistory(ctx context.Context, sessionID string) (*dto.HistoryResponse, error) {
	var turns []conversation.Turn
	err := s.Sessions.WithSession(sessionID, false, func(sess *conversation.Session) error {
		turns = sess.Turns()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.HistoryResponse{SessionID: sessionID, History: turns, TotalTurns: len(turns)}, nil
}

func (s *companionService) Reset(ctx context.Context, sessionID string) error {
	err := s.Sessions.WithSession(sessionID, false, func(sess *conversation.Session) error {
		sess.Reset()
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("SESSION", "Session reset", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *companionService) GenerateDiary(ctx context.Context, sessionID string) (*dto.DiaryResponse, error) {
	var report *diary.Report
	err := s.Sessions.WithSession(sessionID, false, func(sess *conversation.Session) error {
		var err error
		report, err = s.Aggregator.Summarize(sess.Turns())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.DiaryGenerated, map[string]interface{}{
		"session_id":       sessionID,
		"dominant_emotion": string(report.Dominant),
		"total_turns":      report.Stats.TotalTurns,
	})
	return &dto.DiaryResponse{SessionID: sessionID, Diary: report}, nil
}

func (s *companionService) ListEmotions() []dto.EmotionResponse {
	labels := emotion.All()
	out := make([]dto.EmotionResponse, len(labels))
	for i, l := range labels {
		out[i] = dto.EmotionResponse{Name: string(l), Description: l.Description()}
	}
	return out
}

func (s *companionService) Health() dto.HealthResponse {
	stats := s.Retriever.Index().Stats()
	return dto.HealthResponse{
		Status:         "healthy",
		ActiveSessions: s.Sessions.Count(),
		IndexDimension: stats.Dimension,
		LeafRecords:    stats.Leaves,
		Generator:      s.Responder.GeneratorState(),
	}
}

// ConfidencePercent renders a raw score for display, one decimal place.
func ConfidencePercent(raw float64) float64 {
	return math.Round(raw*1000) / 10
}

func (s *companionService) utterance(ctx context.Context, modality conversation.Modality, req SubmitTurnRequest) (string, error) {
	if modality == conversation.ModalityText {
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return "", fmt.Errorf("%w: text is empty", ErrInput)
		}
		return text, nil
	}

	if s.Transcriber == nil {
		return "", ErrVoiceUnavailable
	}
	if len(req.Audio) == 0 {
		return "", fmt.Errorf("%w: audio is empty", ErrInput)
	}
	transcribe := func(ctx context.Context) (string, error) {
		return s.Transcriber.Transcribe(ctx, req.Audio)
	}
	var (
		text string
		err  error
	)
	if s.STTGW != nil {
		text, err = gateway.Call(ctx, s.STTGW, transcribe)
	} else {
		text, err = transcribe(ctx)
	}
	if err != nil {
		s.Logger.Warn("CHAT", "Transcription failed", map[string]interface{}{"error": err.Error()})
		return "", fmt.Errorf("%w: %w", ErrInput, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %w: empty transcript", ErrInput, stt.ErrTranscription)
	}
	return text, nil
}

func (s *companionService) encode(ctx context.Context, text string) (index.Vector, error) {
	encode := func(ctx context.Context) (index.Vector, error) {
		return s.Encoder.Encode(ctx, text)
	}
	var (
		v   index.Vector
		err error
	)
	if s.EncoderGW != nil {
		v, err = gateway.Call(ctx, s.EncoderGW, encode)
	} else {
		v, err = encode(ctx)
	}
	if err != nil {
		s.Logger.Error("CHAT", "Embedding failed", map[string]interface{}{"error": err})
		if !errors.Is(err, embedding.ErrEncoding) {
			err = fmt.Errorf("%w: %w", embedding.ErrEncoding, err)
		}
		return nil, err
	}
	return v, nil
}

func (s *companionService) queryError(err error) error {
	switch {
	case errors.Is(err, index.ErrDimensionMismatch):
		s.Logger.Error("CHAT", "Encoder dimension does not match index", map[string]interface{}{"error": err})
		return fmt.Errorf("%w: %w", ErrInput, err)
	case errors.Is(err, index.ErrNonFiniteQuery):
		s.Logger.Error("CHAT", "Encoder returned a non-finite vector", map[string]interface{}{"error": err})
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	return err
}

// emit publishes a domain event. Event delivery never fails the request.
func (s *companionService) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.Publisher == nil {
		return
	}
	raw, err := events.Marshal(events.New(eventType, data))
	if err == nil {
		err = s.Publisher.Publish(ctx, raw)
	}
	if err != nil {
		s.Logger.Warn("EVENT", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
