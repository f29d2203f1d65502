package dto

import (
	"time"

	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/diary"
)

type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRequest carries an explicit session id. It may be omitted when the
// request has a session token.
type SessionRequest struct {
	SessionID string `json:"session_id" query:"session_id" form:"session_id"`
}

type TextChatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text" validate:"required"`
}

type TurnResponse struct {
	SessionID         string    `json:"session_id"`
	TurnNumber        int       `json:"turn_number"`
	UserInput         string    `json:"user_input"`
	DetectedEmotion   string    `json:"detected_emotion"`
	// raw cosine similarity x100 for display, not a calibrated probability
	EmotionConfidence float64   `json:"emotion_confidence"`
	ConfidenceRaw     float64   `json:"confidence_raw"`
	BotResponse       string    `json:"bot_response"`
	Degraded          bool      `json:"degraded"`
	SimilarExamples   []string  `json:"similar_examples"`
	Timestamp         time.Time `json:"timestamp"`
	InputType         string    `json:"input_type"`
}

type HistoryResponse struct {
	SessionID  string              `json:"session_id"`
	History    []conversation.Turn `json:"history"`
	TotalTurns int                 `json:"total_turns"`
}

type DiaryResponse struct {
	SessionID string        `json:"session_id"`
	Diary     *diary.Report `json:"diary"`
}

type EmotionResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	IndexDimension int    `json:"index_dimension"`
	LeafRecords    int    `json:"leaf_records"`
	Generator      string `json:"generator_circuit"`
}
