package conversation

import (
	"fmt"
	"time"

	"emotion-diary-be/pkg/emotion"
)

// Modality is how the user produced a turn.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
)

func (m Modality) Valid() bool {
	return m == ModalityText || m == ModalityVoice
}

// ParseModality maps the wire value to a Modality. Empty means text.
func ParseModality(s string) (Modality, error) {
	if s == "" {
		return ModalityText, nil
	}
	m := Modality(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown modality %q", s)
	}
	return m, nil
}

// DefaultWindow is the number of recent turns handed to the response generator.
const DefaultWindow = 3

// Turn is one user-input/system-response exchange. Turns are values; once
// appended they are never modified.
type Turn struct {
	TurnNumber   int           `json:"turn_number"`
	UserText     string        `json:"user_input"`
	Label        emotion.Label `json:"detected_emotion"`
	Confidence   float64       `json:"emotion_confidence"`
	ResponseText string        `json:"bot_response"`
	Timestamp    time.Time     `json:"timestamp"`
	Modality     Modality      `json:"input_type"`
}

// TurnInput carries everything needed to append a turn except its number.
type TurnInput struct {
	UserText     string
	Label        emotion.Label
	Confidence   float64
	ResponseText string
	Modality     Modality
	Timestamp    time.Time
}

// Session is the append-only turn log of one conversation.
//
// A Session is single-writer and does not lock. When it can be reached from
// several goroutines the owner must serialize access, which the session
// repository does with one mutex per session id.
type Session struct {
	id    string
	turns []Turn
}

func NewSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) ID() string {
	return s.id
}

// AppendTurn numbers the turn as len+1, appends it and returns the stored value.
func (s *Session) AppendTurn(in TurnInput) Turn {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	turn := Turn{
		TurnNumber:   len(s.turns) + 1,
		UserText:     in.UserText,
		Label:        in.Label,
		Confidence:   in.Confidence,
		ResponseText: in.ResponseText,
		Timestamp:    ts,
		Modality:     in.Modality,
	}
	s.turns = append(s.turns, turn)
	return turn
}

// RecentWindow returns the last min(n, Len) turns in chronological order.
// n < 1 falls back to DefaultWindow.
func (s *Session) RecentWindow(n int) []Turn {
	if n < 1 {
		n = DefaultWindow
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// Turns returns a copy of the whole log.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int {
	return len(s.turns)
}

// Reset erases every turn; numbering restarts at 1. Resetting an empty
// session is a no-op.
func (s *Session) Reset() {
	s.turns = nil
}
