package conversation

import (
	"fmt"
	"testing"
	"time"

	"emotion-diary-be/pkg/emotion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(text string, label emotion.Label) TurnInput {
	return TurnInput{
		UserText:     text,
		Label:        label,
		Confidence:   0.5,
		ResponseText: "응답",
		Modality:     ModalityText,
	}
}

func TestAppendTurnNumbersContiguously(t *testing.T) {
	s := NewSession("s1")

	for i := 1; i <= 5; i++ {
		turn := s.AppendTurn(input(fmt.Sprintf("msg %d", i), emotion.Joy))
		assert.Equal(t, i, turn.TurnNumber)
		assert.Equal(t, i, s.Len())
		assert.False(t, turn.Timestamp.IsZero())
	}

	for i, turn := range s.Turns() {
		assert.Equal(t, i+1, turn.TurnNumber)
	}
}

func TestAppendTurnKeepsGivenTimestamp(t *testing.T) {
	s := NewSession("s1")
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	in := input("hi", emotion.Anxiety)
	in.Timestamp = ts

	turn := s.AppendTurn(in)
	assert.Equal(t, ts, turn.Timestamp)
}

func TestRecentWindow(t *testing.T) {
	s := NewSession("s1")
	assert.Empty(t, s.RecentWindow(3))

	s.AppendTurn(input("a", emotion.Joy))
	s.AppendTurn(input("b", emotion.Sadness))
	assert.Len(t, s.RecentWindow(3), 2)

	s.AppendTurn(input("c", emotion.Anger))
	s.AppendTurn(input("d", emotion.Hurt))

	win := s.RecentWindow(3)
	require.Len(t, win, 3)
	assert.Equal(t, []string{"b", "c", "d"}, []string{win[0].UserText, win[1].UserText, win[2].UserText})

	assert.Len(t, s.RecentWindow(0), DefaultWindow)
	assert.Len(t, s.RecentWindow(10), 4)
}

func TestTurnsAndWindowAreCopies(t *testing.T) {
	s := NewSession("s1")
	s.AppendTurn(input("original", emotion.Joy))

	turns := s.Turns()
	turns[0].UserText = "changed"
	win := s.RecentWindow(1)
	win[0].ResponseText = "changed"

	stored := s.Turns()[0]
	assert.Equal(t, "original", stored.UserText)
	assert.Equal(t, "응답", stored.ResponseText)
}

func TestResetRestartsNumbering(t *testing.T) {
	s := NewSession("s1")
	s.Reset()
	assert.Equal(t, 0, s.Len())

	s.AppendTurn(input("a", emotion.Joy))
	s.AppendTurn(input("b", emotion.Joy))
	s.Reset()
	assert.Equal(t, 0, s.Len())
	s.Reset()

	turn := s.AppendTurn(input("c", emotion.Joy))
	assert.Equal(t, 1, turn.TurnNumber)
}

func TestParseModality(t *testing.T) {
	m, err := ParseModality("")
	require.NoError(t, err)
	assert.Equal(t, ModalityText, m)

	m, err = ParseModality("voice")
	require.NoError(t, err)
	assert.Equal(t, ModalityVoice, m)

	_, err = ParseModality("video")
	assert.Error(t, err)
}
