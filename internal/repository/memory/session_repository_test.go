package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/emotion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSessionUnknownID(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Hour)

	called := false
	err := repo.WithSession("missing", false, func(s *conversation.Session) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, called)
}

func TestCreateAndReuse(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Hour)

	require.NoError(t, repo.Create("s1"))
	assert.ErrorIs(t, repo.Create("s1"), ErrSessionExists)
	assert.True(t, repo.Exists("s1"))

	require.NoError(t, repo.WithSession("s1", false, func(s *conversation.Session) error {
		s.AppendTurn(conversation.TurnInput{UserText: "안녕", Label: emotion.Joy})
		return nil
	}))
	require.NoError(t, repo.WithSession("s1", false, func(s *conversation.Session) error {
		assert.Equal(t, 1, s.Len())
		return nil
	}))
}

func TestWithSessionReturnsCallbackError(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Hour)
	boom := errors.New("boom")

	err := repo.WithSession("s1", true, func(s *conversation.Session) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, repo.Exists("s1"), "created session survives a failed callback")
}

func TestConcurrentAppendsAreContiguous(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Hour)
	const writers, perWriter = 8, 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = repo.WithSession("shared", true, func(s *conversation.Session) error {
					s.AppendTurn(conversation.TurnInput{
						UserText: fmt.Sprintf("w%d-%d", w, i),
						Label:    emotion.Sadness,
					})
					return nil
				})
			}
		}(w)
	}
	wg.Wait()

	require.NoError(t, repo.WithSession("shared", false, func(s *conversation.Session) error {
		turns := s.Turns()
		require.Len(t, turns, writers*perWriter)
		for i, turn := range turns {
			assert.Equal(t, i+1, turn.TurnNumber)
		}
		return nil
	}))
	assert.Equal(t, 1, repo.Count())
}

func TestIdleSessionsExpire(t *testing.T) {
	repo := NewSessionRepository(40*time.Millisecond, 10*time.Millisecond)

	expired := make(chan string, 1)
	repo.OnExpired(func(id string, turns int) {
		assert.Equal(t, 1, turns)
		expired <- id
	})

	require.NoError(t, repo.WithSession("idle", true, func(s *conversation.Session) error {
		s.AppendTurn(conversation.TurnInput{UserText: "hi", Label: emotion.Joy})
		return nil
	}))

	select {
	case id := <-expired:
		assert.Equal(t, "idle", id)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not evicted")
	}
	assert.ErrorIs(t, repo.WithSession("idle", false, func(*conversation.Session) error { return nil }), ErrSessionNotFound)
}

func TestSessionOutlivesEvictionWhileInUse(t *testing.T) {
	repo := NewSessionRepository(30*time.Millisecond, 5*time.Millisecond)

	var mu sync.Mutex
	var expired []string
	repo.OnExpired(func(id string, turns int) {
		mu.Lock()
		expired = append(expired, id)
		mu.Unlock()
	})

	require.NoError(t, repo.WithSession("slow", true, func(s *conversation.Session) error {
		// longer than the TTL, so the janitor runs mid-call
		time.Sleep(100 * time.Millisecond)
		s.AppendTurn(conversation.TurnInput{UserText: "천천히", Label: emotion.Sadness})
		return nil
	}))

	require.NoError(t, repo.WithSession("slow", false, func(s *conversation.Session) error {
		assert.Equal(t, 1, s.Len())
		return nil
	}))

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, expired, "a session in use is not reported as expired")
}

func TestCreateWhileInUseConflicts(t *testing.T) {
	repo := NewSessionRepository(time.Hour, time.Hour)

	require.NoError(t, repo.WithSession("busy", true, func(s *conversation.Session) error {
		repo.cache.Delete("busy")
		assert.ErrorIs(t, repo.Create("busy"), ErrSessionExists)
		return nil
	}))
	assert.True(t, repo.Exists("busy"))
}
