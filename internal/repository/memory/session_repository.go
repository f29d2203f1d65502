package memory

import (
	"errors"
	"sync"
	"time"

	"emotion-diary-be/pkg/conversation"

	"github.com/patrickmn/go-cache"
)

// ErrSessionNotFound is returned for ids that were never created or have expired.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned by Create for an id already in use.
var ErrSessionExists = errors.New("session already exists")

type entry struct {
	mu      sync.Mutex
	session *conversation.Session
	refs    int // guarded by SessionRepository.mu
}

// SessionRepository keeps conversation sessions in process memory. Idle
// sessions expire after the TTL; every access pushes expiry back. A session
// in use is never lost: if the janitor evicts it mid-call it is put back
// when the call finishes.
type SessionRepository struct {
	mu     sync.Mutex // guards get-or-create and active
	cache  *cache.Cache
	active map[string]*entry
}

// NewSessionRepository creates a store whose sessions expire after ttl of
// inactivity and are purged every cleanupInterval.
func NewSessionRepository(ttl, cleanupInterval time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &SessionRepository{
		cache:  cache.New(ttl, cleanupInterval),
		active: make(map[string]*entry),
	}
}

// OnExpired registers fn to run when the janitor evicts an idle session.
func (r *SessionRepository) OnExpired(fn func(sessionID string, turns int)) {
	r.cache.OnEvicted(func(id string, v interface{}) {
		e, ok := v.(*entry)
		if !ok || r.held(id, e) {
			return
		}
		e.mu.Lock()
		n := e.session.Len()
		e.mu.Unlock()
		fn(id, n)
	})
}

// Create registers an empty session under id.
func (r *SessionRepository) Create(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[id]; busy {
		return ErrSessionExists
	}
	if err := r.cache.Add(id, &entry{session: conversation.NewSession(id)}, cache.DefaultExpiration); err != nil {
		return ErrSessionExists
	}
	return nil
}

// WithSession runs fn with exclusive access to the session. With create set,
// a missing session is created first; otherwise ErrSessionNotFound is
// returned and fn is not called. fn's error is returned as is.
func (r *SessionRepository) WithSession(id string, create bool, fn func(s *conversation.Session) error) error {
	e, err := r.entry(id, create)
	if err != nil {
		return err
	}
	defer r.release(id, e)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// Exists reports whether id refers to a live session.
func (r *SessionRepository) Exists(id string) bool {
	_, found := r.cache.Get(id)
	return found
}

// Count returns the number of live sessions, expired but unpurged included.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

func (r *SessionRepository) entry(id string, create bool) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.active[id]
	if !ok {
		if x, found := r.cache.Get(id); found {
			e = x.(*entry)
		} else if create {
			e = &entry{session: conversation.NewSession(id)}
		} else {
			return nil, ErrSessionNotFound
		}
		r.active[id] = e
	}
	e.refs++
	r.cache.SetDefault(id, e)
	return e, nil
}

// release drops a reference and refreshes expiry, re-adding the entry if the
// janitor evicted it while it was held.
func (r *SessionRepository) release(id string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(r.active, id)
	}
	r.cache.SetDefault(id, e)
}

// held reports whether e is still live, either in use or back in the cache.
func (r *SessionRepository) held(id string, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.refs > 0 {
		return true
	}
	x, found := r.cache.Get(id)
	return found && x.(*entry) == e
}
