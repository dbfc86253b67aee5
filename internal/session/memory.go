package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps sessions in a size-bounded LRU. A session expires ttl
// after its last change or when evicted for space.
type MemoryStore struct {
	mu    sync.Mutex // Serializes read-modify-write on cached sessions.
	cache *expirable.LRU[string, *Session]
}

func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: expirable.NewLRU[string, *Session](maxSessions, nil, ttl),
	}
}

func (s *MemoryStore) Create(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(sess.ID, sess)
	return sess.clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.clone(), nil
}

func (s *MemoryStore) ReplaceDocument(ctx context.Context, id string, doc *Document) error {
	return s.update(id, func(sess *Session) error {
		if sess.Document != nil && doc.UploadedAt.Before(sess.Document.UploadedAt) {
			return ErrStaleDocument
		}
		sess.Document = doc
		return nil
	})
}

func (s *MemoryStore) AppendMessages(ctx context.Context, id string, msgs ...Message) error {
	return s.update(id, func(sess *Session) error {
		sess.Messages = append(sess.Messages, msgs...)
		return nil
	})
}

// update applies fn to a copy of the session and swaps the copy in, so
// snapshots handed out earlier never change underneath their holders. If fn
// fails the session is left as it was.
func (s *MemoryStore) update(id string, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.cache.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	next := sess.clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	s.cache.Add(id, next)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cache.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
