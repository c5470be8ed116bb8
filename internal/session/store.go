package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrRedisUnavailable = errors.New("redis unavailable")

// Flash keys.
const (
	FlashNotice = "notice"
	FlashAlert  = "alert"
)

// Session is the server-side state behind a browser cookie: the logged-in
// user id and flash notices awaiting the next page render.
type Session struct {
	ID     string            `json:"-"`
	UserID string            `json:"user_id,omitempty"`
	Flash  map[string]string `json:"flash,omitempty"`

	dirty bool
}

func (s *Session) SetUserID(id string) {
	s.UserID = id
	s.dirty = true
}

func (s *Session) SetFlash(kind, msg string) {
	if s.Flash == nil {
		s.Flash = make(map[string]string)
	}
	s.Flash[kind] = msg
	s.dirty = true
}

// TakeFlash returns the pending flash notices and clears them.
func (s *Session) TakeFlash() map[string]string {
	f := s.Flash
	if len(f) > 0 {
		s.Flash = nil
		s.dirty = true
	}
	return f
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool { return s.dirty }

// Store keeps sessions in Redis under prefix+id with a fixed TTL. Expiry is
// entirely Redis's; the store never inspects timestamps.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

// TTL is the lifetime of a saved session, also used for the cookie Max-Age.
func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) key(id string) string {
	return s.prefix + id
}

// New returns an unsaved session with a fresh random id.
func (s *Store) New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Load fetches the session for id. Unknown, expired or unreadable ids yield
// a fresh unsaved session rather than an error.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return s.New(), nil
	}

	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.New(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return s.New(), nil
	}
	sess.ID = id
	return &sess, nil
}

// Save writes the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sess.dirty = false
	return nil
}

// Destroy deletes the session. Deleting a missing session is not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
