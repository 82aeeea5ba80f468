package session

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"grantdraft/internal/genclient"
	"grantdraft/internal/metrics"
)

var ErrNotFound = errors.New("session: not found")

const (
	DefaultMaxSessions = 1024
	DefaultTTL         = 2 * time.Hour
)

// Registry holds live sessions in memory. Idle sessions expire after the TTL
// and the least recently used one is dropped once the size bound is hit.
type Registry struct {
	sessions *expirable.LRU[string, *Session]
	gen      genclient.Generator
	creds    CredentialSource
	opts     Options
}

func NewRegistry(size int, ttl time.Duration, gen genclient.Generator, creds CredentialSource, opts Options) *Registry {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	onEvict := func(_ string, s *Session) {
		s.Close()
		metrics.SessionsActive.Dec()
	}
	return &Registry{
		sessions: expirable.NewLRU[string, *Session](size, onEvict, ttl),
		gen:      gen,
		creds:    creds,
		opts:     opts,
	}
}

func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.gen, r.creds, r.opts)
	r.sessions.Add(s.ID(), s)
	metrics.SessionsActive.Inc()
	return s
}

// Get returns the session and restarts its expiry.
func (r *Registry) Get(id string) (*Session, error) {
	id = strings.TrimSpace(id)
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	r.sessions.Add(id, s)
	return s, nil
}

func (r *Registry) Delete(id string) error {
	if !r.sessions.Remove(strings.TrimSpace(id)) {
		return ErrNotFound
	}
	return nil
}

func (r *Registry) Len() int { return r.sessions.Len() }

// Close drops every session.
func (r *Registry) Close() { r.sessions.Purge() }
