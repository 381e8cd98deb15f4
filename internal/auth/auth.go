// Package auth implements the shared-passphrase gate and the opaque
// session markers handed out once it has been passed.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"contracts/internal/cache"
)

// DefaultPassphrase is accepted when none is configured.
const DefaultPassphrase = "landscape11"

// ErrUnauthenticated is returned when a passphrase or session is rejected.
var ErrUnauthenticated = errors.New("incorrect passphrase")

// Authenticator decides whether a candidate passphrase passes the gate.
type Authenticator interface {
	Authenticate(candidate string) bool
}

// StaticPassphrase compares candidates case-insensitively against one secret.
type StaticPassphrase struct {
	secret []byte
}

var _ Authenticator = (*StaticPassphrase)(nil)

// NewStaticPassphrase lowercases secret once. An empty secret falls back to
// DefaultPassphrase.
func NewStaticPassphrase(secret string) *StaticPassphrase {
	if strings.TrimSpace(secret) == "" {
		secret = DefaultPassphrase
	}
	return &StaticPassphrase{secret: []byte(strings.ToLower(secret))}
}

// Authenticate lowercases candidate and compares it in constant time.
func (p *StaticPassphrase) Authenticate(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(candidate)), p.secret) == 1
}

// Check is Authenticate returning ErrUnauthenticated on failure.
func Check(a Authenticator, candidate string) error {
	if a == nil || !a.Authenticate(candidate) {
		return ErrUnauthenticated
	}
	return nil
}

// Sessions tracks browsers that passed the gate. Tokens are random uuids;
// they carry no data and expire after the configured TTL.
type Sessions struct {
	store *cache.LRUCache[time.Time]
}

// NewSessions holds up to maxSessions tokens for ttl each.
func NewSessions(maxSessions int, ttl time.Duration) *Sessions {
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	return &Sessions{store: cache.NewLRUCache[time.Time](maxSessions, ttl)}
}

// Issue creates a new session token.
func (s *Sessions) Issue() string {
	token := uuid.NewString()
	s.store.Set(token, time.Now())
	return token
}

// Valid reports whether token was issued and has not expired or been revoked.
func (s *Sessions) Valid(token string) bool {
	if token == "" {
		return false
	}
	if _, err := uuid.Parse(token); err != nil {
		return false
	}
	_, ok := s.store.Get(token)
	return ok
}

// Revoke forgets token.
func (s *Sessions) Revoke(token string) {
	if token != "" {
		s.store.Delete(token)
	}
}

// Active returns the number of live tokens.
func (s *Sessions) Active() int {
	return s.store.Size()
}

// TTL returns the session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.store.TTL()
}

// Cache exposes the token store so it can be registered for sweeping.
func (s *Sessions) Cache() cache.Cleaner {
	return s.store
}
