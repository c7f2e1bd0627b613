// Package session holds the bearer credentials used for backend calls. A
// Store is created once per run and handed to the API client explicitly.
package session

import (
	"context"
	"strings"
	"sync"
)

// DefaultTokenType is used when a token is stored without a type.
const DefaultTokenType = "Bearer"

// Credentials are the access token and its scheme.
type Credentials struct {
	AccessToken string `json:"accessToken" yaml:"accessToken"`
	TokenType   string `json:"tokenType" yaml:"tokenType"`
}

// Valid reports whether a token is present.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

// Header is the Authorization header value, or "" without a token.
func (c Credentials) Header() string {
	if !c.Valid() {
		return ""
	}
	tt := strings.TrimSpace(c.TokenType)
	if tt == "" {
		tt = DefaultTokenType
	}
	return tt + " " + strings.TrimSpace(c.AccessToken)
}

// Store is a concurrency-safe holder for the current credentials.
type Store struct {
	mu      sync.RWMutex
	creds   Credentials
	cleared []func()
}

// NewStore returns a store holding creds.
func NewStore(creds Credentials) *Store {
	return &Store{creds: creds}
}

// Credentials returns the current credentials.
func (s *Store) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Set replaces the credentials.
func (s *Store) Set(creds Credentials) {
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
}

// Authenticated reports whether a token is held.
func (s *Store) Authenticated() bool {
	return s.Credentials().Valid()
}

// OnClear registers fn to run after Clear.
func (s *Store) OnClear(fn func()) {
	s.mu.Lock()
	s.cleared = append(s.cleared, fn)
	s.mu.Unlock()
}

// Clear drops the credentials, as on a 401, and notifies OnClear hooks.
func (s *Store) Clear() {
	s.mu.Lock()
	had := s.creds.Valid()
	s.creds = Credentials{}
	hooks := append([]func(){}, s.cleared...)
	s.mu.Unlock()
	if !had {
		return
	}
	for _, fn := range hooks {
		fn()
	}
}

type contextKey struct{}

// IntoContext stores the session in the context.
func IntoContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in the context.
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(contextKey{}).(*Store)
	return s, ok && s != nil
}
