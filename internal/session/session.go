// Package session is the single source of the signed-in user's identity.
// One Session is constructed at startup and handed to every consumer that
// needs the bearer token or the user's role.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
)

var (
	ErrNoToken = errors.New("not signed in")
	ErrExpired = errors.New("session expired")
)

// State is a snapshot of the session handed to change listeners.
type State struct {
	Valid     bool
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// TokenStore persists the raw token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type Session struct {
	mu        sync.RWMutex
	token     string
	claims    auth.Claims
	store     TokenStore
	now       func() time.Time
	listeners map[int]func(State)
	nextID    int
	onLogin   func()
}

type Option func(*Session)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// New restores the token kept in store, if any. A stored token that cannot be
// decoded is discarded.
func New(store TokenStore, opts ...Option) (*Session, error) {
	s := &Session{store: store, now: time.Now, listeners: map[int]func(State){}}
	for _, o := range opts {
		o(s)
	}
	if store == nil {
		s.store = &MemoryStore{}
	}
	tok, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if tok == "" {
		return s, nil
	}
	c, err := decode(tok)
	if err != nil {
		_ = s.store.Clear()
		return s, nil
	}
	s.token, s.claims = tok, c
	return s, nil
}

// decode reads the token payload without verifying the signature; the
// backend verifies it on every request.
func decode(tok string) (auth.Claims, error) {
	var c auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &c); err != nil {
		return auth.Claims{}, fmt.Errorf("decode token: %w", err)
	}
	return c, nil
}

// Set stores a freshly issued token.
func (s *Session) Set(tok string) error {
	c, err := decode(tok)
	if err != nil {
		return err
	}
	if err := s.store.Save(tok); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.mu.Lock()
	s.token, s.claims = tok, c
	s.mu.Unlock()
	s.emit()
	return nil
}

func (s *Session) Clear() error {
	s.mu.Lock()
	had := s.token != ""
	s.token, s.claims = "", auth.Claims{}
	s.mu.Unlock()
	err := s.store.Clear()
	if had {
		s.emit()
	}
	return err
}

// Token returns the raw token, valid or not.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) IsValid() bool { return s.State().Valid }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{Subject: s.claims.Sub, Role: s.claims.Role}
	if s.claims.ExpiresAt != nil {
		st.ExpiresAt = s.claims.ExpiresAt.Time
	}
	st.Valid = s.token != "" && (st.ExpiresAt.IsZero() || s.now().Before(st.ExpiresAt))
	return st
}

func (s *Session) Role() string    { return s.State().Role }
func (s *Session) Subject() string { return s.State().Subject }

// CanAuthor reports whether the user may create and edit quizzes.
func (s *Session) CanAuthor() bool {
	st := s.State()
	return st.Valid && rbac.Default.All(st.Role, "quiz:create", "question:create")
}

// CanTake reports whether the user may sit exams.
func (s *Session) CanTake() bool {
	st := s.State()
	return st.Valid && rbac.Default.All(st.Role, "quiz:take", "exam:submit")
}

// OnChange registers fn to run after every sign-in or sign-out. The returned
// func unregisters it.
func (s *Session) OnChange(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// OnLoginRequired sets the hook run when the backend rejects the token.
func (s *Session) OnLoginRequired(fn func()) {
	s.mu.Lock()
	s.onLogin = fn
	s.mu.Unlock()
}

// LoginRequired drops the token and runs the login hook.
func (s *Session) LoginRequired() {
	_ = s.Clear()
	s.mu.RLock()
	fn := s.onLogin
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) emit() {
	st := s.State()
	s.mu.RLock()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(st)
	}
}

// TokenSource exposes the session to an oauth2.Transport. It fails with
// ErrNoToken or ErrExpired instead of sending a request that would be
// rejected.
func (s *Session) TokenSource() oauth2.TokenSource { return tokenSource{s} }

type tokenSource struct{ s *Session }

func (ts tokenSource) Token() (*oauth2.Token, error) {
	st := ts.s.State()
	tok := ts.s.Token()
	switch {
	case tok == "":
		return nil, ErrNoToken
	case !st.Valid:
		return nil, ErrExpired
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer", Expiry: st.ExpiresAt}, nil
}
