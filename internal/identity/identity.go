// Package identity resolves the signed-in user and publishes auth state changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"leadboard/internal/logging"
	"leadboard/internal/observable"
)

var (
	// ErrSignInCancelled means the user abandoned sign-in before providing a credential.
	ErrSignInCancelled = errors.New("sign-in cancelled")
	ErrInvalidToken    = errors.New("invalid credentials")
)

type User struct {
	UID    string `json:"uid"`
	Email  string `json:"email,omitempty"`
	Source string `json:"source"`
}

// Verifier turns a credential into a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

// Session holds the current user. Resolution completes once, on the first Restore or SignIn;
// Ready is closed at that point.
type Session struct {
	verifier Verifier
	log      *zap.Logger

	state observable.Value[*User]
	ready *observable.Latch
}

func NewSession(v Verifier, log *zap.Logger) *Session {
	return &Session{verifier: v, log: logging.OrNop(log), ready: observable.NewLatch()}
}

// Ready is closed once the initial identity resolution has completed.
func (s *Session) Ready() <-chan struct{} { return s.ready.Done() }

// Resolving reports whether the initial resolution is still pending.
func (s *Session) Resolving() bool {
	return !s.ready.Fired()
}

// User returns the signed-in user or nil.
func (s *Session) User() *User { return s.state.Get() }

// UID returns the signed-in user id or "".
func (s *Session) UID() string {
	if u := s.state.Get(); u != nil {
		return u.UID
	}
	return ""
}

// WaitReady blocks until resolution completes or ctx ends.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) resolve(u *User) {
	s.ready.Fire()
	s.state.Set(u)
}

// Restore performs the initial resolution from a persisted credential. An empty token
// resolves to signed out.
func (s *Session) Restore(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		s.resolve(nil)
		return nil, nil
	}
	u, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.log.Warn("restore session failed", zap.Error(err))
		s.resolve(nil)
		return nil, fmt.Errorf("restore session: %w", err)
	}
	s.resolve(&u)
	return &u, nil
}

// Verify checks token without changing the current user.
func (s *Session) Verify(ctx context.Context, token string) (User, error) {
	if strings.TrimSpace(token) == "" {
		return User{}, ErrInvalidToken
	}
	return s.verifier.Verify(ctx, token)
}

// SignIn verifies token and makes its user current. An empty token is a cancelled sign-in
// and leaves the state untouched.
func (s *Session) SignIn(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrSignInCancelled
	}
	u, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	s.log.Info("signed in", zap.String("uid", u.UID), zap.String("source", u.Source))
	s.resolve(&u)
	return &u, nil
}

func (s *Session) SignOut() {
	if u := s.state.Get(); u != nil {
		s.log.Info("signed out", zap.String("uid", u.UID))
	}
	s.resolve(nil)
}

// OnAuthStateChange calls fn on every resolved state change, and immediately with the current
// state when resolution already happened. The returned func unsubscribes.
func (s *Session) OnAuthStateChange(fn func(*User)) func() {
	cancel := s.state.Subscribe(fn)
	if !s.Resolving() {
		fn(s.state.Get())
	}
	return cancel
}
