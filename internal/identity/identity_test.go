package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"leadboard/internal/identity"
)

func TestSessionResolvesOnceAndNotifies(t *testing.T) {
	ctx := context.Background()
	s := identity.NewSession(identity.StaticVerifier{UID: "u1"}, nil)
	if !s.Resolving() {
		t.Fatalf("new session should be resolving")
	}
	var seen []string
	s.OnAuthStateChange(func(u *identity.User) {
		if u == nil {
			seen = append(seen, "")
			return
		}
		seen = append(seen, u.UID)
	})
	if len(seen) != 0 {
		t.Fatalf("subscriber called before resolution: %v", seen)
	}
	if _, err := s.Restore(ctx, "u1"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	select {
	case <-s.Ready():
	default:
		t.Fatalf("ready not closed")
	}
	s.SignOut()
	if len(seen) != 2 || seen[0] != "u1" || seen[1] != "" {
		t.Fatalf("unexpected notifications %v", seen)
	}

	var late []string
	s.OnAuthStateChange(func(u *identity.User) { late = append(late, s.UID()) })
	if len(late) != 1 || late[0] != "" {
		t.Fatalf("late subscriber should get current state, got %v", late)
	}
}

func TestSignInCancelledAndInvalid(t *testing.T) {
	ctx := context.Background()
	s := identity.NewSession(identity.StaticVerifier{UID: "u1"}, nil)
	if _, err := s.SignIn(ctx, ""); !errors.Is(err, identity.ErrSignInCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if !s.Resolving() {
		t.Fatalf("cancelled sign-in must not resolve the session")
	}
	if _, err := s.SignIn(ctx, "intruder"); !errors.Is(err, identity.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	u, err := s.SignIn(ctx, "u1")
	if err != nil || u.UID != "u1" || s.UID() != "u1" {
		t.Fatalf("sign in failed: %v %+v", err, u)
	}
}

func TestJWTVerifier(t *testing.T) {
	secret := "s3cret"
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "lead-1",
		"email": "lead@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	u, err := identity.JWTVerifier{Secret: secret}.Verify(context.Background(), signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if u.UID != "lead-1" || u.Email != "lead@example.com" || u.Source != "jwt" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := (identity.JWTVerifier{Secret: "other"}).Verify(context.Background(), signed); !errors.Is(err, identity.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}
