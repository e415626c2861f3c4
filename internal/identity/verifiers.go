package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

// StaticVerifier accepts exactly one token, the configured user id. Used for local single-user mode.
type StaticVerifier struct {
	UID string
}

func (v StaticVerifier) Verify(_ context.Context, token string) (User, error) {
	if v.UID == "" || token != v.UID {
		return User{}, ErrInvalidToken
	}
	return User{UID: v.UID, Source: "local"}, nil
}

// JWTVerifier validates HS256 bearer tokens; the subject claim is the user id.
type JWTVerifier struct {
	Secret string
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

func (v JWTVerifier) Verify(_ context.Context, token string) (User, error) {
	if strings.TrimSpace(v.Secret) == "" {
		return User{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwtClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(v.Secret), nil
	})
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return User{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return User{}, fmt.Errorf("%w: subject claim required", ErrInvalidToken)
	}
	return User{UID: claims.Subject, Email: claims.Email, Source: "jwt"}, nil
}

// FirebaseVerifier validates Firebase Auth ID tokens.
type FirebaseVerifier struct {
	Client *auth.Client
}

func (v FirebaseVerifier) Verify(ctx context.Context, token string) (User, error) {
	tok, err := v.Client.VerifyIDToken(ctx, token)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	u := User{UID: tok.UID, Source: "firebase"}
	if email, ok := tok.Claims["email"].(string); ok {
		u.Email = email
	}
	return u, nil
}
