package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "quillchat"

var (
	// ErrTokenExpired indicates the token is past its validity window.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed token or a bad signature.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenService issues and verifies signed, time-bound identity tokens.
// It is stateless: correctness depends only on the shared signing
// secret and wall-clock time.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
}

// NewTokenService creates a TokenService.
// leeway is the clock-skew tolerance applied when verifying expiry.
func NewTokenService(secret string, ttl, leeway time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		leeway: leeway,
	}
}

// Issue produces a signed HS256 token bound to subject (the user's email).
func (s *TokenService) Issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a token, returning its subject.
// Returns ErrTokenExpired past the validity window (beyond the
// configured leeway) and ErrTokenInvalid for anything else wrong
// with the token.
func (s *TokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
