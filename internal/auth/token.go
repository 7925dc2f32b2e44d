package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/anonto42/nano-social/backend/internal/cache"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionGone means the token is well formed but its session was revoked.
	ErrSessionGone = errors.New("session revoked")
)

// Claims is the payload of an access token.
type Claims struct {
	UserID        uint `json:"user_id"`
	EmailVerified bool `json:"email_verified"`
	jwt.RegisteredClaims
}

// Identity is what the rest of the application learns about a caller.
type Identity struct {
	UserID        uint
	EmailVerified bool
	SessionID     string
}

// Tokens issues and parses HS256 access tokens. Every token is bound to a
// session key in the cache so logout can revoke it before it expires.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	cache  cache.Cache
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration, c cache.Cache) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, cache: c, now: time.Now}
}

func sessionKey(jti string) string { return "session:" + jti }

// Issue signs a token for user and opens its session.
func (t *Tokens) Issue(ctx context.Context, user *models.User) (string, error) {
	now := t.now()
	jti := uuid.NewString()
	claims := Claims{
		UserID:        user.ID,
		EmailVerified: user.EmailVerified(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := t.cache.Put(ctx, sessionKey(jti), []byte(claims.Subject), t.ttl); err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	return signed, nil
}

// Parse validates raw and checks that its session is still open.
func (t *Tokens) Parse(ctx context.Context, raw string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	if _, err := t.cache.Get(ctx, sessionKey(claims.ID)); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrSessionGone
		}
		return nil, err
	}
	return &Identity{UserID: claims.UserID, EmailVerified: claims.EmailVerified, SessionID: claims.ID}, nil
}

// Revoke closes a session.
func (t *Tokens) Revoke(ctx context.Context, sessionID string) error {
	return t.cache.Forget(ctx, sessionKey(sessionID))
}
