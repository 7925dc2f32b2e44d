// Package services holds the application's use cases. Every call takes the
// acting user's id explicitly and runs its writes in one store transaction.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/media"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/google/uuid"
)

// Limit caps completed attempts of one kind inside a rolling window.
type Limit struct {
	Max    int
	Window time.Duration
}

type Config struct {
	PostMaxLength    int
	CommentMaxLength int
	StoreTimeout     time.Duration
	VerifyTokenTTL   time.Duration
	ResetTokenTTL    time.Duration
	CodeTTL          time.Duration
	CodeMaxAttempts  int
	SuggestionsTTL   time.Duration
	SuggestionsLimit int
	PasswordReset    Limit
	UsernameChange   Limit
	EmailChange      Limit
	PhoneChange      Limit
	Photo            media.Constraints
	PublicBaseURL    string
}

func DefaultConfig() Config {
	return Config{
		PostMaxLength:    2000,
		CommentMaxLength: 1000,
		StoreTimeout:     5 * time.Second,
		VerifyTokenTTL:   24 * time.Hour,
		ResetTokenTTL:    time.Hour,
		CodeTTL:          15 * time.Minute,
		CodeMaxAttempts:  5,
		SuggestionsTTL:   10 * time.Minute,
		SuggestionsLimit: 10,
		PasswordReset:    Limit{Max: 3, Window: 24 * time.Hour},
		UsernameChange:   Limit{Max: 3, Window: 72 * time.Hour},
		EmailChange:      Limit{Max: 3, Window: 72 * time.Hour},
		PhoneChange:      Limit{Max: 3, Window: 72 * time.Hour},
		Photo:            media.Constraints{MinPx: 100, MaxPx: 4000},
		PublicBaseURL:    "http://localhost:8080",
	}
}

// Runner executes jobs off the request path.
type Runner interface {
	Go(job func(ctx context.Context)) bool
}

func scope(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// missing turns a store ErrNotFound into a NotFound error.
func missing(err error, format string, args ...any) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound(format, args...)
	}
	return err
}

// edgeConflict reports a duplicate insert or a delete that matched nothing as
// Conflict.
func edgeConflict(err error, format string, args ...any) error {
	if errors.Is(err, repositories.ErrDuplicate) || errors.Is(err, repositories.ErrNotFound) {
		return apperrors.Conflict(format, args...)
	}
	return err
}

func checkBody(field, body string, max int) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperrors.Validation("%s is required", field)
	}
	if max > 0 && utf8.RuneCountInString(body) > max {
		return "", apperrors.Validation("%s may not be greater than %d characters", field, max)
	}
	return body, nil
}

func newSlug() string { return uuid.NewString() }

// newOrderedSlug is time ordered so comment slugs sort by creation.
func newOrderedSlug() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		x, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + x.Int64()))
	}
	return b.String(), nil
}
