package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/cache"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"go.uber.org/zap"
)

// DirectoryService lists, searches and suggests users.
type DirectoryService struct {
	store  repositories.Store
	cache  cache.Cache
	cfg    Config
	logger *zap.Logger
}

func NewDirectoryService(store repositories.Store, c cache.Cache, cfg Config, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{store: store, cache: c, cfg: cfg, logger: logger}
}

func suggestionsKey(userID uint) string { return fmt.Sprintf("suggestions:%d", userID) }

func compactPage(p pagination.Page[models.User]) pagination.Page[models.UserCompact] {
	return pagination.Map(p, func(u models.User) models.UserCompact { return u.ToCompact() })
}

func (s *DirectoryService) ListUsers(ctx context.Context, pageSize, page int) (pagination.Page[models.UserCompact], error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	p, err := pagination.Paginate(ctx, s.store.Users().ListUsers(), pageSize, page)
	if err != nil {
		return pagination.Page[models.UserCompact]{}, apperrors.Classify(err)
	}
	return compactPage(p), nil
}

func (s *DirectoryService) Search(ctx context.Context, query string, pageSize, page int) (pagination.Page[models.UserCompact], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return pagination.Page[models.UserCompact]{}, apperrors.Validation("search query is required")
	}
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	p, err := pagination.Paginate(ctx, s.store.Users().SearchUsers(query), pageSize, page)
	if err != nil {
		return pagination.Page[models.UserCompact]{}, apperrors.Classify(err)
	}
	return compactPage(p), nil
}

// Suggestions returns users userID does not follow yet. The list is cached
// per user until it expires or the user's follows change.
func (s *DirectoryService) Suggestions(ctx context.Context, userID uint) ([]models.UserCompact, error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var cached []models.UserCompact
	err := cache.GetJSON(ctx, s.cache, suggestionsKey(userID), &cached)
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, cache.ErrMiss):
		s.logger.Warn("Suggestion cache read failed", zap.Uint("user_id", userID), zap.Error(err))
	}

	users, err := s.store.Users().SuggestUsers(ctx, userID, s.cfg.SuggestionsLimit)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	out := make([]models.UserCompact, len(users))
	for i := range users {
		out[i] = users[i].ToCompact()
	}
	if err := cache.PutJSON(ctx, s.cache, suggestionsKey(userID), out, s.cfg.SuggestionsTTL); err != nil {
		s.logger.Warn("Suggestion cache write failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	return out, nil
}

// ForgetSuggestions drops the cached suggestions of the given users.
func (s *DirectoryService) ForgetSuggestions(ctx context.Context, userIDs ...uint) {
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = suggestionsKey(id)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Forget(ctx, keys...); err != nil {
		s.logger.Warn("Suggestion cache invalidation failed", zap.Error(err))
	}
}
