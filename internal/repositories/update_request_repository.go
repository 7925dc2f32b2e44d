package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"gorm.io/gorm"
)

type postgresUpdateRequestRepository struct {
	db *gorm.DB
}

func NewPostgresUpdateRequestRepository(db *gorm.DB) UpdateRequestRepository {
	return &postgresUpdateRequestRepository{db: db}
}

func (r *postgresUpdateRequestRepository) CreateUpdateRequest(ctx context.Context, req *models.UpdateRequest) error {
	return translate(r.db.WithContext(ctx).Create(req).Error)
}

func (r *postgresUpdateRequestRepository) CountCompletedSince(ctx context.Context, userID uint, kind models.UpdateRequestKind, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UpdateRequest{}).
		Where("user_id = ? AND kind = ? AND completed_at IS NOT NULL AND completed_at >= ?", userID, kind, since).
		Count(&count).Error
	return count, translate(err)
}

func (r *postgresUpdateRequestRepository) GetLatestUpdateRequest(ctx context.Context, userID uint, kind models.UpdateRequestKind) (*models.UpdateRequest, error) {
	var req models.UpdateRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("created_at DESC").Order("id DESC").
		First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *postgresUpdateRequestRepository) GetUpdateRequestByToken(ctx context.Context, kind models.UpdateRequestKind, token string) (*models.UpdateRequest, error) {
	var req models.UpdateRequest
	if err := r.db.WithContext(ctx).Where("kind = ? AND token = ?", kind, token).First(&req).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *postgresUpdateRequestRepository) CompleteUpdateRequest(ctx context.Context, id uint, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.UpdateRequest{}).
		Where("id = ? AND completed_at IS NULL AND expiration > ?", id, now).
		Update("completed_at", now)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresUpdateRequestRepository) RecordFailedAttempt(ctx context.Context, id uint, limit int, now time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.UpdateRequest{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"expiration": gorm.Expr("CASE WHEN ? > 0 AND attempts + 1 >= ? THEN ? ELSE expiration END", limit, limit, now),
		}).Error
	return translate(err)
}
