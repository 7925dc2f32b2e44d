package repositories

import (
	"context"

	"github.com/anonto42/nano-social/backend/internal/models"
	"gorm.io/gorm"
)

// PostgresLikeRepository implements LikeRepository for PostgreSQL. Post and
// comment likes share one table keyed by (user_id, likable_type, likable_id).
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike creates a new like in PostgreSQL
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	return translate(r.db.WithContext(ctx).Create(like).Error)
}

// DeleteLike deletes a like from PostgreSQL
func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, userID uint, target models.Likable) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND likable_type = ? AND likable_id = ?", userID, target.Kind, target.ID).
		Delete(&models.Like{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasLiked checks if a user has liked the target
func (r *PostgresLikeRepository) HasLiked(ctx context.Context, userID uint, target models.Likable) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND likable_type = ? AND likable_id = ?", userID, target.Kind, target.ID).
		Count(&count).Error
	return count > 0, translate(err)
}

func (r *PostgresLikeRepository) CountLikes(ctx context.Context, target models.Likable) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("likable_type = ? AND likable_id = ?", target.Kind, target.ID).
		Count(&count).Error
	return count, translate(err)
}

func (r *PostgresLikeRepository) DeleteLikesByTargets(ctx context.Context, kind models.LikableKind, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("likable_type = ? AND likable_id IN ?", kind, ids).
		Delete(&models.Like{}).Error
	return translate(err)
}
