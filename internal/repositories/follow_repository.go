package repositories

import (
	"context"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"gorm.io/gorm"
)

// PostgresFollowRepository implements FollowRepository for PostgreSQL
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

func (r *PostgresFollowRepository) CreateFollow(ctx context.Context, follow *models.Follow) error {
	return translate(r.db.WithContext(ctx).Create(follow).Error)
}

func (r *PostgresFollowRepository) DeleteFollow(ctx context.Context, followerID, followingID uint) error {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, translate(err)
}

func (r *PostgresFollowRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Pluck("following_id", &ids).Error
	return ids, translate(err)
}

// ListFollowers lists the users following userID, most recent follow first.
func (r *PostgresFollowRepository) ListFollowers(userID uint) pagination.Query[models.User] {
	return pageQuery[models.User](r.db, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.User{}).
			Select("users.*").
			Joins("JOIN follows ON follows.follower_id = users.id").
			Where("follows.following_id = ?", userID).
			Order("follows.created_at DESC").Order("follows.id DESC")
	})
}

// ListFollowing lists the users userID follows, most recent follow first.
func (r *PostgresFollowRepository) ListFollowing(userID uint) pagination.Query[models.User] {
	return pageQuery[models.User](r.db, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.User{}).
			Select("users.*").
			Joins("JOIN follows ON follows.following_id = users.id").
			Where("follows.follower_id = ?", userID).
			Order("follows.created_at DESC").Order("follows.id DESC")
	})
}
