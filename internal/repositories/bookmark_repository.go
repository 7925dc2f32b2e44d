package repositories

import (
	"context"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"gorm.io/gorm"
)

// PostgresBookmarkRepository implements BookmarkRepository for PostgreSQL
type PostgresBookmarkRepository struct {
	db *gorm.DB
}

func NewPostgresBookmarkRepository(db *gorm.DB) *PostgresBookmarkRepository {
	return &PostgresBookmarkRepository{db: db}
}

func (r *PostgresBookmarkRepository) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	return translate(r.db.WithContext(ctx).Create(bookmark).Error)
}

func (r *PostgresBookmarkRepository) DeleteBookmark(ctx context.Context, userID, postID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Bookmark{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresBookmarkRepository) IsBookmarked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bookmark{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, translate(err)
}

func (r *PostgresBookmarkRepository) DeleteBookmarksByPostID(ctx context.Context, postID uint) error {
	return translate(r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Bookmark{}).Error)
}

// ListBookmarkedPosts lists the posts userID bookmarked, newest bookmark first.
func (r *PostgresBookmarkRepository) ListBookmarkedPosts(userID uint) pagination.Query[models.Post] {
	return pageQuery[models.Post](r.db, func(db *gorm.DB) *gorm.DB {
		return postsWithCounts(db).
			Joins("JOIN bookmarks ON bookmarks.post_id = posts.id AND bookmarks.user_id = ?", userID).
			Order("bookmarks.created_at DESC").Order("bookmarks.id DESC")
	})
}
