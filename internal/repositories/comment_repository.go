package repositories

import (
	"context"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"gorm.io/gorm"
)

func commentsWithCounts(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Comment{}).Select(`comments.*,
		(SELECT COUNT(*) FROM likes WHERE likes.likable_type = ? AND likes.likable_id = comments.id) AS likes_count`,
		models.LikableComment)
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a new comment in PostgreSQL
func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Create(comment).Error)
}

// GetCommentByID retrieves a comment by ID from PostgreSQL
func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := commentsWithCounts(r.db.WithContext(ctx)).Where("comments.id = ?", id).First(&comment).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (r *PostgresCommentRepository) GetCommentIDsByPostID(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Pluck("id", &ids).Error
	return ids, translate(err)
}

func (r *PostgresCommentRepository) CountCommentsByPostID(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, translate(err)
}

// UpdateComment updates an existing comment in PostgreSQL
func (r *PostgresCommentRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	res := r.db.WithContext(ctx).Model(comment).Select("body", "updated_at").Updates(comment)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteComment deletes a comment by ID from PostgreSQL
func (r *PostgresCommentRepository) DeleteComment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresCommentRepository) DeleteCommentsByPostID(ctx context.Context, postID uint) error {
	return translate(r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{}).Error)
}

// ListCommentsByPostID lists a post's comments oldest first.
func (r *PostgresCommentRepository) ListCommentsByPostID(postID uint) pagination.Query[models.Comment] {
	return pageQuery[models.Comment](r.db, func(db *gorm.DB) *gorm.DB {
		return commentsWithCounts(db).
			Where("comments.post_id = ?", postID).
			Order("comments.created_at ASC").Order("comments.id ASC")
	})
}
