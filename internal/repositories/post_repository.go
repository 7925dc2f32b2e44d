package repositories

import (
	"context"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"gorm.io/gorm"
)

// postsWithCounts selects posts together with their read-time aggregates.
func postsWithCounts(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).Select(`posts.*,
		(SELECT COUNT(*) FROM likes WHERE likes.likable_type = ? AND likes.likable_id = posts.id) AS likes_count,
		(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count`,
		models.LikablePost)
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

func (r *PostgresPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return translate(r.db.WithContext(ctx).Create(post).Error)
}

func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := postsWithCounts(r.db.WithContext(ctx)).Where("posts.id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *PostgresPostRepository) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := postsWithCounts(r.db.WithContext(ctx)).Where("posts.slug = ?", slug).First(&post).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// UpdatePost writes the body; updated_at is bumped by gorm.
func (r *PostgresPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(post).Select("body", "updated_at").Updates(post)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPostRepository) DeletePost(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPostRepository) ListPosts(filter models.PostFilter) pagination.Query[models.Post] {
	return pageQuery[models.Post](r.db, func(db *gorm.DB) *gorm.DB {
		q := postsWithCounts(db)
		if filter.AuthorIDs != nil {
			q = q.Where("posts.user_id IN ?", filter.AuthorIDs)
		}
		if filter.Order == models.PostOrderPopular {
			return q.Order("likes_count DESC").Order("posts.id DESC")
		}
		return q.Order("posts.created_at DESC").Order("posts.id DESC")
	})
}
