package models

import "time"

// Comment represents a comment on a post. Slug is time ordered and only
// meaningful within the parent post.
type Comment struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	Slug       string       `json:"slug" gorm:"size:36;index;not null"`
	UserID     uint         `json:"-" gorm:"index;not null"`
	PostID     uint         `json:"-" gorm:"index;not null"`
	Body       string       `json:"body" gorm:"type:text;not null"`
	LikesCount int64        `json:"likes_count" gorm:"->;-:migration"`
	Author     *UserCompact `json:"author,omitempty" gorm:"-"`
	CreatedAt  time.Time    `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Body string `json:"body" validate:"required"`
}
