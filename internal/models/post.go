package models

import "time"

// Post is a user's text post. LikesCount and CommentsCount are computed by
// aggregate subqueries at read time and never written.
type Post struct {
	ID            uint         `json:"-" gorm:"primaryKey"`
	Slug          string       `json:"slug" gorm:"size:36;uniqueIndex;not null"`
	UserID        uint         `json:"-" gorm:"index;not null"`
	Body          string       `json:"body" gorm:"type:text;not null"`
	LikesCount    int64        `json:"likes_count" gorm:"->;-:migration"`
	CommentsCount int64        `json:"comments_count" gorm:"->;-:migration"`
	Author        *UserCompact `json:"author,omitempty" gorm:"-"`
	CreatedAt     time.Time    `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// PostOrder selects the total order used when listing posts.
type PostOrder string

const (
	// PostOrderNewest sorts by created_at desc, id desc.
	PostOrderNewest PostOrder = "newest"
	// PostOrderPopular sorts by likes_count desc, id desc.
	PostOrderPopular PostOrder = "popular"
)

// PostFilter narrows a post listing. AuthorIDs nil means every author.
type PostFilter struct {
	AuthorIDs []uint
	Order     PostOrder
}

type CreatePostRequest struct {
	Body string `json:"body" validate:"required"`
}

type UpdatePostRequest struct {
	Body string `json:"body" validate:"required"`
}
