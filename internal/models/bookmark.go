package models

import "time"

// Bookmark represents a post saved by a user
type Bookmark struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    uint      `json:"-" gorm:"not null;uniqueIndex:idx_user_post_bookmark"`
	PostID    uint      `json:"-" gorm:"not null;index;uniqueIndex:idx_user_post_bookmark"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
