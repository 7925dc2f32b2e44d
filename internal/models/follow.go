package models

import "time"

// Follow is the edge "FollowerID follows FollowingID".
type Follow struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	FollowerID  uint      `json:"-" gorm:"not null;uniqueIndex:idx_follower_following"`
	FollowingID uint      `json:"-" gorm:"not null;index;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"created_at"`
}
