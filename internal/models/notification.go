package models

import "time"

// NotificationAction enumerates the social events that produce a notification.
type NotificationAction string

const (
	ActionFollowed           NotificationAction = "followed"
	ActionLikedPost          NotificationAction = "liked_post"
	ActionLikedComment       NotificationAction = "liked_comment"
	ActionMentionedOnPost    NotificationAction = "mentioned_on_post"
	ActionMentionedOnComment NotificationAction = "mentioned_on_comment"
	ActionCommentedOnPost    NotificationAction = "commented_on_post"
)

// ActorSnapshot is copied into the notification row at creation time.
type ActorSnapshot struct {
	ID     uint
	Name   string
	Gender string
	Image  string
}

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint               `json:"id" gorm:"primaryKey"`
	RecipientID uint               `json:"-" gorm:"not null;index:idx_recipient_created"`
	Action      NotificationAction `json:"action" gorm:"size:30;not null"`
	ActorID     uint               `json:"-"`
	ActorName   string             `json:"actor_name" gorm:"size:100"`
	ActorGender string             `json:"actor_gender" gorm:"size:10"`
	ActorImage  string             `json:"actor_image,omitempty"`
	TargetPath  string             `json:"target_path"`
	PeekedAt    *time.Time         `json:"peeked_at"`
	ReadAt      *time.Time         `json:"read_at"`
	CreatedAt   time.Time          `json:"created_at" gorm:"index:idx_recipient_created"`
}
