package models

import "time"

// LikableKind tags the object of a Like edge.
type LikableKind string

const (
	LikablePost    LikableKind = "post"
	LikableComment LikableKind = "comment"
)

// Likable is the tagged union {kind, id} a like points at.
type Likable struct {
	Kind LikableKind
	ID   uint
}

func PostTarget(id uint) Likable    { return Likable{Kind: LikablePost, ID: id} }
func CommentTarget(id uint) Likable { return Likable{Kind: LikableComment, ID: id} }

// Like represents a like on a post or a comment.
type Like struct {
	ID          uint        `json:"-" gorm:"primaryKey"`
	UserID      uint        `json:"-" gorm:"not null;uniqueIndex:idx_user_likable"`
	LikableType LikableKind `json:"likable_type" gorm:"size:10;not null;uniqueIndex:idx_user_likable;index:idx_likable"`
	LikableID   uint        `json:"-" gorm:"not null;uniqueIndex:idx_user_likable;index:idx_likable"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (l Like) Target() Likable { return Likable{Kind: l.LikableType, ID: l.LikableID} }
