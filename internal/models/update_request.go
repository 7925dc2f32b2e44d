package models

import "time"

// UpdateRequestKind names a verification flow.
type UpdateRequestKind string

const (
	UpdateUsername      UpdateRequestKind = "username"
	UpdateEmail         UpdateRequestKind = "email"
	UpdatePhone         UpdateRequestKind = "phone"
	UpdatePasswordReset UpdateRequestKind = "password_reset"
)

// UpdateRequest is a pending verification. Rows are kept after completion so
// completed attempts can be counted for rate limiting.
type UpdateRequest struct {
	ID          uint              `json:"-" gorm:"primaryKey"`
	UserID      uint              `json:"-" gorm:"not null;index:idx_update_user_kind"`
	Kind        UpdateRequestKind `json:"kind" gorm:"size:20;not null;index:idx_update_user_kind"`
	Code        string            `json:"-" gorm:"size:6"`
	Token       string            `json:"-" gorm:"size:96;index"`
	NewValue    string            `json:"-"`
	Expiration  time.Time         `json:"expiration" gorm:"not null"`
	Attempts    int               `json:"-" gorm:"not null;default:0"`
	CompletedAt *time.Time        `json:"completed_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Usable reports whether the request can still be consumed at now.
func (r *UpdateRequest) Usable(now time.Time) bool {
	return r.CompletedAt == nil && r.Expiration.After(now)
}
