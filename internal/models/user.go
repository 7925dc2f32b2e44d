package models

import (
	"regexp"
	"time"
)

// UsernamePattern is the shape of a username and of the token after "@" in a
// mention.
var UsernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// User is an account. Slug is the public identifier used in URLs; ID never
// leaves the server except in notifications addressed to the user.
type User struct {
	ID              uint       `json:"-" gorm:"primaryKey"`
	Slug            string     `json:"slug" gorm:"size:36;uniqueIndex;not null"`
	Name            string     `json:"name" gorm:"size:100;not null"`
	Email           string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Username        string     `json:"username" gorm:"size:30;uniqueIndex;not null"`
	Phone           *string    `json:"phone,omitempty" gorm:"size:32;uniqueIndex"`
	Gender          string     `json:"gender" gorm:"size:10"`
	BirthDate       *time.Time `json:"birth_date,omitempty" gorm:"type:date"`
	Location        string     `json:"location,omitempty" gorm:"size:100"`
	Bio             string     `json:"bio,omitempty" gorm:"size:300"`
	ImageURL        string     `json:"image_url,omitempty"`
	PasswordHash    string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	DarkMode        bool       `json:"dark_mode" gorm:"not null;default:false"`
	Color           string     `json:"color" gorm:"size:20;not null;default:'blue'"`
	FirebaseUID     *string    `json:"-" gorm:"size:128;uniqueIndex"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EmailVerified reports whether the account confirmed its email address.
func (u *User) EmailVerified() bool { return u.EmailVerifiedAt != nil }

// UserCompact is the public projection embedded in posts, comments and lists.
type UserCompact struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Gender   string `json:"gender"`
	ImageURL string `json:"image_url,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		Slug:     u.Slug,
		Name:     u.Name,
		Username: u.Username,
		Gender:   u.Gender,
		ImageURL: u.ImageURL,
	}
}

// Snapshot captures the actor fields copied into a notification.
func (u *User) Snapshot() ActorSnapshot {
	return ActorSnapshot{
		ID:     u.ID,
		Name:   u.Name,
		Gender: u.Gender,
		Image:  u.ImageURL,
	}
}

type RegisterRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Username  string `json:"username" validate:"required,username"`
	Phone     string `json:"phone" validate:"required,e164"`
	Gender    string `json:"gender" validate:"required,oneof=male female other"`
	BirthDate string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	// Login is an email address or a username.
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UpdateProfileRequest struct {
	Name      string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Gender    string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	BirthDate string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Location  string `json:"location,omitempty" validate:"omitempty,max=100"`
	Bio       string `json:"bio,omitempty" validate:"omitempty,max=300"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type DarkModeRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type ColorRequest struct {
	Color string `json:"color" validate:"required,oneof=blue green red purple orange pink"`
}

type UsernameChangeRequest struct {
	Username string `json:"username" validate:"required,username"`
}

type EmailChangeRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type PhoneChangeRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

type ConfirmChangeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}
