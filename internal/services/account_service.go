package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/auth"
	"github.com/anonto42/nano-social/backend/internal/cache"
	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/internal/media"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"go.uber.org/zap"
)

// ExternalIdentity is what a third party identity provider vouches for.
type ExternalIdentity struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IDTokenVerifier checks an ID token issued by an external provider.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*ExternalIdentity, error)
}

// AuthResult is returned by every call that opens a session.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// AccountDeps are the collaborators of an AccountService. Verifier may be
// nil when Firebase login is not configured.
type AccountDeps struct {
	Store         repositories.Store
	Tokens        *auth.Tokens
	Hasher        *auth.Hasher
	Cache         cache.Cache
	Photos        media.Store
	Notifications *NotificationService
	Verifier      IDTokenVerifier
}

// AccountService owns credentials, verification flows, settings and the
// caller's profile.
type AccountService struct {
	deps   AccountDeps
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewAccountService(deps AccountDeps, cfg Config, logger *zap.Logger) *AccountService {
	return &AccountService{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func verifyKey(token string) string { return "verify:" + token }

func (s *AccountService) link(path, token string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (s *AccountService) session(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, err := s.deps.Tokens.Issue(ctx, user)
	if err != nil {
		return nil, apperrors.Transient(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, apperrors.Validation("%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}

// taken reports a unique field already owned by another user.
func taken(ctx context.Context, find func(context.Context, string) (*models.User, error), value string, self uint) (bool, error) {
	u, err := find(ctx, value)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return u.ID != self, nil
}

// === Registration & sessions ===

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	birth, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}
	hash, err := s.deps.Hasher.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Transient(err)
	}
	phone := strings.TrimSpace(req.Phone)
	user := &models.User{
		Slug:         newSlug(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		Phone:        &phone,
		Gender:       req.Gender,
		BirthDate:    birth,
		PasswordHash: hash,
		Color:        "blue",
	}

	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	err = s.deps.Store.Transaction(ctx, func(tx repositories.Store) error {
		users := tx.Users()
		checks := []struct {
			field string
			value string
			find  func(context.Context, string) (*models.User, error)
		}{
			{"email", user.Email, users.GetUserByEmail},
			{"username", user.Username, users.GetUserByUsername},
			{"phone", phone, users.GetUserByPhone},
		}
		for _, c := range checks {
			exists, err := taken(ctx, c.find, c.value, 0)
			if err != nil {
				return err
			}
			if exists {
				return apperrors.Validation("the %s has already been taken", c.field)
			}
		}
		if err := users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperrors.Validation("the email, username or phone has already been taken")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Classify(err)
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Warn("Verification email not queued", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return s.session(ctx, user)
}

// Login accepts an email address or a username.
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*AuthResult, error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	login := strings.TrimSpace(req.Login)
	var (
		user *models.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.deps.Store.Users().GetUserByEmail(ctx, strings.ToLower(login))
	} else {
		user, err = s.deps.Store.Users().GetUserByUsername(ctx, login)
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, apperrors.Transient(err)
	}
	if user.PasswordHash == "" || !s.deps.Hasher.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}
	return s.session(ctx, user)
}

// FirebaseLogin exchanges a Firebase ID token for a local session, linking
// the Firebase account to an existing user by uid or email, or creating one.
func (s *AccountService) FirebaseLogin(ctx context.Context, req models.FirebaseLoginRequest) (*AuthResult, error) {
	if s.deps.Verifier == nil {
		return nil, apperrors.Unauthenticated("firebase login is not available")
	}
	ident, err := s.deps.Verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid firebase id token")
	}
	if ident.Email == "" {
		return nil, apperrors.Validation("the firebase account has no email address")
	}

	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var user *models.User
	err = s.deps.Store.Transaction(ctx, func(tx repositories.Store) error {
		users := tx.Users()
		u, err := users.GetUserByFirebaseUID(ctx, ident.UID)
		if err == nil {
			user = u
			return nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		uid := ident.UID
		u, err = users.GetUserByEmail(ctx, strings.ToLower(ident.Email))
		switch {
		case err == nil:
			u.FirebaseUID = &uid
			if ident.EmailVerified && !u.EmailVerified() {
				now := s.now()
				u.EmailVerifiedAt = &now
			}
			if err := users.UpdateUser(ctx, u); err != nil {
				return err
			}
			user = u
			return nil
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}

		username, err := usernameFrom(ident.Email)
		if err != nil {
			return err
		}
		u = &models.User{
			Slug:        newSlug(),
			Name:        ident.Name,
			Email:       strings.ToLower(ident.Email),
			Username:    username,
			ImageURL:    ident.Picture,
			FirebaseUID: &uid,
			Color:       "blue",
		}
		if u.Name == "" {
			u.Name = username
		}
		if ident.EmailVerified {
			now := s.now()
			u.EmailVerifiedAt = &now
		}
		if err := users.CreateUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return s.session(ctx, user)
}

// usernameFrom derives a free-form username from an email's local part.
func usernameFrom(email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 20 {
			break
		}
	}
	base := strings.ToLower(b.String())
	if len(base) < 3 {
		base = "user" + base
	}
	suffix, err := randomDigits(4)
	if err != nil {
		return "", err
	}
	return base + "_" + suffix, nil
}

func (s *AccountService) Logout(ctx context.Context, ident auth.Identity) error {
	if err := s.deps.Tokens.Revoke(ctx, ident.SessionID); err != nil {
		return apperrors.Transient(err)
	}
	return nil
}

// === Email verification ===

func (s *AccountService) sendVerification(ctx context.Context, user *models.User) error {
	token, err := randomToken(32)
	if err != nil {
		return err
	}
	key := verifyKey(token)
	if err := s.deps.Cache.Put(ctx, key, []byte(strconv.FormatUint(uint64(user.ID), 10)), s.cfg.VerifyTokenTTL); err != nil {
		return err
	}
	s.deps.Notifications.Deliver(delivery.Message{
		RecipientID: user.ID,
		Template:    delivery.TemplateVerifyEmail,
		To:          user.Email,
		Payload: map[string]string{
			"name": user.Name,
			"link": s.link("/verify-email", token),
		},
	})
	return nil
}

// VerifyEmail consumes a verification token and returns a fresh session
// whose token carries the verified flag.
func (s *AccountService) VerifyEmail(ctx context.Context, req models.VerifyEmailRequest) (*AuthResult, error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	key := verifyKey(req.Token)
	raw, err := s.deps.Cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, apperrors.Validation("the verification link is invalid or has expired")
	}
	if err != nil {
		return nil, apperrors.Transient(err)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return nil, apperrors.Validation("the verification link is invalid or has expired")
	}

	user, err := s.updateUser(ctx, uint(id), func(u *models.User) error {
		if !u.EmailVerified() {
			now := s.now()
			u.EmailVerifiedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.deps.Cache.Forget(ctx, key); err != nil {
		s.logger.Warn("Verification token not forgotten", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return s.session(ctx, user)
}

func (s *AccountService) ResendVerification(ctx context.Context, req models.ResendVerificationRequest) error {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	user, err := s.deps.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return apperrors.Classify(missing(err, "no account uses this email address"))
	}
	if user.EmailVerified() {
		return apperrors.Conflict("the email address is already verified")
	}
	if err := s.sendVerification(ctx, user); err != nil {
		return apperrors.Transient(err)
	}
	return nil
}

// === Passwords ===

// limited opens a new update request for userID unless limit completed
// requests of the same kind already fall inside the window. The user row is
// locked so concurrent requests count against each other.
func (s *AccountService) limited(ctx context.Context, tx repositories.Store, userID uint, req *models.UpdateRequest, limit Limit) error {
	if err := tx.Users().LockUser(ctx, userID); err != nil {
		return missing(err, "user not found")
	}
	now := s.now()
	done, err := tx.UpdateRequests().CountCompletedSince(ctx, userID, req.Kind, now.Add(-limit.Window))
	if err != nil {
		return err
	}
	if limit.Max > 0 && done >= int64(limit.Max) {
		return apperrors.RateLimit("too many %s requests, please try again later", strings.ReplaceAll(string(req.Kind), "_", " "))
	}
	req.UserID = userID
	req.CreatedAt = now
	return tx.UpdateRequests().CreateUpdateRequest(ctx, req)
}

func (s *AccountService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	user, err := s.deps.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return apperrors.Classify(missing(err, "no account uses this email address"))
	}
	token, err := randomToken(32)
	if err != nil {
		return apperrors.Transient(err)
	}
	err = s.deps.Store.Transaction(ctx, func(tx repositories.Store) error {
		return s.limited(ctx, tx, user.ID, &models.UpdateRequest{
			Kind:       models.UpdatePasswordReset,
			Token:      token,
			Expiration: s.now().Add(s.cfg.ResetTokenTTL),
		}, s.cfg.PasswordReset)
	})
	if err != nil {
		return apperrors.Classify(err)
	}

	s.deps.Notifications.Deliver(delivery.Message{
		RecipientID: user.ID,
		Template:    delivery.TemplatePasswordReset,
		To:          user.Email,
		Payload: map[string]string{
			"name":       user.Name,
			"link":       s.link("/reset-password", token),
			"expires_in": s.cfg.ResetTokenTTL.String(),
		},
	})
	return nil
}

// ResetPassword consumes a reset token. Expired or used tokens are rejected.
func (s *AccountService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	hash, err := s.deps.Hasher.HashPassword(req.Password)
	if err != nil {
		return apperrors.Transient(err)
	}
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	invalid := apperrors.Validation("the password reset token is invalid or has expired")
	err = s.deps.Store.Transaction(ctx, func(tx repositories.Store) error {
		r, err := tx.UpdateRequests().GetUpdateRequestByToken(ctx, models.UpdatePasswordReset, req.Token)
		if errors.Is(err, repositories.ErrNotFound) {
			return invalid
		}
		if err != nil {
			return err
		}
		if err := tx.UpdateRequests().CompleteUpdateRequest(ctx, r.ID, s.now()); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return invalid
			}
			return err
		}
		u, err := tx.Users().GetUserByID(ctx, r.UserID)
		if err != nil {
			return missing(err, "user not found")
		}
		u.PasswordHash = hash
		return tx.Users().UpdateUser(ctx, u)
	})
	return apperrors.Classify(err)
}

func (s *AccountService) ChangePassword(ctx context.Context, userID uint, req models.ChangePasswordRequest) error {
	hash, err := s.deps.Hasher.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.Transient(err)
	}
	_, err = s.updateUser(ctx, userID, func(u *models.User) error {
		if u.PasswordHash != "" && !s.deps.Hasher.VerifyPassword(req.CurrentPassword, u.PasswordHash) {
			return apperrors.Validation("the current password is incorrect")
		}
		u.PasswordHash = hash
		return nil
	})
	return err
}

// === Verified changes ===

// change describes one code-confirmed field change.
type change struct {
	kind  models.UpdateRequestKind
	field string
	limit Limit
	find  func(repositories.UserRepository) func(context.Context, string) (*models.User, error)
	apply func(u *models.User, value string, now time.Time)
	// notify sends the code; u is the user before the change.
	notify func(u *models.User, value, code string) delivery.Message
}

func (s *AccountService) changes(kind models.UpdateRequestKind) change {
	codeMail := func(field string) func(u *models.User, value, code string) delivery.Message {
		return func(u *models.User, value, code string) delivery.Message {
			to := u.Email
			if field == "email" {
				to = value
			}
			return delivery.Message{
				RecipientID: u.ID,
				Template:    delivery.TemplateChangeCode,
				To:          to,
				Payload: map[string]string{
					"name":       u.Name,
					"field":      field,
					"code":       code,
					"expires_in": s.cfg.CodeTTL.String(),
				},
			}
		}
	}
	switch kind {
	case models.UpdateUsername:
		return change{
			kind:  kind,
			field: "username",
			limit: s.cfg.UsernameChange,
			find: func(r repositories.UserRepository) func(context.Context, string) (*models.User, error) {
				return r.GetUserByUsername
			},
			apply:  func(u *models.User, v string, _ time.Time) { u.Username = v },
			notify: codeMail("username"),
		}
	case models.UpdateEmail:
		return change{
			kind:  kind,
			field: "email",
			limit: s.cfg.EmailChange,
			find: func(r repositories.UserRepository) func(context.Context, string) (*models.User, error) {
				return r.GetUserByEmail
			},
			apply: func(u *models.User, v string, now time.Time) {
				u.Email = v
				u.EmailVerifiedAt = &now
			},
			notify: codeMail("email"),
		}
	default:
		return change{
			kind:  models.UpdatePhone,
			field: "phone",
			limit: s.cfg.PhoneChange,
			find: func(r repositories.UserRepository) func(context.Context, string) (*models.User, error) {
				return r.GetUserByPhone
			},
			apply: func(u *models.User, v string, _ time.Time) { u.Phone = &v },
			notify: func(u *models.User, value, code string) delivery.Message {
				return delivery.Message{
					RecipientID: u.ID,
					Template:    delivery.TemplatePhoneCode,
					To:          value,
					Payload:     map[string]string{"code": code, "expires_in": s.cfg.CodeTTL.String()},
				}
			},
		}
	}
}

func (s *AccountService) requestChange(ctx context.Context, userID uint, kind models.UpdateRequestKind, value string) error {
	ch := s.changes(kind)
	code, err := randomDigits(6)
	if err != nil {
		return apperrors.Transient(err)
	}
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var user *models.User
	err = s.deps.Store.Transaction(ctx, func(tx repositories.Store) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return missing(err, "user not found")
		}
		if current(u, kind) == value {
			return apperrors.Validation("the new %s must differ from the current one", ch.field)
		}
		exists, err := taken(ctx, ch.find(tx.Users()), value, u.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.Validation("the %s has already been taken", ch.field)
		}
		user = u
		return s.limited(ctx, tx, u.ID, &models.UpdateRequest{
			Kind:       kind,
			Code:       code,
			NewValue:   value,
			Expiration: s.now().Add(s.cfg.CodeTTL),
		}, ch.limit)
	})
	if err != nil {
		return apperrors.Classify(err)
	}
	s.deps.Notifications.Deliver(ch.notify(user, value, code))
	return nil
}

func current(u *models.User, kind models.UpdateRequestKind) string {
	switch kind {
	case models.UpdateUsername:
		return u.Username
	case models.UpdateEmail:
		return u.Email
	case models.UpdatePhone:
		if u.Phone != nil {
			return *u.Phone
		}
	}
	return ""
}

// confirmChange consumes the latest pending request of kind when code
// matches and applies its value.
func (s *AccountService) confirmChange(ctx context.Context, userID uint, kind models.UpdateRequestKind, code string) (*models.User, error) {
	ch := s.changes(kind)
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	invalid := apperrors.Validation("the code is invalid or has expired")
	var user *models.User
	mismatch := false
	err := s.deps.Store.Transaction(ctx, func(tx repositories.Store) error {
		r, err := tx.UpdateRequests().GetLatestUpdateRequest(ctx, userID, kind)
		if errors.Is(err, repositories.ErrNotFound) {
			return invalid
		}
		if err != nil {
			return err
		}
		now := s.now()
		if !r.Usable(now) {
			return invalid
		}
		// A wrong guess commits so the attempt counter survives.
		if subtle.ConstantTimeCompare([]byte(r.Code), []byte(code)) != 1 {
			mismatch = true
			return tx.UpdateRequests().RecordFailedAttempt(ctx, r.ID, s.cfg.CodeMaxAttempts, now)
		}
		if err := tx.UpdateRequests().CompleteUpdateRequest(ctx, r.ID, now); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return invalid
			}
			return err
		}
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return missing(err, "user not found")
		}
		ch.apply(u, r.NewValue, now)
		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperrors.Validation("the %s has already been taken", ch.field)
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	if mismatch {
		return nil, invalid
	}
	return user, nil
}

func (s *AccountService) RequestUsernameChange(ctx context.Context, userID uint, req models.UsernameChangeRequest) error {
	return s.requestChange(ctx, userID, models.UpdateUsername, strings.ToLower(strings.TrimSpace(req.Username)))
}

func (s *AccountService) ConfirmUsernameChange(ctx context.Context, userID uint, req models.ConfirmChangeRequest) (*models.User, error) {
	return s.confirmChange(ctx, userID, models.UpdateUsername, req.Code)
}

// RequestEmailChange sends the code to the new address, so confirming it
// also verifies that address.
func (s *AccountService) RequestEmailChange(ctx context.Context, userID uint, req models.EmailChangeRequest) error {
	return s.requestChange(ctx, userID, models.UpdateEmail, strings.ToLower(strings.TrimSpace(req.Email)))
}

func (s *AccountService) ConfirmEmailChange(ctx context.Context, userID uint, req models.ConfirmChangeRequest) (*models.User, error) {
	return s.confirmChange(ctx, userID, models.UpdateEmail, req.Code)
}

func (s *AccountService) RequestPhoneChange(ctx context.Context, userID uint, req models.PhoneChangeRequest) error {
	return s.requestChange(ctx, userID, models.UpdatePhone, strings.TrimSpace(req.Phone))
}

func (s *AccountService) ConfirmPhoneChange(ctx context.Context, userID uint, req models.ConfirmChangeRequest) (*models.User, error) {
	return s.confirmChange(ctx, userID, models.UpdatePhone, req.Code)
}

// === Settings & profile ===

func (s *AccountService) updateUser(ctx context.Context, userID uint, fn func(u *models.User) error) (*models.User, error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var user *models.User
	err := s.deps.Store.Transaction(ctx, func(tx repositories.Store) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return missing(err, "user not found")
		}
		if err := fn(u); err != nil {
			return err
		}
		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return user, nil
}

func (s *AccountService) SetDarkMode(ctx context.Context, userID uint, req models.DarkModeRequest) (*models.User, error) {
	return s.updateUser(ctx, userID, func(u *models.User) error {
		if req.Enabled == nil {
			return apperrors.Validation("enabled is required")
		}
		u.DarkMode = *req.Enabled
		return nil
	})
}

func (s *AccountService) SetColor(ctx context.Context, userID uint, req models.ColorRequest) (*models.User, error) {
	return s.updateUser(ctx, userID, func(u *models.User) error {
		u.Color = req.Color
		return nil
	})
}

// UpdateProfile changes only the fields present in req.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, req models.UpdateProfileRequest) (*models.User, error) {
	birth, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}
	return s.updateUser(ctx, userID, func(u *models.User) error {
		if name := strings.TrimSpace(req.Name); name != "" {
			u.Name = name
		}
		if req.Gender != "" {
			u.Gender = req.Gender
		}
		if birth != nil {
			u.BirthDate = birth
		}
		if req.Location != "" {
			u.Location = strings.TrimSpace(req.Location)
		}
		if req.Bio != "" {
			u.Bio = strings.TrimSpace(req.Bio)
		}
		return nil
	})
}

// UploadPhoto stores the image and points the profile at it.
func (s *AccountService) UploadPhoto(ctx context.Context, userID uint, name string, r io.Reader) (*models.User, error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if _, err := s.deps.Store.Users().GetUserByID(ctx, userID); err != nil {
		return nil, apperrors.Classify(missing(err, "user not found"))
	}
	imageURL, err := s.deps.Photos.Upload(ctx, name, r, s.cfg.Photo)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return s.updateUser(ctx, userID, func(u *models.User) error {
		u.ImageURL = imageURL
		return nil
	})
}

func (s *AccountService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	u, err := s.deps.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Classify(missing(err, "user not found"))
	}
	return u, nil
}

// GetUserBySlug returns another user's public profile.
func (s *AccountService) GetUserBySlug(ctx context.Context, slug string) (*models.UserCompact, error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	u, err := s.deps.Store.Users().GetUserBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.Classify(missing(err, "user not found"))
	}
	compact := u.ToCompact()
	return &compact, nil
}
