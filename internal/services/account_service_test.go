package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, e *env, username string) *AuthResult {
	t.Helper()
	e.seq++
	res, err := e.accounts.Register(context.Background(), models.RegisterRequest{
		Name:     "User " + username,
		Email:    username + "@Example.com",
		Username: username,
		Phone:    fmt.Sprintf("+1555%07d", e.seq),
		Gender:   "female",
		Password: "secret-password",
	})
	require.NoError(t, err)
	return res
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res := register(t, e, "alice")
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.NotEmpty(t, res.User.Slug)
	assert.False(t, res.User.EmailVerified())
	assert.NotEqual(t, "secret-password", res.User.PasswordHash)

	msg := e.pub.last(t, delivery.TemplateVerifyEmail)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, res.User.ID, msg.RecipientID)

	_, err := e.accounts.Register(ctx, models.RegisterRequest{
		Name: "Other", Email: "ALICE@example.com", Username: "other", Phone: "+15550001111",
		Gender: "male", Password: "secret-password",
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = e.accounts.Register(ctx, models.RegisterRequest{
		Name: "Other", Email: "other@example.com", Username: "Alice", Phone: "+15550001111",
		Gender: "male", Password: "secret-password",
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = e.accounts.Register(ctx, models.RegisterRequest{
		Name: "Other", Email: "other@example.com", Username: "other", Phone: "+15550001111",
		Gender: "male", BirthDate: "01/02/2000", Password: "secret-password",
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestLoginAndLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "alice")

	byEmail, err := e.accounts.Login(ctx, models.LoginRequest{Login: "Alice@Example.com", Password: "secret-password"})
	require.NoError(t, err)
	byName, err := e.accounts.Login(ctx, models.LoginRequest{Login: "alice", Password: "secret-password"})
	require.NoError(t, err)
	assert.Equal(t, byEmail.User.ID, byName.User.ID)

	_, err = e.accounts.Login(ctx, models.LoginRequest{Login: "alice", Password: "wrong"})
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
	_, err = e.accounts.Login(ctx, models.LoginRequest{Login: "nobody", Password: "secret-password"})
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))

	ident, err := e.accounts.deps.Tokens.Parse(ctx, byName.Token)
	require.NoError(t, err)
	require.NoError(t, e.accounts.Logout(ctx, *ident))
	_, err = e.accounts.deps.Tokens.Parse(ctx, byName.Token)
	assert.Error(t, err)

	_, err = e.accounts.deps.Tokens.Parse(ctx, byEmail.Token)
	assert.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	token := tokenFrom(t, e.pub.last(t, delivery.TemplateVerifyEmail).Payload["link"])
	verified, err := e.accounts.VerifyEmail(ctx, models.VerifyEmailRequest{Token: token})
	require.NoError(t, err)
	assert.True(t, verified.User.EmailVerified())

	ident, err := e.accounts.deps.Tokens.Parse(ctx, verified.Token)
	require.NoError(t, err)
	assert.True(t, ident.EmailVerified)

	_, err = e.accounts.VerifyEmail(ctx, models.VerifyEmailRequest{Token: token})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	err = e.accounts.ResendVerification(ctx, models.ResendVerificationRequest{Email: res.User.Email})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestForgotPassword_RateLimited(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "alice")

	reset := func(password string) {
		t.Helper()
		require.NoError(t, e.accounts.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "alice@example.com"}))
		token := tokenFrom(t, e.pub.last(t, delivery.TemplatePasswordReset).Payload["link"])
		require.NoError(t, e.accounts.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: password}))
	}
	for i := 0; i < 3; i++ {
		reset("new-password")
		e.clock.advance(time.Minute)
	}

	err := e.accounts.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "alice@example.com"})
	assert.Equal(t, apperrors.KindRateLimit, apperrors.KindOf(err))

	e.clock.advance(e.cfg.PasswordReset.Window)
	reset("newest-password")

	_, err = e.accounts.Login(ctx, models.LoginRequest{Login: "alice", Password: "newest-password"})
	assert.NoError(t, err)
}

func TestResetPassword_TokenSingleUseAndExpiring(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "alice")

	require.NoError(t, e.accounts.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "alice@example.com"}))
	token := tokenFrom(t, e.pub.last(t, delivery.TemplatePasswordReset).Payload["link"])

	require.NoError(t, e.accounts.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: "another-one"}))
	err := e.accounts.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: "another-two"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	require.NoError(t, e.accounts.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "alice@example.com"}))
	token = tokenFrom(t, e.pub.last(t, delivery.TemplatePasswordReset).Payload["link"])
	e.clock.advance(e.cfg.ResetTokenTTL + time.Second)
	err = e.accounts.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: "another-two"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	err = e.accounts.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	err := e.accounts.ChangePassword(ctx, res.User.ID, models.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "brand-new-pass"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	require.NoError(t, e.accounts.ChangePassword(ctx, res.User.ID, models.ChangePasswordRequest{CurrentPassword: "secret-password", NewPassword: "brand-new-pass"}))
	_, err = e.accounts.Login(ctx, models.LoginRequest{Login: "alice", Password: "brand-new-pass"})
	assert.NoError(t, err)
}

func TestUsernameChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")
	register(t, e, "bob")

	err := e.accounts.RequestUsernameChange(ctx, res.User.ID, models.UsernameChangeRequest{Username: "bob"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	err = e.accounts.RequestUsernameChange(ctx, res.User.ID, models.UsernameChangeRequest{Username: "alice"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	require.NoError(t, e.accounts.RequestUsernameChange(ctx, res.User.ID, models.UsernameChangeRequest{Username: "Alicia"}))
	msg := e.pub.last(t, delivery.TemplateChangeCode)
	assert.Equal(t, "alice@example.com", msg.To)
	code := msg.Payload["code"]
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = e.accounts.ConfirmUsernameChange(ctx, res.User.ID, models.ConfirmChangeRequest{Code: wrong})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	u, err := e.accounts.ConfirmUsernameChange(ctx, res.User.ID, models.ConfirmChangeRequest{Code: code})
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Username)

	_, err = e.accounts.ConfirmUsernameChange(ctx, res.User.ID, models.ConfirmChangeRequest{Code: code})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestChangeCode_Expires(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	require.NoError(t, e.accounts.RequestEmailChange(ctx, res.User.ID, models.EmailChangeRequest{Email: "new@example.com"}))
	msg := e.pub.last(t, delivery.TemplateChangeCode)
	assert.Equal(t, "new@example.com", msg.To)

	e.clock.advance(e.cfg.CodeTTL + time.Second)
	_, err := e.accounts.ConfirmEmailChange(ctx, res.User.ID, models.ConfirmChangeRequest{Code: msg.Payload["code"]})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	u, err := e.accounts.GetProfile(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestEmailChange_VerifiesNewAddress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	require.NoError(t, e.accounts.RequestEmailChange(ctx, res.User.ID, models.EmailChangeRequest{Email: "New@Example.com"}))
	code := e.pub.last(t, delivery.TemplateChangeCode).Payload["code"]

	u, err := e.accounts.ConfirmEmailChange(ctx, res.User.ID, models.ConfirmChangeRequest{Code: code})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.True(t, u.EmailVerified())
}

func TestPhoneChange_RateLimited(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	phones := []string{"+15551110001", "+15551110002", "+15551110003"}
	for _, phone := range phones {
		require.NoError(t, e.accounts.RequestPhoneChange(ctx, res.User.ID, models.PhoneChangeRequest{Phone: phone}))
		msg := e.pub.last(t, delivery.TemplatePhoneCode)
		assert.Equal(t, phone, msg.To)
		_, err := e.accounts.ConfirmPhoneChange(ctx, res.User.ID, models.ConfirmChangeRequest{Code: msg.Payload["code"]})
		require.NoError(t, err)
	}

	err := e.accounts.RequestPhoneChange(ctx, res.User.ID, models.PhoneChangeRequest{Phone: "+15551110004"})
	assert.Equal(t, apperrors.KindRateLimit, apperrors.KindOf(err))

	u, err := e.accounts.GetProfile(ctx, res.User.ID)
	require.NoError(t, err)
	require.NotNil(t, u.Phone)
	assert.Equal(t, phones[2], *u.Phone)
}

func TestSettingsAndProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")
	id := res.User.ID

	on := true
	u, err := e.accounts.SetDarkMode(ctx, id, models.DarkModeRequest{Enabled: &on})
	require.NoError(t, err)
	assert.True(t, u.DarkMode)

	u, err = e.accounts.SetColor(ctx, id, models.ColorRequest{Color: "green"})
	require.NoError(t, err)
	assert.Equal(t, "green", u.Color)

	u, err = e.accounts.UpdateProfile(ctx, id, models.UpdateProfileRequest{Bio: " hello ", BirthDate: "1990-05-17"})
	require.NoError(t, err)
	assert.Equal(t, "hello", u.Bio)
	assert.Equal(t, "User alice", u.Name)
	require.NotNil(t, u.BirthDate)
	assert.Equal(t, 1990, u.BirthDate.Year())

	public, err := e.accounts.GetUserBySlug(ctx, u.Slug)
	require.NoError(t, err)
	assert.Equal(t, "alice", public.Username)

	_, err = e.accounts.GetUserBySlug(ctx, "missing")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return &buf
}

func TestUploadPhoto(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	u, err := e.accounts.UploadPhoto(ctx, res.User.ID, "me.png", pngOf(t, 200, 200))
	require.NoError(t, err)
	assert.Equal(t, "http://media.test/media/1", u.ImageURL)

	_, err = e.accounts.UploadPhoto(ctx, res.User.ID, "tiny.png", pngOf(t, 10, 10))
	assert.Equal(t, apperrors.KindInvalidMedia, apperrors.KindOf(err))

	_, err = e.accounts.UploadPhoto(ctx, res.User.ID, "notes.txt", bytes.NewBufferString("not an image"))
	assert.Equal(t, apperrors.KindInvalidMedia, apperrors.KindOf(err))
}

type fakeVerifier map[string]*ExternalIdentity

func (f fakeVerifier) VerifyIDToken(_ context.Context, token string) (*ExternalIdentity, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return nil, errors.New("bad token")
}

func TestFirebaseLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accounts.FirebaseLogin(ctx, models.FirebaseLoginRequest{IDToken: "x"})
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))

	existing := register(t, e, "alice")
	e.accounts.deps.Verifier = fakeVerifier{
		"alice-token": {UID: "fb-alice", Email: "alice@example.com", EmailVerified: true},
		"new-token":   {UID: "fb-new", Email: "Dana.Scully@example.com", Name: "Dana", EmailVerified: true},
	}

	_, err = e.accounts.FirebaseLogin(ctx, models.FirebaseLoginRequest{IDToken: "forged"})
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))

	linked, err := e.accounts.FirebaseLogin(ctx, models.FirebaseLoginRequest{IDToken: "alice-token"})
	require.NoError(t, err)
	assert.Equal(t, existing.User.ID, linked.User.ID)
	assert.True(t, linked.User.EmailVerified())

	again, err := e.accounts.FirebaseLogin(ctx, models.FirebaseLoginRequest{IDToken: "alice-token"})
	require.NoError(t, err)
	assert.Equal(t, existing.User.ID, again.User.ID)

	created, err := e.accounts.FirebaseLogin(ctx, models.FirebaseLoginRequest{IDToken: "new-token"})
	require.NoError(t, err)
	assert.NotEqual(t, existing.User.ID, created.User.ID)
	assert.Equal(t, "Dana", created.User.Name)
	assert.Regexp(t, `^danascully_\d{4}$`, created.User.Username)
	assert.Nil(t, created.User.Phone)
}

func TestConfirmUsernameChange_ConcurrentRedeem(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	require.NoError(t, e.accounts.RequestUsernameChange(ctx, res.User.ID, models.UsernameChangeRequest{Username: "alicia"}))
	code := e.pub.last(t, delivery.TemplateChangeCode).Payload["code"]

	got := concurrently(16, func() error {
		_, err := e.accounts.ConfirmUsernameChange(ctx, res.User.ID, models.ConfirmChangeRequest{Code: code})
		return err
	})
	assert.Equal(t, 1, got.ok)
	assert.Equal(t, map[apperrors.Kind]int{apperrors.KindValidation: 15}, got.kinds)

	done, err := e.store.UpdateRequests().CountCompletedSince(ctx, res.User.ID, models.UpdateUsername, time.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, done)
}

func TestResetPassword_ConcurrentRedeem(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "alice")

	require.NoError(t, e.accounts.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "alice@example.com"}))
	token := tokenFrom(t, e.pub.last(t, delivery.TemplatePasswordReset).Payload["link"])

	got := concurrently(8, func() error {
		return e.accounts.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: "raced-password"})
	})
	assert.Equal(t, 1, got.ok)
	assert.Equal(t, map[apperrors.Kind]int{apperrors.KindValidation: 7}, got.kinds)

	_, err := e.accounts.Login(ctx, models.LoginRequest{Login: "alice", Password: "raced-password"})
	assert.NoError(t, err)
}

func TestForgotPassword_ConcurrentOverLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	for i := 0; i < e.cfg.PasswordReset.Max; i++ {
		require.NoError(t, e.accounts.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "alice@example.com"}))
		token := tokenFrom(t, e.pub.last(t, delivery.TemplatePasswordReset).Payload["link"])
		require.NoError(t, e.accounts.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: "new-password"}))
	}
	before, err := e.store.UpdateRequests().GetLatestUpdateRequest(ctx, res.User.ID, models.UpdatePasswordReset)
	require.NoError(t, err)

	got := concurrently(8, func() error {
		return e.accounts.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "alice@example.com"})
	})
	assert.Zero(t, got.ok)
	assert.Equal(t, map[apperrors.Kind]int{apperrors.KindRateLimit: 8}, got.kinds)

	after, err := e.store.UpdateRequests().GetLatestUpdateRequest(ctx, res.User.ID, models.UpdatePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
}

func TestChangeCode_ExpiresAfterWrongGuesses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := register(t, e, "alice")

	guess := func(code string) error {
		_, err := e.accounts.ConfirmUsernameChange(ctx, res.User.ID, models.ConfirmChangeRequest{Code: code})
		return err
	}
	request := func(username string) (code, wrong string) {
		require.NoError(t, e.accounts.RequestUsernameChange(ctx, res.User.ID, models.UsernameChangeRequest{Username: username}))
		code = e.pub.last(t, delivery.TemplateChangeCode).Payload["code"]
		wrong = "000000"
		if code == wrong {
			wrong = "111111"
		}
		return code, wrong
	}

	code, wrong := request("alicia")
	for i := 0; i < e.cfg.CodeMaxAttempts; i++ {
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(guess(wrong)))
	}
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(guess(code)))
	u, err := e.accounts.GetProfile(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	code, wrong = request("alicia")
	for i := 0; i < e.cfg.CodeMaxAttempts-1; i++ {
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(guess(wrong)))
	}
	require.NoError(t, guess(code))
	u, err = e.accounts.GetProfile(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Username)
}
