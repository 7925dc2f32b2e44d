package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/nano-social/backend/internal/auth"
	"github.com/anonto42/nano-social/backend/internal/cache"
	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/internal/media"
	"github.com/anonto42/nano-social/backend/internal/repositories/inmemory"
	"github.com/anonto42/nano-social/backend/internal/services"
	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type inline struct{}

func (inline) Go(job func(ctx context.Context)) bool {
	job(context.Background())
	return true
}

type outbox struct {
	mu   sync.Mutex
	msgs []delivery.Message
}

func (o *outbox) Publish(_ context.Context, msg delivery.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) Close() error { return nil }

func (o *outbox) link(t *testing.T, to string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].To == to && o.msgs[i].Template == delivery.TemplateVerifyEmail {
			return o.msgs[i].Payload["link"]
		}
	}
	t.Fatalf("no verification mail for %s", to)
	return ""
}

type envelope struct {
	Status     int             `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Items      json.RawMessage `json:"items"`
	HasMore    bool            `json:"has_more"`
	NextOffset *int            `json:"next_offset"`
}

type server struct {
	e      *echo.Echo
	outbox *outbox
	phones int
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := zap.NewNop()
	store := inmemory.New()
	kv := cache.NewMemory()
	photos := media.NewMemory("http://api.test")
	cfg := services.DefaultConfig()
	ob := &outbox{}

	tokens := auth.NewTokens("router-secret", time.Hour, kv)
	hub := delivery.NewHub(logger)
	notifications := services.NewNotificationService(store, hub, ob, inline{}, cfg, logger)
	directory := services.NewDirectoryService(store, kv, cfg, logger)
	graph := services.NewGraphService(store, notifications, directory, cfg, logger)
	accounts := services.NewAccountService(services.AccountDeps{
		Store:         store,
		Tokens:        tokens,
		Hasher:        auth.NewHasher(4),
		Cache:         kv,
		Photos:        photos,
		Notifications: notifications,
	}, cfg, logger)

	e := echo.New()
	config.SetupMiddleware(e, logger)
	SetupRoutes(e, Deps{
		Accounts:      accounts,
		Directory:     directory,
		Graph:         graph,
		Notifications: notifications,
		Tokens:        tokens,
		Hub:           hub,
		Media:         photos,
		RateLimit:     config.RateLimitConfig{Enabled: false},
		Logger:        logger,
	})
	return &server{e: e, outbox: ob}
}

func (s *server) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

type session struct {
	Token string `json:"token"`
	User  struct {
		Slug     string `json:"slug"`
		Username string `json:"username"`
	} `json:"user"`
}

// signup registers and verifies username, returning a verified session.
func (s *server) signup(t *testing.T, username string) session {
	t.Helper()
	s.phones++
	email := username + "@example.com"
	rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     strings.ToUpper(username[:1]) + username[1:],
		"email":    email,
		"username": username,
		"phone":    fmt.Sprintf("+1555%07d", s.phones),
		"gender":   "female",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	u, err := url.Parse(s.outbox.link(t, email))
	require.NoError(t, err)
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/verify", "", map[string]string{"token": u.Query().Get("token")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sess session
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	require.NotEmpty(t, sess.Token)
	return sess
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, env.Status)
	assert.NotEmpty(t, env.Message)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/feed", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnverifiedUserCannotPost(t *testing.T) {
	s := newServer(t)
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Carol",
		"email":    "carol@example.com",
		"username": "carol",
		"phone":    "+15550009999",
		"gender":   "female",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess session
	require.NoError(t, json.Unmarshal(env.Data, &sess))

	rec, _ = s.do(t, http.MethodPost, "/api/v1/posts", sess.Token, map[string]string{"body": "hello"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Reads stay open.
	rec, _ = s.do(t, http.MethodGet, "/api/v1/posts", sess.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newServer(t)
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":  "Dan",
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Message, "email")
}

func TestPostLifecycle(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	rec, env := s.do(t, http.MethodPost, "/api/v1/posts", alice.Token, map[string]string{"body": "hello @bob"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post struct {
		Slug string `json:"slug"`
		Body string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.Equal(t, "hello @bob", post.Body)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/posts", alice.Token, map[string]string{"body": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(t, http.MethodPut, "/api/v1/posts/"+post.Slug, bob.Token, map[string]string{"body": "hijack"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/posts/"+post.Slug+"/like", bob.Token, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/posts/"+post.Slug+"/like", bob.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/posts/"+post.Slug+"/comments", bob.Token, map[string]string{"body": "nice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = s.do(t, http.MethodGet, "/api/v1/posts/"+post.Slug+"/comments", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []struct {
		ID   uint   `json:"id"`
		Body string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(env.Items, &comments))
	require.Len(t, comments, 1)
	assert.False(t, env.HasMore)
	assert.Nil(t, env.NextOffset)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/comments/abc/like", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/posts/"+post.Slug, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		LikesCount    int64 `json:"likes_count"`
		CommentsCount int64 `json:"comments_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(1), got.LikesCount)
	assert.Equal(t, int64(1), got.CommentsCount)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/posts/"+post.Slug, alice.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/posts/"+post.Slug, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFollowFeedAndNotifications(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	rec, _ := s.do(t, http.MethodPost, "/api/v1/users/"+alice.User.Slug+"/follow", bob.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = s.do(t, http.MethodPost, "/api/v1/users/"+bob.User.Slug+"/follow", bob.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	for i := 0; i < 3; i++ {
		rec, _ = s.do(t, http.MethodPost, "/api/v1/posts", alice.Token, map[string]string{"body": "post"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := s.do(t, http.MethodGet, "/api/v1/feed?page_size=2", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Items, &items))
	assert.Len(t, items, 2)
	assert.True(t, env.HasMore)
	require.NotNil(t, env.NextOffset)
	assert.Equal(t, 2, *env.NextOffset)

	rec, env = s.do(t, http.MethodGet, "/api/v1/feed?page_size=2&offset=2", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Items, &items))
	assert.Len(t, items, 1)
	assert.False(t, env.HasMore)

	rec, env = s.do(t, http.MethodGet, "/api/v1/users/"+alice.User.Slug+"/followers", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Items), bob.User.Slug)

	rec, env = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_count":1}`, string(env.Data))

	rec, env = s.do(t, http.MethodGet, "/api/v1/notifications", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []struct {
		ID     uint   `json:"id"`
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(env.Items, &notes))
	require.Len(t, notes, 1)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/notifications/peek", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, env = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", alice.Token, nil)
	assert.JSONEq(t, `{"unread_count":0}`, string(env.Data))

	rec, _ = s.do(t, http.MethodPost, "/api/v1/notifications/"+itoa(notes[0].ID)+"/read", bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/notifications/"+itoa(notes[0].ID)+"/read", alice.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/users/"+alice.User.Slug+"/follow", bob.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/v1/users/"+alice.User.Slug+"/follow", bob.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")

	rec, _ := s.do(t, http.MethodGet, "/api/v1/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/profile", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPhotoUploadAndServe(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 200, 200))))
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("photo", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/photo", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+alice.Token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var user struct {
		ImageURL string `json:"image_url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	require.True(t, strings.HasPrefix(user.ImageURL, "http://api.test/media/"), user.ImageURL)

	rec2, _ := s.do(t, http.MethodGet, strings.TrimPrefix(user.ImageURL, "http://api.test"), "", nil)
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "image/png", rec2.Header().Get(echo.HeaderContentType))
	assert.Equal(t, img.Bytes(), rec2.Body.Bytes())

	rec2, _ = s.do(t, http.MethodGet, "/media/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec2.Code)
}

func TestSettings(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")

	rec, env := s.do(t, http.MethodPut, "/api/v1/settings/color", alice.Token, map[string]string{"color": "green"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"color":"green"`)

	rec, _ = s.do(t, http.MethodPut, "/api/v1/settings/color", alice.Token, map[string]string{"color": "beige"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = s.do(t, http.MethodPut, "/api/v1/settings/dark-mode", alice.Token, map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"dark_mode":true`)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/settings/username/confirm", alice.Token, map[string]string{"code": "123456"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func itoa(n uint) string { return fmt.Sprint(n) }
