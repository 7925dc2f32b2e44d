package inmemory

import (
	"context"
	"errors"
	"testing"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ repositories.Store = (*Store)(nil)

func newUser(t *testing.T, s *Store, username string) *models.User {
	t.Helper()
	u := &models.User{Slug: "slug-" + username, Name: username, Email: username + "@example.com", Username: username}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestStore_UserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	newUser(t, s, "alice")

	err := s.Users().CreateUser(ctx, &models.User{Slug: "other", Email: "alice@example.com", Username: "alice2"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	got, err := s.Users().GetUserByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "blue", got.Color)

	_, err = s.Users().GetUserBySlug(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	bob := newUser(t, s, "bob")

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repositories.Store) error {
		require.NoError(t, tx.Follows().CreateFollow(ctx, &models.Follow{FollowerID: alice.ID, FollowingID: bob.ID}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	following, err := s.Follows().IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestStore_TransactionRollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice")

	assert.Panics(t, func() {
		_ = s.Transaction(ctx, func(tx repositories.Store) error {
			_ = tx.Posts().CreatePost(ctx, &models.Post{Slug: "p1", UserID: alice.ID, Body: "hi"})
			panic("kaboom")
		})
	})

	_, err := s.Posts().GetPostBySlug(ctx, "p1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestStore_InjectFault(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	boom := errors.New("disk full")

	s.InjectFault("CreateNotification", boom)
	err := s.Notifications().CreateNotification(ctx, &models.Notification{RecipientID: alice.ID})
	assert.ErrorIs(t, err, boom)

	s.InjectFault("CreateNotification", nil)
	assert.NoError(t, s.Notifications().CreateNotification(ctx, &models.Notification{RecipientID: alice.ID}))
}

func TestStore_PostCountsAndPopularOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	bob := newUser(t, s, "bob")

	first := &models.Post{Slug: "first", UserID: alice.ID, Body: "one"}
	second := &models.Post{Slug: "second", UserID: alice.ID, Body: "two"}
	require.NoError(t, s.Posts().CreatePost(ctx, first))
	require.NoError(t, s.Posts().CreatePost(ctx, second))

	for _, u := range []*models.User{alice, bob} {
		require.NoError(t, s.Likes().CreateLike(ctx, &models.Like{UserID: u.ID, LikableType: models.LikablePost, LikableID: first.ID}))
	}
	require.NoError(t, s.Comments().CreateComment(ctx, &models.Comment{Slug: "c1", UserID: bob.ID, PostID: first.ID, Body: "nice"}))

	got, err := s.Posts().GetPostByID(ctx, first.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.LikesCount)
	assert.EqualValues(t, 1, got.CommentsCount)

	p, err := pagination.Paginate(ctx, s.Posts().ListPosts(models.PostFilter{Order: models.PostOrderPopular}), 10, 1)
	require.NoError(t, err)
	require.Len(t, p.Items, 2)
	assert.Equal(t, "first", p.Items[0].Slug)

	p, err = pagination.Paginate(ctx, s.Posts().ListPosts(models.PostFilter{Order: models.PostOrderNewest}), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "second", p.Items[0].Slug)

	p, err = pagination.Paginate(ctx, s.Posts().ListPosts(models.PostFilter{AuthorIDs: []uint{}}), 10, 1)
	require.NoError(t, err)
	assert.Empty(t, p.Items)
}

func TestStore_CompleteUpdateRequestOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice")

	req := &models.UpdateRequest{UserID: alice.ID, Kind: models.UpdateUsername, Code: "123456"}
	req.Expiration = req.CreatedAt.AddDate(3000, 0, 0)
	require.NoError(t, s.UpdateRequests().CreateUpdateRequest(ctx, req))

	now := req.CreatedAt
	require.NoError(t, s.UpdateRequests().CompleteUpdateRequest(ctx, req.ID, now))
	assert.ErrorIs(t, s.UpdateRequests().CompleteUpdateRequest(ctx, req.ID, now), repositories.ErrNotFound)

	n, err := s.UpdateRequests().CountCompletedSince(ctx, alice.ID, models.UpdateUsername, now.Add(-1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
