package services

import (
	"context"
	"testing"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications_PeekAndUnreadCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	carol := e.user(t, "carol")

	require.NoError(t, e.graph.Follow(ctx, bob.ID, alice.Slug))
	require.NoError(t, e.graph.Follow(ctx, carol.ID, alice.Slug))

	n, err := e.notes.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	peeked, err := e.notes.Peek(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, peeked)

	peeked, err = e.notes.Peek(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, peeked)

	n, err = e.notes.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, note := range e.notifications(t, alice.ID) {
		assert.NotNil(t, note.PeekedAt)
		assert.Nil(t, note.ReadAt)
	}
}

func TestNotifications_MarkRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")

	require.NoError(t, e.graph.Follow(ctx, bob.ID, alice.Slug))
	notes := e.notifications(t, alice.ID)
	require.Len(t, notes, 1)

	err := e.notes.MarkRead(ctx, bob.ID, notes[0].ID)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))

	err = e.notes.MarkRead(ctx, alice.ID, 9999)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	require.NoError(t, e.notes.MarkRead(ctx, alice.ID, notes[0].ID))
	notes = e.notifications(t, alice.ID)
	require.NotNil(t, notes[0].ReadAt)
	assert.Nil(t, notes[0].PeekedAt)
}

func TestNotifications_MarkAllRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	p := post(t, e, alice, "post")

	require.NoError(t, e.graph.Follow(ctx, bob.ID, alice.Slug))
	require.NoError(t, e.graph.LikePost(ctx, bob.ID, p.Slug))

	n, err := e.notes.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = e.notes.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotifications_DispatchPublishesDeliveryMessage(t *testing.T) {
	e := newEnv(t)
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	p := post(t, e, alice, "post")

	require.NoError(t, e.graph.LikePost(context.Background(), bob.ID, p.Slug))

	msg := e.pub.last(t, delivery.TemplateNotification)
	assert.Equal(t, alice.ID, msg.RecipientID)
	assert.Equal(t, "bob liked your post", msg.Payload["body"])
	assert.Equal(t, "/posts/"+p.Slug, msg.Payload["target_path"])
	assert.Equal(t, delivery.ChannelPush, msg.Template.Channel())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		action models.NotificationAction
		want   string
	}{
		{models.ActionFollowed, "bob started following you"},
		{models.ActionLikedPost, "bob liked your post"},
		{models.ActionLikedComment, "bob liked your comment"},
		{models.ActionMentionedOnPost, "bob mentioned you in a post"},
		{models.ActionMentionedOnComment, "bob mentioned you in a comment"},
		{models.ActionCommentedOnPost, "bob commented on your post"},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(models.Notification{Action: tt.action, ActorName: "bob"}))
		})
	}
}
