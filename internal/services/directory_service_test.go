package services

import (
	"context"
	"testing"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slugs(users []models.UserCompact) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Slug
	}
	return out
}

func TestSuggestions_ExcludeSelfAndFollowed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	carol := e.user(t, "carol")

	got, err := e.dir.Suggestions(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bob.Slug, carol.Slug}, slugs(got))

	require.NoError(t, e.graph.Follow(ctx, alice.ID, bob.Slug))

	got, err = e.dir.Suggestions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{carol.Slug}, slugs(got))

	require.NoError(t, e.graph.Unfollow(ctx, alice.ID, bob.Slug))
	got, err = e.dir.Suggestions(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bob.Slug, carol.Slug}, slugs(got))
}

func TestSuggestions_Cached(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	e.user(t, "bob")

	first, err := e.dir.Suggestions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	e.user(t, "carol")
	cached, err := e.dir.Suggestions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, slugs(first), slugs(cached))

	e.dir.ForgetSuggestions(ctx, alice.ID)
	fresh, err := e.dir.Suggestions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestSearchAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "alice")
	e.user(t, "alfred")
	e.user(t, "bob")

	_, err := e.dir.Search(ctx, "   ", 10, 1)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	found, err := e.dir.Search(ctx, "al", 10, 1)
	require.NoError(t, err)
	assert.Len(t, found.Items, 2)

	all, err := e.dir.ListUsers(ctx, 2, 1)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.True(t, all.HasMore)
}
