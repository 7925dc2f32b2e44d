package pagination

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thirtyFive() []int {
	items := make([]int, 35)
	for i := range items {
		items[i] = 35 - i // newest first
	}
	return items
}

func TestPaginate_ThirtyFiveItems(t *testing.T) {
	ctx := context.Background()
	q := SliceQuery(thirtyFive())

	first, err := Paginate(ctx, q, 20, 1)
	require.NoError(t, err)
	assert.Len(t, first.Items, 20)
	assert.True(t, first.HasMore)
	require.NotNil(t, first.NextOffset)
	assert.Equal(t, 2, *first.NextOffset)
	assert.Equal(t, 35, first.Items[0])

	second, err := Paginate(ctx, q, 20, 2)
	require.NoError(t, err)
	assert.Len(t, second.Items, 15)
	assert.False(t, second.HasMore)
	assert.Nil(t, second.NextOffset)
	assert.Equal(t, 15, second.Items[0])
	assert.Equal(t, 1, second.Items[14])

	third, err := Paginate(ctx, q, 20, 3)
	require.NoError(t, err)
	assert.Empty(t, third.Items)
	assert.NotNil(t, third.Items)
	assert.False(t, third.HasMore)
	assert.Nil(t, third.NextOffset)
}

func TestPaginate_ExactPageBoundary(t *testing.T) {
	q := SliceQuery(make([]int, 20))
	page, err := Paginate(context.Background(), q, 20, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 20)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextOffset)
}

func TestPaginate_NormalizesInput(t *testing.T) {
	var gotOffset, gotLimit int
	q := QueryFunc[int](func(_ context.Context, offset, limit int) ([]int, error) {
		gotOffset, gotLimit = offset, limit
		return nil, nil
	})

	_, err := Paginate[int](context.Background(), q, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, gotOffset)
	assert.Equal(t, DefaultPageSize+1, gotLimit)

	_, err = Paginate[int](context.Background(), q, 1000, 2)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, gotOffset)
	assert.Equal(t, MaxPageSize+1, gotLimit)
}

func TestPaginate_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	q := QueryFunc[int](func(context.Context, int, int) ([]int, error) { return nil, boom })
	_, err := Paginate[int](context.Background(), q, 10, 1)
	assert.ErrorIs(t, err, boom)
}

func TestMap(t *testing.T) {
	next := 2
	p := Page[int]{Items: []int{1, 2}, HasMore: true, NextOffset: &next}
	out := Map(p, func(i int) string { return string(rune('a' + i)) })
	assert.Equal(t, []string{"b", "c"}, out.Items)
	assert.True(t, out.HasMore)
	assert.Equal(t, &next, out.NextOffset)
}
