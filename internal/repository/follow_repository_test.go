package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/warbler/internal/testutil"
)

func TestFollowRepository_Directional(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	require.NoError(t, repo.Create(ctx, a.ID, b.ID))

	ok, err := repo.Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	n, _ := repo.CountFollowers(ctx, b.ID)
	assert.EqualValues(t, 1, n)
	n, _ = repo.CountFollowings(ctx, a.ID)
	assert.EqualValues(t, 1, n)
	n, _ = repo.CountFollowers(ctx, a.ID)
	assert.EqualValues(t, 0, n)
	n, _ = repo.CountFollowings(ctx, b.ID)
	assert.EqualValues(t, 0, n)

	following, err := repo.FollowingUsers(ctx, a.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "bob", following[0].Username)
	assert.Equal(t, b.ID, following[0].ID)

	followers, err := repo.FollowerUsers(ctx, b.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].ID)

	ids, err := repo.FollowingIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)
}

func TestFollowRepository_IdempotentCreateAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	require.NoError(t, repo.Create(ctx, a.ID, b.ID))
	require.NoError(t, repo.Create(ctx, a.ID, b.ID))
	n, _ := repo.CountFollowers(ctx, b.ID)
	assert.EqualValues(t, 1, n)

	following, err := repo.CountFollowings(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, following)

	require.NoError(t, repo.Delete(ctx, a.ID, b.ID))
	require.NoError(t, repo.Delete(ctx, a.ID, b.ID))
	n, _ = repo.CountFollowers(ctx, b.ID)
	assert.EqualValues(t, 0, n)
}
