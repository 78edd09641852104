package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/testutil"
)

func TestStatsCache_GetCachesAndInvalidates(t *testing.T) {
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	m := testutil.CreateMessage(t, db, alice.ID, "hello")
	testutil.CreateMessage(t, db, alice.ID, "again")
	require.NoError(t, db.Create(&model.Follow{ID: "f1", FollowerID: alice.ID, FolloweeID: bob.ID}).Error)
	require.NoError(t, db.Create(&model.Like{ID: "l1", UserID: bob.ID, MessageID: m.ID}).Error)

	s := NewStatsCache(db, rdb, time.Minute, nil)

	st, err := s.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ProfileStats{Messages: 2, Following: 1, Followers: 0, Likes: 0}, st)

	st, err = s.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Messages)
	c := s.Counters()
	assert.EqualValues(t, 1, c.Hits)
	assert.EqualValues(t, 1, c.Misses)
	assert.EqualValues(t, 1, c.DBLoads)

	// 缓存未失效前读到旧值
	testutil.CreateMessage(t, db, alice.ID, "third")
	st, _ = s.Get(ctx, alice.ID)
	assert.EqualValues(t, 2, st.Messages)

	s.Invalidate(ctx, alice.ID, "")
	st, err = s.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Messages)

	st, err = s.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, ProfileStats{Messages: 0, Following: 0, Followers: 1, Likes: 1}, st)
}

func TestStatsCache_Flush(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	s := NewStatsCache(db, rdb, time.Minute, nil)

	_, err := s.Get(ctx, alice.ID)
	require.NoError(t, err)
	_, err = s.Get(ctx, bob.ID)
	require.NoError(t, err)
	require.NoError(t, mr.Set("session:keep", "1"))

	assert.True(t, mr.Exists(statsKey(alice.ID)))
	require.NoError(t, s.Flush(ctx))
	assert.False(t, mr.Exists(statsKey(alice.ID)))
	assert.False(t, mr.Exists(statsKey(bob.ID)))
	assert.True(t, mr.Exists("session:keep"))
}

func TestStatsCache_TTLExpiry(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	s := NewStatsCache(db, rdb, time.Minute, nil)

	_, err := s.Get(ctx, alice.ID)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.Counters().DBLoads)
}

func TestStatsCache_FallsBackWhenRedisDown(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateMessage(t, db, alice.ID, "hi")
	s := NewStatsCache(db, rdb, time.Minute, nil)

	mr.Close()
	st, err := s.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Messages)
}

func TestStatsCache_NilRedis(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	s := NewStatsCache(db, nil, 0, nil)

	st, err := s.Get(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ProfileStats{}, st)
	s.Invalidate(context.Background(), alice.ID)
	assert.NoError(t, s.Flush(context.Background()))
}
