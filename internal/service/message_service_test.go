package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/testutil"
)

func usernames(users []*model.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Username
	}
	return out
}

func TestMessageService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")

	m, err := env.messages.Create(ctx, alice.ID, "  Hello  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello", m.Text)
	assert.False(t, m.Timestamp.IsZero())

	_, err = env.messages.Create(ctx, alice.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = env.messages.Create(ctx, alice.ID, strings.Repeat("x", 141))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = env.messages.Create(ctx, alice.ID, strings.Repeat("é", 140))
	assert.NoError(t, err)

	_, err = env.messages.Create(ctx, "missing", "orphan")
	assert.ErrorIs(t, err, ErrUserNotFound)

	got, err := env.messages.Get(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "alice", got.User.Username)

	_, err = env.messages.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageService_DeleteOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	m := testutil.CreateMessage(t, env.db, alice.ID, "mine")

	assert.ErrorIs(t, env.messages.Delete(ctx, bob.ID, m.ID), ErrForbidden)
	_, err := env.messages.Get(ctx, m.ID)
	require.NoError(t, err)

	_, err = env.messages.ToggleLike(ctx, bob.ID, m.ID)
	require.NoError(t, err)
	st, err := env.stats.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Likes)

	require.NoError(t, env.messages.Delete(ctx, alice.ID, m.ID))
	_, err = env.messages.Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	// 点赞者的计数随消息删除刷新
	st, err = env.stats.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, st.Likes)

	assert.ErrorIs(t, env.messages.Delete(ctx, alice.ID, m.ID), ErrMessageNotFound)
}

func TestMessageService_ToggleLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	m := testutil.CreateMessage(t, env.db, alice.ID, "like me")

	liked, err := env.messages.ToggleLike(ctx, bob.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	var cnt int64
	require.NoError(t, env.db.Model(&model.Like{}).Where("user_id = ? AND message_id = ?", bob.ID, m.ID).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt)

	ids, err := env.messages.LikedIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, ids[m.ID])

	liked, err = env.messages.ToggleLike(ctx, bob.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	n, err := env.messages.LikeCount(ctx, m.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	_, err = env.messages.ToggleLike(ctx, alice.ID, m.ID)
	assert.ErrorIs(t, err, ErrLikeOwnMessage)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.messages.ToggleLike(ctx, bob.ID, "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	assert.Equal(t, []EventType{EventMessageLiked, EventMessageUnliked}, env.flushEvents(t))
}

func TestMessageService_ToggleLikeUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")
	m := testutil.CreateMessage(t, env.db, alice.ID, "like me")

	_, err := env.messages.ToggleLike(ctx, "ghost", m.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NotErrorIs(t, err, ErrMessageNotFound)

	n, err := env.messages.LikeCount(ctx, m.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestMessageService_HomeTimeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	carol := testutil.CreateUser(t, env.db, "carol")

	testutil.CreateMessage(t, env.db, alice.ID, "alice 1")
	testutil.CreateMessage(t, env.db, bob.ID, "bob 1")
	testutil.CreateMessage(t, env.db, carol.ID, "carol 1")
	testutil.CreateMessage(t, env.db, bob.ID, "bob 2")
	require.NoError(t, env.relationships.Follow(ctx, alice.ID, bob.ID))

	tl, err := env.messages.HomeTimeline(ctx, alice.ID, 0)
	require.NoError(t, err)
	texts := make([]string, len(tl))
	for i, m := range tl {
		texts[i] = m.Text
	}
	assert.Equal(t, []string{"bob 2", "bob 1", "alice 1"}, texts)
}

func TestMessageService_HomeTimelineLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")
	for i := 0; i < HomeTimelineLimit+5; i++ {
		testutil.CreateMessage(t, env.db, alice.ID, fmt.Sprintf("m%d", i))
	}

	tl, err := env.messages.HomeTimeline(ctx, alice.ID, 0)
	require.NoError(t, err)
	assert.Len(t, tl, HomeTimelineLimit)
	assert.Equal(t, fmt.Sprintf("m%d", HomeTimelineLimit+4), tl[0].Text)

	mine, err := env.messages.ListByUser(ctx, alice.ID, 5)
	require.NoError(t, err)
	assert.Len(t, mine, 5)
}

func TestMessageService_ListLiked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	m1 := testutil.CreateMessage(t, env.db, alice.ID, "first")
	testutil.CreateMessage(t, env.db, alice.ID, "second")

	_, err := env.messages.ToggleLike(ctx, bob.ID, m1.ID)
	require.NoError(t, err)

	liked, err := env.messages.ListLiked(ctx, bob.ID, 0)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, "first", liked[0].Text)
}
