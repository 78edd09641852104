package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/warbler/internal/cache"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/testutil"
)

func newSeeder(t *testing.T) (*Seeder, service.UserService, service.MessageService) {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	stats := cache.NewStatsCache(db, rdb, time.Minute, nil)
	users := service.NewUserService(userRepo, followRepo, service.NewBcryptHasher(4), stats, nil)
	rels := service.NewRelationshipService(followRepo, userRepo, stats, nil)
	messages := service.NewMessageService(repository.NewMessageRepository(db), repository.NewLikeRepository(db), followRepo, stats, nil)
	return NewSeeder(users, rels, messages), users, messages
}

func TestApplyFixture(t *testing.T) {
	f, err := ParseFile("testdata/fixture.yaml")
	require.NoError(t, err)

	s, users, messages := newSeeder(t)
	ctx := context.Background()
	res, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 3, Messages: 3, Follows: 3, Likes: 3}, res)

	alice, err := users.Authenticate(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, "Oxford", alice.Location)

	profile, err := users.Profile(ctx, "", alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, profile.Stats.Messages)
	assert.EqualValues(t, 2, profile.Stats.Followers)
	assert.EqualValues(t, 1, profile.Stats.Following)
	assert.EqualValues(t, 1, profile.Stats.Likes)

	msgs, err := messages.ListByUser(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	likes, err := messages.LikeCount(ctx, msgs[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, likes)

	// 再次导入时复用已有用户
	res, err = s.Apply(ctx, &Fixture{Users: f.Users})
	require.NoError(t, err)
	assert.Zero(t, res.Users)
}

func TestParseRejectsBadReferences(t *testing.T) {
	cases := map[string]string{
		"unknown author": `
users: [{username: a, email: a@x.io, password: pw1234}]
messages: [{author: b, text: hi}]`,
		"unknown like target": `
users: [{username: a, email: a@x.io, password: pw1234}]
likes: [{user: a, message: nope}]`,
		"duplicate user": `
users:
  - {username: a, email: a@x.io, password: pw1234}
  - {username: a, email: b@x.io, password: pw1234}`,
		"unknown field": `
users: [{username: a, email: a@x.io, password: pw1234, age: 3}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)
}
