package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/internal/cache"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/internal/testutil"
)

// recordingPublisher 收集已发布事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	db            *gorm.DB
	stats         *cache.StatsCache
	publisher     *recordingPublisher
	users         UserService
	relationships RelationshipService
	messages      MessageService
	stop          func(context.Context) error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	stats := cache.NewStatsCache(db, rdb, time.Minute, nil)
	pub := &recordingPublisher{}
	dispatcher := NewEventDispatcher(pub, 100, nil)
	stop := dispatcher.Start(1)
	t.Cleanup(func() { _ = stop(context.Background()) })

	return &testEnv{
		db:            db,
		stats:         stats,
		publisher:     pub,
		users:         NewUserService(userRepo, followRepo, NewBcryptHasher(4), stats, dispatcher),
		relationships: NewRelationshipService(followRepo, userRepo, stats, dispatcher),
		messages:      NewMessageService(messageRepo, likeRepo, followRepo, stats, dispatcher),
		stop:          stop,
	}
}

// flushEvents 停止 dispatcher，保证已入队事件全部发布
func (e *testEnv) flushEvents(t *testing.T) []EventType {
	t.Helper()
	if err := e.stop(context.Background()); err != nil {
		t.Fatalf("stop dispatcher: %v", err)
	}
	return e.publisher.types()
}
