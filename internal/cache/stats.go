package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/internal/metrics"
	"github.com/d60-Lab/warbler/pkg/logger"
)

const statsKeyPrefix = "stats:user:"

// ProfileStats 个人主页上展示的计数
type ProfileStats struct {
	Messages  int64 `json:"messages"`
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
	Likes     int64 `json:"likes"`
}

// StatsCache 以 cache-aside 方式缓存用户计数。写路径负责 Invalidate，
// TTL 兜底。Redis 不可用时直接回源数据库。
type StatsCache struct {
	db      *gorm.DB
	cache   *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics

	hits   atomic.Int64
	misses atomic.Int64
	loads  atomic.Int64
}

func NewStatsCache(db *gorm.DB, cache *redis.Client, ttl time.Duration, m *metrics.Metrics) *StatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsCache{db: db, cache: cache, ttl: ttl, metrics: m}
}

func statsKey(userID string) string { return statsKeyPrefix + userID }

func (s *StatsCache) Get(ctx context.Context, userID string) (ProfileStats, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, statsKey(userID)).Bytes()
		switch {
		case err == nil:
			var out ProfileStats
			if uErr := json.Unmarshal(data, &out); uErr == nil {
				s.hits.Add(1)
				s.metrics.RecordCache("stats", "hit")
				return out, nil
			}
		case errors.Is(err, redis.Nil):
		default:
			s.metrics.RecordCache("stats", "error")
			logger.Warn("stats cache get failed", zap.String("user", userID), zap.Error(err))
		}
	}
	s.misses.Add(1)
	s.metrics.RecordCache("stats", "miss")

	stats, err := s.load(ctx, userID)
	if err != nil {
		return ProfileStats{}, err
	}
	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			_ = s.cache.Set(ctx, statsKey(userID), payload, s.ttl).Err()
		}
	}
	return stats, nil
}

// Invalidate 删除给定用户的计数缓存，空 id 忽略
func (s *StatsCache) Invalidate(ctx context.Context, userIDs ...string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			keys = append(keys, statsKey(id))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("stats cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Flush 清空所有计数缓存（删除用户时使用，受影响的用户难以精确枚举）
func (s *StatsCache) Flush(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	iter := s.cache.Scan(ctx, 0, statsKeyPrefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.cache.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.cache.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *StatsCache) load(ctx context.Context, userID string) (ProfileStats, error) {
	s.loads.Add(1)

	var out ProfileStats
	err := s.db.WithContext(ctx).Raw(`SELECT
		(SELECT COUNT(*) FROM messages WHERE user_id = ?) AS messages,
		(SELECT COUNT(*) FROM follows WHERE follower_id = ?) AS following,
		(SELECT COUNT(*) FROM follows WHERE followee_id = ?) AS followers,
		(SELECT COUNT(*) FROM likes WHERE user_id = ?) AS likes`,
		userID, userID, userID, userID).Scan(&out).Error
	if err != nil {
		return ProfileStats{}, fmt.Errorf("load stats for %s: %w", userID, err)
	}
	return out, nil
}

// ResetCounters clears recorded counters.
func (s *StatsCache) ResetCounters() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.loads.Store(0)
}

// Counters reports cache hits, misses and how many times the database was queried.
func (s *StatsCache) Counters() StatsCounters {
	return StatsCounters{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		DBLoads: s.loads.Load(),
	}
}

type StatsCounters struct {
	Hits    int64
	Misses  int64
	DBLoads int64
}
