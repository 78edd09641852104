package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/cache"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/pkg/database"
)

// 个人主页计数：直接查库 vs cache-aside，读写混合（写会 Invalidate）
func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	mustDo(model.AutoMigrate(db))

	userCount := envInt("USERS", 5000)
	requests := envInt("REQUESTS", 20000)
	writePct := envInt("WRITE_PCT", 5)

	fmt.Println("Setting up test data...")
	ids := seed(db, userCount)
	fmt.Printf("Test data ready: %d users\n", len(ids))

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err))
	}

	reqs := makeRequests(ids, requests, writePct)

	noCache := runScenario(ctx, cache.NewStatsCache(db, nil, 10*time.Minute, nil), reqs, client)
	cached := runScenario(ctx, cache.NewStatsCache(db, client, 10*time.Minute, nil), reqs, client)

	fmt.Printf("\nProfile stats latency (%d req, %d users, %d%% writes)\n", requests, userCount, writePct)
	for _, r := range []struct {
		name string
		res  scenarioResult
	}{{"No cache", noCache}, {"Cache-aside", cached}} {
		fmt.Printf("%-12s avg=%v p95=%v p99=%v hits=%d misses=%d db_loads=%d cache_keys=%d mem=%s\n",
			r.name, avg(r.res.durations), pct(r.res.durations, 0.95), pct(r.res.durations, 0.99),
			r.res.counters.Hits, r.res.counters.Misses, r.res.counters.DBLoads,
			r.res.cacheKeys, formatBytes(r.res.memoryBytes),
		)
	}
}

type request struct {
	userID string
	write  bool
}

type scenarioResult struct {
	durations   []time.Duration
	counters    cache.StatsCounters
	cacheKeys   int
	memoryBytes int64
}

// seed 批量写入用户、消息、关注；关注目标偏向前 1% 的用户
func seed(db *gorm.DB, n int) []string {
	ids := make([]string, n)
	users := make([]model.User, n)
	for i := range users {
		id := uuid.NewString()
		ids[i] = id
		users[i] = model.User{ID: id, Username: "bench_" + id[:12], Email: id[:12] + "@bench.example.com", Password: "p"}
	}
	mustDo(db.CreateInBatches(&users, 1000).Error)

	rnd := rand.New(rand.NewSource(42))
	base := time.Now()
	msgs := make([]model.Message, 0, n*3)
	for i, id := range ids {
		for j := 0; j < 1+rnd.Intn(5); j++ {
			msgs = append(msgs, model.Message{
				ID:        uuid.NewString(),
				UserID:    id,
				Text:      fmt.Sprintf("message %d from %d", j, i),
				Timestamp: base.Add(-time.Duration(len(msgs)) * time.Second),
			})
		}
	}
	mustDo(db.CreateInBatches(&msgs, 1000).Error)

	hot := n / 100
	if hot < 1 {
		hot = 1
	}
	seen := make(map[[2]int]bool)
	follows := make([]model.Follow, 0, n*5)
	for i := range ids {
		for j := 0; j < 5; j++ {
			target := rnd.Intn(hot)
			if rnd.Intn(4) == 0 {
				target = rnd.Intn(n)
			}
			if target == i || seen[[2]int{i, target}] {
				continue
			}
			seen[[2]int{i, target}] = true
			follows = append(follows, model.Follow{ID: uuid.NewString(), FollowerID: ids[i], FolloweeID: ids[target], CreatedAt: base})
		}
	}
	mustDo(db.CreateInBatches(&follows, 1000).Error)
	return ids
}

// makeRequests 80% 的读集中在 20% 的用户上
func makeRequests(ids []string, n, writePct int) []request {
	rnd := rand.New(rand.NewSource(7))
	hot := len(ids) / 5
	if hot < 1 {
		hot = 1
	}
	out := make([]request, n)
	for i := range out {
		idx := rnd.Intn(len(ids))
		if rnd.Float64() < 0.8 {
			idx = rnd.Intn(hot)
		}
		out[i] = request{userID: ids[idx], write: rnd.Intn(100) < writePct}
	}
	return out
}

func runScenario(ctx context.Context, stats *cache.StatsCache, reqs []request, client *redis.Client) scenarioResult {
	mustDo(stats.Flush(ctx))
	stats.ResetCounters()

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		if r.write {
			// 写路径只做失效，模拟关注 / 发消息之后的行为
			stats.Invalidate(ctx, r.userID)
		} else if _, err := stats.Get(ctx, r.userID); err != nil {
			panic(err)
		}
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	var keyCount int
	iter := client.Scan(ctx, 0, "stats:user:*", 1000).Iterator()
	for iter.Next(ctx) {
		keyCount++
	}
	var memBytes int64
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		memBytes = parseRedisMemory(info)
	}
	return scenarioResult{
		durations:   out,
		counters:    stats.Counters(),
		cacheKeys:   keyCount,
		memoryBytes: memBytes,
	}
}

// parseRedisMemory 从 INFO memory 里取 used_memory
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
