package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/cache"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/database"
)

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

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// 所有用户关注同一个“名人”并给他的一条消息点赞，测量写入与读取延迟
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	mustDo(model.AutoMigrate(db))

	N := envInt("N", 10000)
	CONC := envInt("CONC", 1)
	PAGE := envInt("PAGE", 50)

	// 事件走 Nop 发布器，只测队列开销
	dispatcher := service.NewEventDispatcher(service.NopPublisher{}, 100000, nil)
	stop := dispatcher.Start(8)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	relSvc := service.NewRelationshipService(followRepo, userRepo, nil, dispatcher)
	msgSvc := service.NewMessageService(messageRepo, likeRepo, followRepo, nil, dispatcher)

	ctx := context.Background()

	celebID := uuid.New().String()
	celeb := model.User{ID: celebID, Username: "celeb_" + celebID[:8], Email: celebID[:8] + "@celeb.example.com", Password: "p"}
	mustDo(db.Create(&celeb).Error)
	post := must(msgSvc.Create(ctx, celeb.ID, "hello from the top"))

	users := make([]model.User, N)
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		users[i] = model.User{ID: id, Username: "u" + id[:8], Email: id[:8] + "@example.com", Password: "p"}
	}
	mustDo(db.CreateInBatches(&users, 1000).Error)

	run := func(op func(i int) error) ([]time.Duration, time.Duration) {
		workers := CONC
		if workers > N {
			workers = N
		}
		feed := make(chan int, N)
		for i := 0; i < N; i++ {
			feed <- i
		}
		close(feed)
		out := make(chan time.Duration, N)
		done := make(chan struct{}, workers)
		t0 := time.Now()
		for w := 0; w < workers; w++ {
			go func() {
				for i := range feed {
					st := time.Now()
					if err := op(i); err != nil {
						fmt.Fprintln(os.Stderr, "op failed:", err)
					}
					out <- time.Since(st)
				}
				done <- struct{}{}
			}()
		}
		for w := 0; w < workers; w++ {
			<-done
		}
		total := time.Since(t0)
		close(out)
		recs := make([]time.Duration, 0, N)
		for d := range out {
			recs = append(recs, d)
		}
		return recs, total
	}

	maxQ := 0
	quitSample := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q := dispatcher.QueueLen(); q > maxQ {
					maxQ = q
				}
			case <-quitSample:
				return
			}
		}
	}()

	followRecs, followDur := run(func(i int) error { return relSvc.Follow(ctx, users[i].ID, celeb.ID) })
	likeRecs, likeDur := run(func(i int) error {
		_, err := msgSvc.ToggleLike(ctx, users[i].ID, post.ID)
		return err
	})
	close(quitSample)

	q0 := time.Now()
	_, _ = relSvc.ListFollowers(ctx, celeb.ID, 1, PAGE)
	followersDur := time.Since(q0)

	q1 := time.Now()
	likes, _ := msgSvc.LikeCount(ctx, post.ID)
	likeCountDur := time.Since(q1)

	drainStart := time.Now()
	_ = stop(context.Background())
	drainDur := time.Since(drainStart)

	// 计数缓存（不接 Redis，直接回源）应与仓储逐项计数一致
	stats := cache.NewStatsCache(db, nil, 0, nil)
	check := func(label, userID string, want cache.ProfileStats) {
		got := must(stats.Get(ctx, userID))
		status := "ok"
		if got != want {
			status = fmt.Sprintf("MISMATCH stats=%+v", got)
		}
		fmt.Printf("Stats check %s: %+v %s\n", label, want, status)
	}
	check("celeb", celeb.ID, cache.ProfileStats{
		Messages:  must(messageRepo.CountByUser(ctx, celeb.ID)),
		Following: must(followRepo.CountFollowings(ctx, celeb.ID)),
		Followers: must(followRepo.CountFollowers(ctx, celeb.ID)),
		Likes:     must(likeRepo.CountByUser(ctx, celeb.ID)),
	})
	fan := users[0].ID
	check("fan", fan, cache.ProfileStats{
		Messages:  must(messageRepo.CountByUser(ctx, fan)),
		Following: must(followRepo.CountFollowings(ctx, fan)),
		Followers: must(followRepo.CountFollowers(ctx, fan)),
		Likes:     must(likeRepo.CountByUser(ctx, fan)),
	})
	totalUsers := must(userRepo.Count(ctx))

	fmt.Printf("N=%d, CONC=%d, PAGE=%d, users in db=%d\n", N, CONC, PAGE, totalUsers)
	fmt.Printf("Follow latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		followDur, followDur/time.Duration(N), pct(followRecs, 0.50), pct(followRecs, 0.95), pct(followRecs, 0.99))
	fmt.Printf("Like latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		likeDur, likeDur/time.Duration(N), pct(likeRecs, 0.50), pct(likeRecs, 0.95), pct(likeRecs, 0.99))
	fmt.Printf("Query followers(%d) latency: %v\n", PAGE, followersDur)
	fmt.Printf("Like count (%d) latency: %v\n", likes, likeCountDur)
	fmt.Printf("Event queue: max=%d, drain=%v\n", maxQ, drainDur)
}
