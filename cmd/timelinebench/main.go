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

// 拉模式首页时间线：读者关注 AUTHORS 个作者，每人 POSTS 条消息
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	mustDo(model.AutoMigrate(db))

	AUTHORS := envInt("AUTHORS", 500)
	POSTS := envInt("POSTS", 200)
	READS := envInt("READS", 200)
	LIMIT := envInt("LIMIT", service.HomeTimelineLimit)

	followRepo := repository.NewFollowRepository(db)
	msgSvc := service.NewMessageService(
		repository.NewMessageRepository(db),
		repository.NewLikeRepository(db),
		followRepo,
		nil,
		nil,
	)
	ctx := context.Background()

	readerID := uuid.New().String()
	reader := model.User{ID: readerID, Username: "reader_" + readerID[:8], Email: readerID[:8] + "@reader.example.com", Password: "p"}
	mustDo(db.Create(&reader).Error)

	authors := make([]model.User, AUTHORS)
	for i := range authors {
		id := uuid.New().String()
		authors[i] = model.User{ID: id, Username: "a" + id[:8], Email: id[:8] + "@example.com", Password: "p"}
	}
	mustDo(db.CreateInBatches(&authors, 1000).Error)
	for i := range authors {
		mustDo(followRepo.Create(ctx, reader.ID, authors[i].ID))
	}

	base := time.Now().Add(-time.Duration(AUTHORS*POSTS) * time.Second)
	st := time.Now()
	msgs := make([]model.Message, 0, 1000)
	n := 0
	for p := 0; p < POSTS; p++ {
		for a := range authors {
			msgs = append(msgs, model.Message{
				ID:        uuid.New().String(),
				UserID:    authors[a].ID,
				Text:      fmt.Sprintf("post %d", p),
				Timestamp: base.Add(time.Duration(n) * time.Second),
			})
			n++
			if len(msgs) == cap(msgs) {
				mustDo(db.Create(&msgs).Error)
				msgs = msgs[:0]
			}
		}
	}
	if len(msgs) > 0 {
		mustDo(db.Create(&msgs).Error)
	}
	seedDur := time.Since(st)

	reads := make([]time.Duration, 0, READS)
	var rows int
	for i := 0; i < READS; i++ {
		st := time.Now()
		list, err := msgSvc.HomeTimeline(ctx, reader.ID, LIMIT)
		if err != nil {
			panic(err)
		}
		reads = append(reads, time.Since(st))
		rows = len(list)
	}

	var sum time.Duration
	for _, d := range reads {
		sum += d
	}
	fmt.Printf("AUTHORS=%d POSTS=%d READS=%d LIMIT=%d\n", AUTHORS, POSTS, READS, LIMIT)
	fmt.Printf("Seed %d messages: %v\n", n, seedDur)
	fmt.Printf("Home timeline read: rows=%d avg=%v p95=%v p99=%v\n", rows, sum/time.Duration(len(reads)), pct(reads, 0.95), pct(reads, 0.99))

	st = time.Now()
	own, _ := msgSvc.ListByUser(ctx, authors[0].ID, LIMIT)
	fmt.Printf("Author page read (rows=%d): %v\n", len(own), time.Since(st))
}
