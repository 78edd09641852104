package service

import (
	"context"

	"github.com/d60-Lab/warbler/internal/cache"
)

// StatsStore 个人计数读取与失效，由 cache.StatsCache 实现
type StatsStore interface {
	Get(ctx context.Context, userID string) (cache.ProfileStats, error)
	Invalidate(ctx context.Context, userIDs ...string)
	Flush(ctx context.Context) error
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
	// maxPage 之后的页一律为空，避免 offset 溢出
	maxPage         = 1 << 20
)

func pageWindow(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > maxPage {
		page = maxPage
	}
	return (page - 1) * pageSize, pageSize
}
