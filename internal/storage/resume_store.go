package storage

import (
	"context"
	"errors"
	"time"

	"resume-parser-go/internal/types"
)

// DefaultSearchLimit 未指定 limit 时的检索条数
const DefaultSearchLimit = 10

// ErrResumeNotFound 简历不存在
var ErrResumeNotFound = errors.New("简历不存在")

// StoredResume 持久化的一份简历
type StoredResume struct {
	ID        string
	Filename  string
	Path      string
	RawText   string
	Parsed    *types.StructuredResume
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResumeStore 简历存储, 同一 id 只保留一条记录
type ResumeStore interface {
	// Put 按 id 原子地插入或覆盖
	Put(ctx context.Context, resume *StoredResume) error

	// Get 不存在时返回 ErrResumeNotFound
	Get(ctx context.Context, id string) (*StoredResume, error)

	// SearchByText 原始文本子串检索, limit <= 0 时使用 DefaultSearchLimit
	SearchByText(ctx context.Context, query string, limit int) ([]types.SearchHit, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}
