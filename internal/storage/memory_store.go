package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"resume-parser-go/internal/types"
)

// MemoryResumeStore 进程内存储, 未配置 MySQL 时使用
type MemoryResumeStore struct {
	mu      sync.RWMutex
	resumes map[string]*StoredResume
	now     func() time.Time
}

// NewMemoryResumeStore 创建内存存储
func NewMemoryResumeStore() *MemoryResumeStore {
	return &MemoryResumeStore{
		resumes: make(map[string]*StoredResume),
		now:     time.Now,
	}
}

var _ ResumeStore = (*MemoryResumeStore)(nil)

// Put 插入或覆盖, 覆盖时保留首次创建时间
func (s *MemoryResumeStore) Put(_ context.Context, resume *StoredResume) error {
	if resume == nil || resume.ID == "" {
		return fmt.Errorf("简历 id 不能为空")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cp := *resume
	if existing, ok := s.resumes[resume.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.resumes[resume.ID] = &cp
	return nil
}

// Get 返回副本
func (s *MemoryResumeStore) Get(_ context.Context, id string) (*StoredResume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resumes[id]
	if !ok {
		return nil, ErrResumeNotFound
	}
	cp := *r
	return &cp, nil
}

// SearchByText 不区分大小写, 按创建时间倒序返回命中记录
func (s *MemoryResumeStore) SearchByText(_ context.Context, query string, limit int) ([]types.SearchHit, error) {
	limit = normalizeLimit(limit)
	needle := strings.ToLower(query)

	s.mu.RLock()
	matched := make([]*StoredResume, 0)
	for _, r := range s.resumes {
		if strings.Contains(strings.ToLower(r.RawText), needle) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	hits := make([]types.SearchHit, 0, len(matched))
	for _, r := range matched {
		hits = append(hits, types.SearchHit{ID: r.ID, Filename: r.Filename})
	}
	return hits, nil
}
