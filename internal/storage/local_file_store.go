package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalFileStore 本地磁盘存储, 文件名为 {id}_{原文件名}
type LocalFileStore struct {
	dir string
}

var _ FileStore = (*LocalFileStore)(nil)

// NewLocalFileStore 目录不存在时自动创建
func NewLocalFileStore(dir string) (*LocalFileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建上传目录 %s 失败: %w", dir, err)
	}
	return &LocalFileStore{dir: dir}, nil
}

// SaveResumeFile 写入文件并返回路径
func (s *LocalFileStore) SaveResumeFile(_ context.Context, resumeID, filename string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s", resumeID, filepath.Base(filename))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("保存上传文件失败: %w", err)
	}
	return path, nil
}

// GetResumeFile 读取文件
func (s *LocalFileStore) GetResumeFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	return data, nil
}
