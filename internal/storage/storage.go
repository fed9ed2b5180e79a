package storage

import (
	"context"
	"fmt"

	"resume-parser-go/internal/config"

	"github.com/rs/zerolog"
)

// Storage 存储管理器, 聚合所有存储相关依赖
type Storage struct {
	// Resumes 简历存储, MySQL 未配置时为内存实现
	Resumes ResumeStore

	// Files 原始文件存储, MinIO 未配置时为本地目录
	Files FileStore

	MySQL    *MySQL
	Redis    *Redis
	MinIO    *MinIO
	RabbitMQ *RabbitMQ

	logger zerolog.Logger
}

// NewStorage 按配置初始化各组件, 可选组件失败时降级并记录警告
func NewStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	s := &Storage{logger: logger}
	var err error

	if cfg.MySQLEnabled() {
		s.MySQL, err = NewMySQL(&cfg.MySQL, OutboxTarget{
			Exchange:   outboxExchange(cfg),
			RoutingKey: cfg.RabbitMQ.ParsedRoutingKey,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化MySQL失败: %w", err)
		}
		s.Resumes = s.MySQL
	} else {
		logger.Warn().Msg("MySQL未配置, 使用内存存储")
		s.Resumes = NewMemoryResumeStore()
	}

	if cfg.MinIO.Endpoint != "" {
		s.MinIO, err = NewMinIO(ctx, &cfg.MinIO, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败, 使用本地目录保存上传文件")
		} else {
			s.Files = s.MinIO
		}
	}
	if s.Files == nil {
		local, err := NewLocalFileStore(cfg.Server.UploadDir)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Files = local
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedisAdapter(&cfg.Redis, cfg.Embedding.CacheTTL)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败, 缓存已禁用")
			s.Redis = nil
		}
	} else {
		logger.Info().Msg("Redis未配置, 跳过初始化")
	}

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败, 事件将保留在发件箱中")
			s.RabbitMQ = nil
		}
	}

	return s, nil
}

// outboxExchange 只有配置了 RabbitMQ 才写发件箱
func outboxExchange(cfg *config.Config) string {
	if cfg.RabbitMQ.URL == "" {
		return ""
	}
	return cfg.RabbitMQ.EventsExchange
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			s.logger.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			s.logger.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
