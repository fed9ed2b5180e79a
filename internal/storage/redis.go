package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/tracing"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("缓存未命中")

const (
	defaultScoreTTL     = 24 * time.Hour
	defaultEmbeddingTTL = 7 * 24 * time.Hour
)

var redisTracer = otel.Tracer("resume-parser-go/storage/redis")

// Redis 匹配分与向量缓存
type Redis struct {
	Client       *redis.Client
	scoreTTL     time.Duration
	embeddingTTL time.Duration
}

// NewRedisAdapter 创建客户端并检查连通性
func NewRedisAdapter(cfg *config.RedisConfig, embeddingTTL string) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
	client := redis.NewClient(opt)

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return NewRedisWithClient(client, config.GetDuration(cfg.ScoreTTL, defaultScoreTTL), config.GetDuration(embeddingTTL, defaultEmbeddingTTL)), nil
}

// NewRedisWithClient 使用已有客户端
func NewRedisWithClient(client *redis.Client, scoreTTL, embeddingTTL time.Duration) *Redis {
	return &Redis{Client: client, scoreTTL: scoreTTL, embeddingTTL: embeddingTTL}
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// GetScore 读取缓存的匹配分, 不存在时返回 ErrCacheMiss
func (r *Redis) GetScore(ctx context.Context, resumeID, jdHash string) (float64, error) {
	key := fmt.Sprintf(constants.KeyMatchScore, resumeID, jdHash)
	val, err := r.get(ctx, key)
	if err != nil {
		return 0, err
	}
	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("缓存的匹配分格式错误: %w", err)
	}
	return score, nil
}

// SetScore 缓存匹配分
func (r *Redis) SetScore(ctx context.Context, resumeID, jdHash string, score float64) error {
	key := fmt.Sprintf(constants.KeyMatchScore, resumeID, jdHash)
	return r.set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), r.scoreTTL)
}

// GetEmbedding 读取缓存的向量
func (r *Redis) GetEmbedding(ctx context.Context, model, textHash string) ([]float64, error) {
	key := fmt.Sprintf(constants.KeyEmbeddingVector, model, textHash)
	val, err := r.get(ctx, key)
	if err != nil {
		return nil, err
	}
	var vec []float64
	if err := json.Unmarshal([]byte(val), &vec); err != nil {
		return nil, fmt.Errorf("反序列化向量缓存失败: %w", err)
	}
	return vec, nil
}

// SetEmbedding 缓存向量
func (r *Redis) SetEmbedding(ctx context.Context, model, textHash string, vector []float64) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %w", err)
	}
	key := fmt.Sprintf(constants.KeyEmbeddingVector, model, textHash)
	return r.set(ctx, key, string(data), r.embeddingTTL)
}

func (r *Redis) get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}
	ctx, span := redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "GET"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	)

	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		span.SetStatus(codes.Ok, "key not found")
		span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
		return "", ErrCacheMiss
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return "", err
	}
	span.SetAttributes(attribute.Bool("db.redis.key_exists", true))
	span.SetStatus(codes.Ok, "")
	return val, nil
}

func (r *Redis) set(ctx context.Context, key, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	ctx, span := redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SET"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		attribute.Int("db.redis.value_length", len(value)),
	)
	if expiration > 0 {
		span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
	}

	if err := r.Client.Set(ctx, key, value, expiration).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
