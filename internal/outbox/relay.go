package outbox // 发件箱中继: 轮询 outbox_messages 并投递到消息队列

import (
	"context"
	"sync"
	"time"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/storage/models"
	"resume-parser-go/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	maxRetryCount          = 5
)

// MessageRelay 轮询 outbox 表并将消息发布到消息代理
type MessageRelay struct {
	db              *gorm.DB
	publisher       storage.MessagePublisher
	logger          zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	tracer          trace.Tracer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option 中继选项
type Option func(*MessageRelay)

// WithPollingInterval 轮询间隔
func WithPollingInterval(d time.Duration) Option {
	return func(r *MessageRelay) {
		if d > 0 {
			r.pollingInterval = d
		}
	}
}

// WithBatchSize 每批处理条数
func WithBatchSize(n int) Option {
	return func(r *MessageRelay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewMessageRelay 创建中继
func NewMessageRelay(db *gorm.DB, publisher storage.MessagePublisher, logger zerolog.Logger, opts ...Option) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		tracer:          otel.Tracer("outbox-relay"),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 在后台 goroutine 中开始轮询
func (r *MessageRelay) Start(ctx context.Context) {
	r.logger.Info().Dur("interval", r.pollingInterval).Msg("MessageRelay 启动")
	ticker := time.NewTicker(r.pollingInterval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.done:
				return
			case <-ticker.C:
				if _, err := r.ProcessPendingMessages(ctx); err != nil {
					r.logger.Error().Err(err).Msg("处理发件箱消息失败")
				}
			}
		}
	}()
}

// Stop 停止轮询并等待当前批次结束
func (r *MessageRelay) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
	r.logger.Info().Msg("MessageRelay 已停止")
}

// ProcessPendingMessages 处理一批待发布消息, 返回本批条数
func (r *MessageRelay) ProcessPendingMessages(ctx context.Context) (int, error) {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	defer tx.Rollback()

	// SKIP LOCKED 允许多个实例并行中继
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", constants.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(attribute.Int("messaging.batch.message_count", len(messages))))
	defer span.End()

	for i := range messages {
		msg := &messages[i]
		err := r.publisher.PublishMessage(ctx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)
		applyPublishResult(msg, err, time.Now())
		if err != nil {
			r.logger.Warn().Err(err).
				Str("message_id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retries", msg.RetryCount).
				Msg("发布发件箱消息失败")
		}

		if err := tx.Save(msg).Error; err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
			return 0, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return 0, err
	}
	return len(messages), nil
}

// applyPublishResult 根据发布结果更新消息状态, 达到重试上限后标记为 FAILED
func applyPublishResult(msg *models.OutboxMessage, publishErr error, now time.Time) {
	if publishErr != nil {
		msg.RetryCount++
		msg.ErrorMessage = publishErr.Error()
		if msg.RetryCount >= maxRetryCount {
			msg.Status = constants.OutboxStatusFailed
		}
		return
	}
	msg.Status = constants.OutboxStatusSent
	msg.ProcessedAt = &now
	msg.ErrorMessage = ""
}
