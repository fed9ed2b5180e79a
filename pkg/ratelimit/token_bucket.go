package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// TokenBucket 按 QPM 补充令牌的限流器, 附带指数退避重试
type TokenBucket struct {
	mutex          sync.Mutex
	perSecond      float64
	capacity       float64
	tokens         float64
	lastRefillTime time.Time
	now            func() time.Time

	retryWaitTime time.Duration
	maxRetries    int
}

// NewTokenBucket capacity <= 0 时取 qpm/2, 至少为 1
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if qpm <= 0 {
		qpm = 1
	}
	if capacity <= 0 {
		capacity = max(qpm/2, 1)
	}
	return &TokenBucket{
		perSecond:      float64(qpm) / 60.0,
		capacity:       float64(capacity),
		tokens:         float64(capacity),
		lastRefillTime: time.Now(),
		now:            time.Now,
		retryWaitTime:  time.Second,
		maxRetries:     3,
	}
}

// WithRetryPolicy 非正值保留默认
func (tb *TokenBucket) WithRetryPolicy(waitTime time.Duration, maxRetries int) *TokenBucket {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	if waitTime > 0 {
		tb.retryWaitTime = waitTime
	}
	if maxRetries >= 0 {
		tb.maxRetries = maxRetries
	}
	return tb
}

// take 取一个令牌; 不足时返回需要等待的时长
func (tb *TokenBucket) take() time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := tb.now()
	tb.tokens = min(tb.capacity, tb.tokens+now.Sub(tb.lastRefillTime).Seconds()*tb.perSecond)
	tb.lastRefillTime = now

	if tb.tokens >= 1 {
		tb.tokens--
		return 0
	}
	return time.Duration((1 - tb.tokens) / tb.perSecond * float64(time.Second))
}

// Allow 非阻塞
func (tb *TokenBucket) Allow() bool {
	return tb.take() == 0
}

// Wait 阻塞到拿到令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait := tb.take()
		if wait == 0 {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// RetryWithBackoff 每次尝试前先取令牌, 仅对可重试错误重试
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	tb.mutex.Lock()
	wait, retries := tb.retryWaitTime, tb.maxRetries
	tb.mutex.Unlock()

	for attempt := 0; ; attempt++ {
		if err := tb.Wait(ctx); err != nil {
			return err
		}
		err := fn()
		if err == nil || attempt >= retries || !IsRetryableError(err) {
			return err
		}
		if err := sleep(ctx, wait<<uint(attempt)); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// 模型服务的限流、过载与网络抖动
var retryableMarkers = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"EOF",
	"no such host",
	"rate limit",
	"429",
	"502",
	"503",
	"服务器繁忙",
	"请求超过限额",
}

// IsRetryableError ctx 取消或超时不重试
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
