package outbox

import (
	"errors"
	"testing"
	"time"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/storage/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPublishResultSuccess(t *testing.T) {
	msg := &models.OutboxMessage{Status: constants.OutboxStatusPending, ErrorMessage: "old"}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	applyPublishResult(msg, nil, now)

	assert.Equal(t, constants.OutboxStatusSent, msg.Status)
	require.NotNil(t, msg.ProcessedAt)
	assert.Equal(t, now, *msg.ProcessedAt)
	assert.Empty(t, msg.ErrorMessage)
}

func TestApplyPublishResultRetriesUntilFailed(t *testing.T) {
	msg := &models.OutboxMessage{Status: constants.OutboxStatusPending}
	publishErr := errors.New("connection reset")

	for i := 1; i < maxRetryCount; i++ {
		applyPublishResult(msg, publishErr, time.Now())
		assert.Equal(t, i, msg.RetryCount)
		assert.Equal(t, constants.OutboxStatusPending, msg.Status, "未达到上限前保持 PENDING")
	}

	applyPublishResult(msg, publishErr, time.Now())
	assert.Equal(t, maxRetryCount, msg.RetryCount)
	assert.Equal(t, constants.OutboxStatusFailed, msg.Status)
	assert.Equal(t, "connection reset", msg.ErrorMessage)
	assert.Nil(t, msg.ProcessedAt)
}

func TestRelayOptions(t *testing.T) {
	r := NewMessageRelay(nil, nil, zerolog.Nop(), WithPollingInterval(time.Second), WithBatchSize(3))
	assert.Equal(t, time.Second, r.pollingInterval)
	assert.Equal(t, 3, r.batchSize)

	r = NewMessageRelay(nil, nil, zerolog.Nop(), WithPollingInterval(0), WithBatchSize(-1))
	assert.Equal(t, defaultPollingInterval, r.pollingInterval)
	assert.Equal(t, defaultBatchSize, r.batchSize)
}
