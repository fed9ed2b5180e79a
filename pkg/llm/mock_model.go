package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 一次调用的预设结果
type MockResponse struct {
	Content string
	Error   error
	Delay   time.Duration
}

// MockChatClient 测试用模型
//
// 未设置 Sequence 时每次返回 ExpectedResponse/ExpectedError;
// 设置后按顺序消费, 用完返回错误
type MockChatClient struct {
	mu sync.Mutex

	ExpectedResponse string
	ExpectedError    error
	Delay            time.Duration

	Sequence []MockResponse

	ReceivedMessages []*schema.Message
	Calls            int
}

var errSequenceExhausted = errors.New("mock client has run out of sequential responses")

// NewMockChatClient 固定响应
func NewMockChatClient(expectedResponse string, expectedError error) *MockChatClient {
	return &MockChatClient{ExpectedResponse: expectedResponse, ExpectedError: expectedError}
}

// NewMockChatClientSequential 顺序响应
func NewMockChatClientSequential(responses []MockResponse) *MockChatClient {
	return &MockChatClient{Sequence: append([]MockResponse(nil), responses...)}
}

func (m *MockChatClient) next(input []*schema.Message) (MockResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.ReceivedMessages = append(m.ReceivedMessages, input...)
	if m.Sequence == nil {
		return MockResponse{Content: m.ExpectedResponse, Error: m.ExpectedError, Delay: m.Delay}, nil
	}
	if len(m.Sequence) == 0 {
		return MockResponse{}, errSequenceExhausted
	}
	resp := m.Sequence[0]
	m.Sequence = m.Sequence[1:]
	return resp, nil
}

// Generate 延迟期间响应 ctx 取消
func (m *MockChatClient) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	resp, err := m.next(input)
	if err != nil {
		return nil, err
	}
	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

func (m *MockChatClient) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("MockChatClient 不支持流式输出")
}

// GetReceivedMessages 所有调用累计收到的消息
func (m *MockChatClient) GetReceivedMessages() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*schema.Message(nil), m.ReceivedMessages...)
}

var _ model.BaseChatModel = (*MockChatClient)(nil)
