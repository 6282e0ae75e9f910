package mocks

import (
	"context"
	"sync"

	"github.com/absmach/fedasync/pkg/mqtt"
	"github.com/stretchr/testify/mock"
)

var _ mqtt.PubSub = (*MockPubSub)(nil)

// MockPubSub records calls and keeps the handlers it was given so tests can
// deliver messages with Deliver.
type MockPubSub struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[string]mqtt.Handler
}

func (m *MockPubSub) Publish(ctx context.Context, topic string, msg any) error {
	args := m.Called(ctx, topic, msg)

	return args.Error(0)
}

func (m *MockPubSub) Subscribe(ctx context.Context, topic string, handler mqtt.Handler) error {
	args := m.Called(ctx, topic, handler)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]mqtt.Handler)
	}
	m.handlers[topic] = handler

	return nil
}

func (m *MockPubSub) Unsubscribe(ctx context.Context, topic string) error {
	args := m.Called(ctx, topic)

	return args.Error(0)
}

func (m *MockPubSub) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// Deliver invokes the handler subscribed to topic.
func (m *MockPubSub) Deliver(topic string, msg map[string]any) error {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		return mqtt.ErrNotSubscribed
	}

	return h(topic, msg)
}
