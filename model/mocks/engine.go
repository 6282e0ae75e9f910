package mocks

import (
	"context"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/stretchr/testify/mock"
)

var _ model.Engine = (*MockEngine)(nil)

// MockEngine is a mock implementation of the model.Engine interface.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) CreateModel(ctx context.Context, params model.Parameters) ([]byte, error) {
	args := m.Called(ctx, params)
	b, _ := args.Get(0).([]byte)

	return b, args.Error(1)
}

func (m *MockEngine) LoadModel(ctx context.Context, binary []byte) error {
	args := m.Called(ctx, binary)

	return args.Error(0)
}

func (m *MockEngine) TrainOneRound(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEngine) ValidateModel(ctx context.Context) (float64, error) {
	args := m.Called(ctx)

	return args.Get(0).(float64), args.Error(1)
}

// FetchWeights returns a deep copy of the configured weights so callers may
// keep what they receive.
func (m *MockEngine) FetchWeights(ctx context.Context) (*fl.WeightsData, error) {
	args := m.Called(ctx)
	w, ok := args.Get(0).(*fl.WeightsData)
	if !ok || w == nil {
		return nil, args.Error(1)
	}

	return w.DeepCopy(), args.Error(1)
}

func (m *MockEngine) PushWeights(ctx context.Context, w *fl.WeightsData) error {
	args := m.Called(ctx, w)

	return args.Error(0)
}

func (m *MockEngine) Serialize(ctx context.Context, w *fl.WeightsData, version int64) ([]byte, error) {
	args := m.Called(ctx, w, version)
	b, _ := args.Get(0).([]byte)

	return b, args.Error(1)
}

func (m *MockEngine) SetTrainingData(ctx context.Context, td dataset.TrainingData) error {
	args := m.Called(ctx, td)

	return args.Error(0)
}

func (m *MockEngine) SetTestingData(ctx context.Context, td dataset.TrainingData) error {
	args := m.Called(ctx, td)

	return args.Error(0)
}
