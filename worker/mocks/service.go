package mocks

import (
	"context"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/absmach/fedasync/pkg/storage"
	"github.com/absmach/fedasync/worker"
	"github.com/stretchr/testify/mock"
)

var _ worker.Service = (*MockService)(nil)

// MockService is a mock implementation of the worker.Service interface.
type MockService struct {
	mock.Mock
}

func (m *MockService) Status(ctx context.Context) (worker.Status, error) {
	args := m.Called(ctx)

	return args.Get(0).(worker.Status), args.Error(1)
}

func (m *MockService) Descriptor(ctx context.Context) (fl.ModelDescriptor, error) {
	args := m.Called(ctx)

	return args.Get(0).(fl.ModelDescriptor), args.Error(1)
}

func (m *MockService) StoredDescriptor(ctx context.Context, version int64) (fl.ModelDescriptor, error) {
	args := m.Called(ctx, version)

	return args.Get(0).(fl.ModelDescriptor), args.Error(1)
}

func (m *MockService) ListDescriptors(ctx context.Context, offset, limit uint64) (storage.DescriptorPage, error) {
	args := m.Called(ctx, offset, limit)

	return args.Get(0).(storage.DescriptorPage), args.Error(1)
}

func (m *MockService) Delta(ctx context.Context) (worker.DeltaMessage, error) {
	args := m.Called(ctx)

	return args.Get(0).(worker.DeltaMessage), args.Error(1)
}

func (m *MockService) TrainRound(ctx context.Context, cmd worker.RoundCommand) (worker.RoundReport, error) {
	args := m.Called(ctx, cmd)

	return args.Get(0).(worker.RoundReport), args.Error(1)
}

func (m *MockService) ApplyDelta(ctx context.Context, msg worker.DeltaMessage) (model.MergeResult, error) {
	args := m.Called(ctx, msg)

	return args.Get(0).(model.MergeResult), args.Error(1)
}

func (m *MockService) Sync(ctx context.Context, msg worker.SyncMessage) (model.Snapshot, error) {
	args := m.Called(ctx, msg)

	return args.Get(0).(model.Snapshot), args.Error(1)
}

func (m *MockService) ReplaceWeights(ctx context.Context, w *fl.WeightsData, version int64) (model.Snapshot, error) {
	args := m.Called(ctx, w, version)

	return args.Get(0).(model.Snapshot), args.Error(1)
}

func (m *MockService) SelectTrainingData(ctx context.Context, d dataset.Descriptor) (int, error) {
	args := m.Called(ctx, d)

	return args.Int(0), args.Error(1)
}

func (m *MockService) Validate(ctx context.Context) (float64, error) {
	args := m.Called(ctx)

	return args.Get(0).(float64), args.Error(1)
}

func (m *MockService) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
