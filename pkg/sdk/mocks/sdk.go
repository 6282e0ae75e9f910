package mocks

import (
	"github.com/absmach/fedasync/pkg/sdk"
	"github.com/stretchr/testify/mock"
)

var _ sdk.SDK = (*MockSDK)(nil)

type MockSDK struct {
	mock.Mock
}

func (m *MockSDK) Status() (sdk.Status, error) {
	args := m.Called()

	return args.Get(0).(sdk.Status), args.Error(1)
}

func (m *MockSDK) Descriptor() (sdk.Descriptor, error) {
	args := m.Called()

	return args.Get(0).(sdk.Descriptor), args.Error(1)
}

func (m *MockSDK) StoredDescriptor(version int64) (sdk.Descriptor, error) {
	args := m.Called(version)

	return args.Get(0).(sdk.Descriptor), args.Error(1)
}

func (m *MockSDK) ListDescriptors(offset, limit uint64) (sdk.DescriptorPage, error) {
	args := m.Called(offset, limit)

	return args.Get(0).(sdk.DescriptorPage), args.Error(1)
}

func (m *MockSDK) Delta() (sdk.Delta, error) {
	args := m.Called()

	return args.Get(0).(sdk.Delta), args.Error(1)
}

func (m *MockSDK) TrainRound(req sdk.RoundRequest) (sdk.RoundReport, error) {
	args := m.Called(req)

	return args.Get(0).(sdk.RoundReport), args.Error(1)
}

func (m *MockSDK) ApplyDelta(delta sdk.Delta) (sdk.MergeResult, error) {
	args := m.Called(delta)

	return args.Get(0).(sdk.MergeResult), args.Error(1)
}

func (m *MockSDK) Sync(desc sdk.Descriptor) (sdk.Snapshot, error) {
	args := m.Called(desc)

	return args.Get(0).(sdk.Snapshot), args.Error(1)
}

func (m *MockSDK) ReplaceWeights(version int64, w sdk.Weights) (sdk.Snapshot, error) {
	args := m.Called(version, w)

	return args.Get(0).(sdk.Snapshot), args.Error(1)
}

func (m *MockSDK) Validate() (float64, error) {
	args := m.Called()

	return args.Get(0).(float64), args.Error(1)
}

func (m *MockSDK) SelectData(beginning, end int) (int, error) {
	args := m.Called(beginning, end)

	return args.Int(0), args.Error(1)
}
