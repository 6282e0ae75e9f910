package model

import (
	"context"
	"time"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/pkg/fl"
)

// State of the snapshot/merge protocol.
type State uint8

const (
	Idle State = iota
	TrainedLocally
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TrainedLocally:
		return "trained_locally"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Parameters describe the network architecture and optimizer settings handed
// to the engine when a fresh model is created.
type Parameters struct {
	Layers       []int   `json:"layers"        toml:"layers"`
	LearningRate float64 `json:"learning_rate" toml:"learning_rate"`
	BatchSize    int     `json:"batch_size"    toml:"batch_size"`
	Epochs       int     `json:"epochs"        toml:"epochs"`
	Seed         uint64  `json:"seed"          toml:"seed"`
}

// Engine trains and evaluates a network. The model calls it from one
// goroutine at a time, except Serialize which must be safe to call while a
// round is running.
//
// PushWeights copies w into the network. FetchWeights returns a fresh
// instance the engine does not keep a reference to.
type Engine interface {
	CreateModel(ctx context.Context, params Parameters) ([]byte, error)
	LoadModel(ctx context.Context, binary []byte) error
	TrainOneRound(ctx context.Context) error
	ValidateModel(ctx context.Context) (float64, error)
	FetchWeights(ctx context.Context) (*fl.WeightsData, error)
	PushWeights(ctx context.Context, w *fl.WeightsData) error
	Serialize(ctx context.Context, w *fl.WeightsData, version int64) ([]byte, error)
	SetTrainingData(ctx context.Context, td dataset.TrainingData) error
	SetTestingData(ctx context.Context, td dataset.TrainingData) error
}

// MergeResult reports how an inbound delta was applied.
type MergeResult struct {
	PreviousVersion int64   `json:"previous_version"`
	Version         int64   `json:"version"`
	Staleness       int64   `json:"staleness"`
	Factor          float64 `json:"factor"`
}

// RoundResult reports a completed local training round.
type RoundResult struct {
	BaseVersion int64         `json:"base_version"`
	Version     int64         `json:"version"`
	Duration    time.Duration `json:"duration"`
	// Delta is the update of this round, taken at commit time.
	Delta       *fl.DeltaData `json:"-"`
}

// Snapshot is a consistent view of the model at one version.
type Snapshot struct {
	Version         int64              `json:"version"`
	State           State              `json:"state"`
	BaseVersion     int64              `json:"base_version,omitempty"`
	Shape           []fl.LayerShape    `json:"shape"`
	DescriptorSize  int                `json:"descriptor_size"`
	TrainingObjects int                `json:"training_objects"`
	TestingObjects  int                `json:"testing_objects"`
	Weights         *fl.WeightsData    `json:"-"`
	Descriptor      fl.ModelDescriptor `json:"-"`
}

type Service interface {
	// BeginTrainingRound snapshots the current weights, trains one round and
	// commits the result as the next version.
	BeginTrainingRound(ctx context.Context) (RoundResult, error)
	// ComputeDelta returns trained minus snapshot weights tagged with the
	// version the snapshot was taken at.
	ComputeDelta(ctx context.Context) (*fl.DeltaData, error)
	// MergeDelta scales d by its staleness factor and adds it to the current
	// weights. d is scaled in place and must not be merged again.
	MergeDelta(ctx context.Context, d *fl.DeltaData) (MergeResult, error)
	ReplaceWeights(ctx context.Context, w *fl.WeightsData, version int64) error
	Resynchronize(ctx context.Context, desc fl.ModelDescriptor) error
	Validate(ctx context.Context) (float64, error)

	TrainingData(ctx context.Context, d dataset.Descriptor) (dataset.TrainingData, error)
	SetTrainingData(ctx context.Context, td dataset.TrainingData) error

	ModelVersion() int64
	ModelDescriptor() fl.ModelDescriptor
	WeightsData() *fl.WeightsData
	Snapshot(ctx context.Context) (Snapshot, error)
	NumberOfTrainingObjects() int
	NumberOfTestingObjects() int
}
