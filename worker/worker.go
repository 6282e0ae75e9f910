package worker

import (
	"context"
	"errors"
	"time"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/absmach/fedasync/pkg/storage"
)

var (
	ErrEmptyID       = errors.New("empty worker ID")
	ErrVersionDiffer = errors.New("delta version does not match message")
)

// Worker identifies one training instance on the channel.
type Worker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Config struct {
	ID                 string
	Name               string
	DomainID           string
	ChannelID          string
	LivelinessInterval time.Duration
	// Retain is how many persisted descriptors survive each commit. Zero
	// keeps all of them.
	Retain int
}

// Status is the worker's public view of itself and its model.
type Status struct {
	Worker
	Model model.Snapshot `json:"model"`
}

// RoundReport describes a completed training round.
type RoundReport struct {
	RoundID     string        `json:"round_id"`
	BaseVersion int64         `json:"base_version"`
	Version     int64         `json:"version"`
	Duration    time.Duration `json:"duration"`
	DeltaSize   int           `json:"delta_size"`
}

// Service reacts to coordinator commands and peer deltas on behalf of one
// model. It never decides on its own when to train or synchronize.
type Service interface {
	// Status returns identity and a consistent view of the model.
	Status(ctx context.Context) (Status, error)
	Descriptor(ctx context.Context) (fl.ModelDescriptor, error)
	// StoredDescriptor returns a persisted descriptor by version.
	StoredDescriptor(ctx context.Context, version int64) (fl.ModelDescriptor, error)
	ListDescriptors(ctx context.Context, offset, limit uint64) (storage.DescriptorPage, error)
	// Delta returns the update of the last local round, encoded for peers.
	Delta(ctx context.Context) (DeltaMessage, error)

	// TrainRound runs one local round and publishes its delta.
	TrainRound(ctx context.Context, cmd RoundCommand) (RoundReport, error)
	// ApplyDelta merges a peer's delta.
	ApplyDelta(ctx context.Context, msg DeltaMessage) (model.MergeResult, error)
	// Sync replaces the model with the one in msg.
	Sync(ctx context.Context, msg SyncMessage) (model.Snapshot, error)
	ReplaceWeights(ctx context.Context, w *fl.WeightsData, version int64) (model.Snapshot, error)
	SelectTrainingData(ctx context.Context, d dataset.Descriptor) (int, error)
	Validate(ctx context.Context) (float64, error)

	// Subscribe starts listening on the channel and publishing liveliness
	// until ctx is done.
	Subscribe(ctx context.Context) error
}
