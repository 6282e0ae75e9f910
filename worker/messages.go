package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/absmach/fedasync/dataset"
	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
)

const (
	roundTopicTemplate   = "m/%s/c/%s/control/manager/round"
	syncTopicTemplate    = "m/%s/c/%s/control/manager/sync"
	deltasTopicTemplate  = "m/%s/c/%s/messages/deltas"
	resultsTopicTemplate = "m/%s/c/%s/control/worker/results"
)

// RoundCommand asks for one local training round. Data optionally selects a
// new training slice first.
type RoundCommand struct {
	RoundID string              `json:"round_id,omitempty"`
	Data    *dataset.Descriptor `json:"data,omitempty"`
}

// DeltaMessage carries a CBOR-encoded fl.DeltaData between workers. Delta is
// base64 in JSON.
type DeltaMessage struct {
	WorkerID      string `json:"worker_id"`
	RoundID       string `json:"round_id,omitempty"`
	SourceVersion int64  `json:"source_version"`
	Delta         []byte `json:"delta"`
}

func (m DeltaMessage) Validate() error {
	if len(m.Delta) == 0 {
		return fmt.Errorf("%w: empty delta", pkgerrors.ErrInvalidData)
	}
	if m.SourceVersion < 0 {
		return fmt.Errorf("%w: negative source version", pkgerrors.ErrInvalidData)
	}

	return nil
}

// Decode returns the carried delta. The version inside must match
// SourceVersion.
func (m DeltaMessage) Decode() (*fl.DeltaData, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	d, err := fl.DecodeDelta(m.Delta)
	if err != nil {
		return nil, err
	}
	if d.SourceVersion() != m.SourceVersion {
		return nil, fmt.Errorf("%w: %w: %d != %d", pkgerrors.ErrInvalidData, ErrVersionDiffer, d.SourceVersion(), m.SourceVersion)
	}

	return d, nil
}

// SyncMessage carries a full serialized model.
type SyncMessage struct {
	Version    int64  `json:"version"`
	Descriptor []byte `json:"descriptor"`
}

func (m SyncMessage) Validate() error {
	if len(m.Descriptor) == 0 {
		return fmt.Errorf("%w: empty descriptor", pkgerrors.ErrInvalidData)
	}
	if m.Version < 0 {
		return fmt.Errorf("%w: negative version", pkgerrors.ErrInvalidData)
	}

	return nil
}

type aliveMessage struct {
	Status   string `json:"status"`
	WorkerID string `json:"worker_id"`
	Name     string `json:"name"`
	Version  int64  `json:"version"`
}

type resultKind string

const (
	roundResult resultKind = "round"
	mergeResult resultKind = "merge"
	syncResult  resultKind = "sync"
)

type resultMessage struct {
	Kind        resultKind    `json:"kind"`
	WorkerID    string        `json:"worker_id"`
	RoundID     string        `json:"round_id,omitempty"`
	From        string        `json:"from,omitempty"`
	BaseVersion int64         `json:"base_version"`
	Version     int64         `json:"version"`
	Staleness   int64         `json:"staleness,omitempty"`
	Factor      float64       `json:"factor,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// decode converts an MQTT payload into one of the message types.
func decode(msg map[string]any, v any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}

	return nil
}
