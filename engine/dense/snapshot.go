package dense

import (
	"fmt"

	"github.com/absmach/fedasync/model"
	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

// snapshot is the binary model format produced by CreateModel and Serialize.
type snapshot struct {
	Layers       []int           `cbor:"1,keyasint"`
	LearningRate float64         `cbor:"2,keyasint"`
	BatchSize    int             `cbor:"3,keyasint"`
	Epochs       int             `cbor:"4,keyasint"`
	Seed         uint64          `cbor:"5,keyasint"`
	Version      int64           `cbor:"6,keyasint"`
	Weights      *fl.WeightsData `cbor:"7,keyasint"`
}

func (s snapshot) params() model.Parameters {
	return model.Parameters{
		Layers:       s.Layers,
		LearningRate: s.LearningRate,
		BatchSize:    s.BatchSize,
		Epochs:       s.Epochs,
		Seed:         s.Seed,
	}
}

func encodeSnapshot(p model.Parameters, w *fl.WeightsData, version int64) ([]byte, error) {
	return encMode.Marshal(snapshot{
		Layers:       p.Layers,
		LearningRate: p.LearningRate,
		BatchSize:    p.BatchSize,
		Epochs:       p.Epochs,
		Seed:         p.Seed,
		Version:      version,
		Weights:      w,
	})
}

func decodeSnapshot(data []byte) (snapshot, error) {
	var s snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}
	if s.Weights == nil {
		return snapshot{}, fmt.Errorf("%w: snapshot without weights", pkgerrors.ErrInvalidData)
	}

	return s, nil
}
