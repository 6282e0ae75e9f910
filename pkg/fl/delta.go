package fl

import (
	"fmt"

	pkgerrors "github.com/absmach/fedasync/pkg/errors"
)

// DeltaData is the difference between two weight snapshots of the same shape,
// tagged with the model version the older snapshot was taken at.
type DeltaData struct {
	sourceVersion int64
	weights       *WeightsData
}

// NewDeltaData computes newWeights - oldWeights layer by layer. A shape
// disagreement means the snapshot belongs to another architecture and is
// reported as ErrShapeMismatch.
func NewDeltaData(sourceVersion int64, newWeights, oldWeights *WeightsData) (*DeltaData, error) {
	if newWeights == nil || oldWeights == nil {
		return nil, fmt.Errorf("%w: delta needs both snapshots", pkgerrors.ErrShapeMismatch)
	}
	diff, err := newWeights.Sub(oldWeights)
	if err != nil {
		return nil, err
	}

	return &DeltaData{
		sourceVersion: sourceVersion,
		weights:       diff,
	}, nil
}

func (d *DeltaData) SourceVersion() int64 {
	return d.sourceVersion
}

// WeightsDelta returns the difference tensors. The result is owned by d and
// must be treated as read-only.
func (d *DeltaData) WeightsDelta() *WeightsData {
	return d.weights
}

// ScaleWeights multiplies the delta by lambda in place.
func (d *DeltaData) ScaleWeights(lambda float64) error {
	return d.weights.Scale(lambda)
}
