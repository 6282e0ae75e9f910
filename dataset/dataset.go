package dataset

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidRange = errors.New("invalid data range")
	ErrMalformed    = errors.New("malformed training data")
)

// TrainingData is a dense batch of samples. Data holds NumData rows of
// SizeOfData features each; Labels holds one class index per row.
type TrainingData struct {
	NumLabels  int       `json:"num_labels"`
	NumData    int       `json:"num_data"`
	SizeOfData int       `json:"size_of_data"`
	Data       []float32 `json:"data,omitempty"`
	Labels     []int32   `json:"labels,omitempty"`
}

// Descriptor selects rows [Beginning, End) of a dataset.
type Descriptor struct {
	Beginning int `json:"beginning"`
	End       int `json:"end"`
}

// Loader supplies training and testing samples to a model.
type Loader interface {
	NumTraining() int
	NumTesting() int
	// Slice returns the training rows selected by d.
	Slice(ctx context.Context, d Descriptor) (TrainingData, error)
	// Testing returns the whole testing set.
	Testing(ctx context.Context) (TrainingData, error)
}

func (d Descriptor) Validate(n int) error {
	if d.Beginning < 0 || d.End < d.Beginning || d.End > n {
		return fmt.Errorf("%w: [%d, %d) of %d rows", ErrInvalidRange, d.Beginning, d.End, n)
	}

	return nil
}

func (td TrainingData) Validate() error {
	switch {
	case td.NumData < 0 || td.SizeOfData < 0:
		return fmt.Errorf("%w: negative dimensions", ErrMalformed)
	case len(td.Data) != td.NumData*td.SizeOfData:
		return fmt.Errorf("%w: %d values for %dx%d samples", ErrMalformed, len(td.Data), td.NumData, td.SizeOfData)
	case len(td.Labels) != td.NumData:
		return fmt.Errorf("%w: %d labels for %d samples", ErrMalformed, len(td.Labels), td.NumData)
	}
	for i, l := range td.Labels {
		if l < 0 || int(l) >= td.NumLabels {
			return fmt.Errorf("%w: label %d of row %d outside [0, %d)", ErrMalformed, l, i, td.NumLabels)
		}
	}

	return nil
}

// Sample returns the features of row i without copying.
func (td TrainingData) Sample(i int) []float32 {
	return td.Data[i*td.SizeOfData : (i+1)*td.SizeOfData]
}

// Slice copies rows selected by d into a new TrainingData.
func (td TrainingData) Slice(d Descriptor) (TrainingData, error) {
	if err := d.Validate(td.NumData); err != nil {
		return TrainingData{}, err
	}
	n := d.End - d.Beginning

	return TrainingData{
		NumLabels:  td.NumLabels,
		NumData:    n,
		SizeOfData: td.SizeOfData,
		Data:       append([]float32(nil), td.Data[d.Beginning*td.SizeOfData:d.End*td.SizeOfData]...),
		Labels:     append([]int32(nil), td.Labels[d.Beginning:d.End]...),
	}, nil
}
