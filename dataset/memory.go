package dataset

import "context"

var _ Loader = (*memoryLoader)(nil)

type memoryLoader struct {
	training TrainingData
	testing  TrainingData
}

// NewMemoryLoader serves both sets from memory. The sets are validated once
// here so Slice never has to.
func NewMemoryLoader(training, testing TrainingData) (Loader, error) {
	if err := training.Validate(); err != nil {
		return nil, err
	}
	if err := testing.Validate(); err != nil {
		return nil, err
	}

	return &memoryLoader{
		training: training,
		testing:  testing,
	}, nil
}

func (l *memoryLoader) NumTraining() int {
	return l.training.NumData
}

func (l *memoryLoader) NumTesting() int {
	return l.testing.NumData
}

func (l *memoryLoader) Slice(ctx context.Context, d Descriptor) (TrainingData, error) {
	if err := ctx.Err(); err != nil {
		return TrainingData{}, err
	}

	return l.training.Slice(d)
}

func (l *memoryLoader) Testing(ctx context.Context) (TrainingData, error) {
	if err := ctx.Err(); err != nil {
		return TrainingData{}, err
	}

	return l.testing.Slice(Descriptor{Beginning: 0, End: l.testing.NumData})
}
