package dense_test

import (
	"context"
	"testing"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/engine/dense"
	"github.com/absmach/fedasync/model"
	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var params = model.Parameters{
	Layers:       []int{2, 8, 2},
	LearningRate: 0.1,
	BatchSize:    8,
	Epochs:       2,
	Seed:         42,
}

// blobs places label 0 around (-1, -1) and label 1 around (1, 1).
func blobs(n int) dataset.TrainingData {
	td := dataset.TrainingData{
		NumLabels:  2,
		NumData:    n,
		SizeOfData: 2,
		Data:       make([]float32, 0, 2*n),
		Labels:     make([]int32, 0, n),
	}
	for i := 0; i < n; i++ {
		jitter := float32(i%7-3) * 0.05
		centre := float32(-1)
		label := int32(i % 2)
		if label == 1 {
			centre = 1
		}
		td.Data = append(td.Data, centre+jitter, centre-jitter)
		td.Labels = append(td.Labels, label)
	}

	return td
}

func TestTrainingImprovesAccuracy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := dense.New()
	_, err := e.CreateModel(ctx, params)
	require.NoError(t, err)
	require.NoError(t, e.SetTrainingData(ctx, blobs(64)))
	require.NoError(t, e.SetTestingData(ctx, blobs(20)))

	for i := 0; i < 20; i++ {
		require.NoError(t, e.TrainOneRound(ctx))
	}
	acc, err := e.ValidateModel(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.9)
}

func TestSerializeAndLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := dense.New()
	_, err := a.CreateModel(ctx, params)
	require.NoError(t, err)
	require.NoError(t, a.SetTrainingData(ctx, blobs(16)))
	require.NoError(t, a.TrainOneRound(ctx))

	w, err := a.FetchWeights(ctx)
	require.NoError(t, err)
	binary, err := a.Serialize(ctx, w, 12)
	require.NoError(t, err)

	b := dense.New()
	require.NoError(t, b.LoadModel(ctx, binary))
	got, err := b.FetchWeights(ctx)
	require.NoError(t, err)
	require.NoError(t, w.CheckShape(got))
	for i := 0; i < w.NumLayers(); i++ {
		ew, _ := w.LayerWeights(i)
		gw, _ := got.LayerWeights(i)
		assert.Equal(t, ew, gw)
	}

	// FetchWeights hands out copies.
	gw, _ := got.LayerWeights(0)
	gw[0] += 100
	again, err := b.FetchWeights(ctx)
	require.NoError(t, err)
	aw, _ := again.LayerWeights(0)
	assert.NotEqual(t, gw[0], aw[0])
}

// loadWider gives e data for params, then loads a 6-input network over it.
func loadWider(e *dense.Engine) error {
	ctx := context.Background()
	if _, err := e.CreateModel(ctx, params); err != nil {
		return err
	}
	if err := e.SetTrainingData(ctx, blobs(8)); err != nil {
		return err
	}
	if err := e.SetTestingData(ctx, blobs(4)); err != nil {
		return err
	}

	wider := dense.New()
	binary, err := wider.CreateModel(ctx, model.Parameters{Layers: []int{6, 4, 2}})
	if err != nil {
		return err
	}

	return e.LoadModel(ctx, binary)
}

func TestEngineErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	wrong := &fl.WeightsData{}
	require.NoError(t, wrong.SetLayerWeights(0, []float32{1}))
	require.NoError(t, wrong.SetLayerBiases(0, []float32{1}))

	cases := []struct {
		desc string
		run  func(e *dense.Engine) error
		err  error
	}{
		{
			desc: "serialize before create",
			run: func(e *dense.Engine) error {
				_, err := e.Serialize(ctx, wrong, 0)
				return err
			},
			err: dense.ErrNoModel,
		},
		{
			desc: "single layer size",
			run: func(e *dense.Engine) error {
				_, err := e.CreateModel(ctx, model.Parameters{Layers: []int{3}})
				return err
			},
			err: dense.ErrArchitecture,
		},
		{
			desc: "train without data",
			run: func(e *dense.Engine) error {
				if _, err := e.CreateModel(ctx, params); err != nil {
					return err
				}
				return e.TrainOneRound(ctx)
			},
			err: dense.ErrNoData,
		},
		{
			desc: "push other architecture",
			run: func(e *dense.Engine) error {
				if _, err := e.CreateModel(ctx, params); err != nil {
					return err
				}
				return e.PushWeights(ctx, wrong)
			},
			err: pkgerrors.ErrShapeMismatch,
		},
		{
			desc: "data with too many features",
			run: func(e *dense.Engine) error {
				if _, err := e.CreateModel(ctx, params); err != nil {
					return err
				}
				return e.SetTrainingData(ctx, dataset.TrainingData{
					NumLabels: 2, NumData: 1, SizeOfData: 3,
					Data: []float32{1, 2, 3}, Labels: []int32{0},
				})
			},
			err: dense.ErrIncompatibleData,
		},
		{
			desc: "train after loading a wider network",
			run: func(e *dense.Engine) error {
				if err := loadWider(e); err != nil {
					return err
				}
				return e.TrainOneRound(ctx)
			},
			err: dense.ErrIncompatibleData,
		},
		{
			desc: "validate after loading a wider network",
			run: func(e *dense.Engine) error {
				if err := loadWider(e); err != nil {
					return err
				}
				_, err := e.ValidateModel(ctx)
				return err
			},
			err: dense.ErrIncompatibleData,
		},
		{
			desc: "load garbage",
			run: func(e *dense.Engine) error {
				return e.LoadModel(ctx, []byte{0xff, 0x01})
			},
			err: pkgerrors.ErrInvalidData,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(dense.New()), tc.err)
		})
	}
}

func TestTrainingCanceled(t *testing.T) {
	t.Parallel()

	e := dense.New()
	_, err := e.CreateModel(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, e.SetTrainingData(context.Background(), blobs(32)))
	before, err := e.FetchWeights(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.TrainOneRound(ctx), context.Canceled)

	after, err := e.FetchWeights(context.Background())
	require.NoError(t, err)
	bw, _ := before.LayerWeights(0)
	aw, _ := after.LayerWeights(0)
	assert.Equal(t, bw, aw)
}

func TestModelWithDenseEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	loader, err := dataset.NewMemoryLoader(blobs(64), blobs(20))
	require.NoError(t, err)

	svc, err := model.New(ctx, dense.New(), loader, params)
	require.NoError(t, err)
	assert.Equal(t, 64, svc.NumberOfTrainingObjects())

	for i := 0; i < 15; i++ {
		res, err := svc.BeginTrainingRound(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), res.Version)
	}
	acc, err := svc.Validate(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.9)

	// A second worker restored from the descriptor sees the same weights.
	peer, err := model.Restore(ctx, dense.New(), nil, svc.ModelDescriptor())
	require.NoError(t, err)
	assert.Equal(t, svc.ModelVersion(), peer.ModelVersion())
	require.NoError(t, svc.WeightsData().CheckShape(peer.WeightsData()))
}

func TestTrainingLeavesPushedWeightsUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := dense.New()
	_, err := e.CreateModel(ctx, params)
	require.NoError(t, err)
	require.NoError(t, e.SetTrainingData(ctx, blobs(32)))

	w, err := e.FetchWeights(ctx)
	require.NoError(t, err)
	before := w.DeepCopy()

	require.NoError(t, e.PushWeights(ctx, w))
	require.NoError(t, e.TrainOneRound(ctx))

	for i := 0; i < w.NumLayers(); i++ {
		got, err := w.LayerWeights(i)
		require.NoError(t, err)
		want, err := before.LayerWeights(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
