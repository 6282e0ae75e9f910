package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/fedasync/dataset"
	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
)

var ErrNoLoader = errors.New("no dataset loader configured")

var _ Service = (*service)(nil)

// state is published whole through an atomic pointer and never modified
// after publication.
type state struct {
	version    int64
	weights    *fl.WeightsData
	descriptor fl.ModelDescriptor
}

type service struct {
	engine       Engine
	loader       dataset.Loader
	trainTimeout time.Duration

	current atomic.Pointer[state]

	// mu serializes every change of current and guards the fields below.
	mu          sync.Mutex
	oldWeights  *fl.WeightsData
	baseVersion int64
	generation  uint64

	// engineMu serializes long engine calls. Taken before mu, never after.
	engineMu sync.Mutex
	training atomic.Bool

	numTraining atomic.Int64
	numTesting  atomic.Int64
}

type Option func(*service)

// WithTrainTimeout bounds every TrainOneRound call. Zero means no bound
// other than the caller's context.
func WithTrainTimeout(d time.Duration) Option {
	return func(svc *service) {
		svc.trainTimeout = d
	}
}

// New creates a fresh model at version 0 from params.
func New(ctx context.Context, engine Engine, loader dataset.Loader, params Parameters, opts ...Option) (Service, error) {
	svc := newService(engine, loader, opts)

	binary, err := engine.CreateModel(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	if err := svc.attachData(ctx); err != nil {
		return nil, err
	}
	weights, err := engine.FetchWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch initial weights: %w", err)
	}
	svc.current.Store(&state{
		version:    0,
		weights:    weights,
		descriptor: fl.NewModelDescriptor(binary, 0),
	})

	return svc, nil
}

// Restore rebuilds a model from a persisted descriptor, keeping its version.
func Restore(ctx context.Context, engine Engine, loader dataset.Loader, desc fl.ModelDescriptor, opts ...Option) (Service, error) {
	if desc.IsZero() {
		return nil, fmt.Errorf("%w: empty descriptor", pkgerrors.ErrInvalidData)
	}
	svc := newService(engine, loader, opts)

	if err := engine.LoadModel(ctx, desc.Binary()); err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if err := svc.attachData(ctx); err != nil {
		return nil, err
	}
	weights, err := engine.FetchWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch restored weights: %w", err)
	}
	svc.current.Store(&state{
		version:    desc.Version(),
		weights:    weights,
		descriptor: desc,
	})

	return svc, nil
}

func newService(engine Engine, loader dataset.Loader, opts []Option) *service {
	svc := &service{
		engine: engine,
		loader: loader,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// attachData hands the loader's full training and testing sets to the engine.
func (svc *service) attachData(ctx context.Context) error {
	if svc.loader == nil {
		return nil
	}

	if n := svc.loader.NumTraining(); n > 0 {
		td, err := svc.loader.Slice(ctx, dataset.Descriptor{Beginning: 0, End: n})
		if err != nil {
			return fmt.Errorf("failed to load training data: %w", err)
		}
		if err := svc.engine.SetTrainingData(ctx, td); err != nil {
			return fmt.Errorf("failed to set training data: %w", err)
		}
		svc.numTraining.Store(int64(td.NumData))
	}

	if svc.loader.NumTesting() > 0 {
		td, err := svc.loader.Testing(ctx)
		if err != nil {
			return fmt.Errorf("failed to load testing data: %w", err)
		}
		if err := svc.engine.SetTestingData(ctx, td); err != nil {
			return fmt.Errorf("failed to set testing data: %w", err)
		}
		svc.numTesting.Store(int64(td.NumData))
	}

	return nil
}

func (svc *service) BeginTrainingRound(ctx context.Context) (RoundResult, error) {
	if !svc.training.CompareAndSwap(false, true) {
		return RoundResult{}, pkgerrors.ErrRoundInProgress
	}
	defer svc.training.Store(false)

	svc.engineMu.Lock()
	defer svc.engineMu.Unlock()

	begin := time.Now()

	svc.mu.Lock()
	cur := svc.current.Load()
	snapshot := cur.weights.DeepCopy()
	generation := svc.generation
	svc.discardSnapshot()
	svc.mu.Unlock()

	trained, err := svc.train(ctx, snapshot)
	if err != nil {
		return RoundResult{}, err
	}
	if err := snapshot.CheckShape(trained); err != nil {
		return RoundResult{}, fmt.Errorf("engine changed the architecture during training: %w", err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	base := svc.current.Load()
	if svc.generation != generation {
		// Weights were replaced while training. Replay the local update on
		// top of them so neither side is lost.
		update, err := trained.Sub(snapshot)
		if err != nil {
			return RoundResult{}, err
		}
		rebased, err := base.weights.Add(update)
		if err != nil {
			return RoundResult{}, errors.Join(pkgerrors.ErrRoundSuperseded, err)
		}
		snapshot, trained = base.weights, rebased
	}

	if err := svc.commit(ctx, trained, base.version+1); err != nil {
		return RoundResult{}, err
	}
	svc.oldWeights = snapshot
	svc.baseVersion = base.version

	delta, err := fl.NewDeltaData(base.version, trained, snapshot)
	if err != nil {
		return RoundResult{}, err
	}

	return RoundResult{
		BaseVersion: base.version,
		Version:     base.version + 1,
		Duration:    time.Since(begin),
		Delta:       delta,
	}, nil
}

// train runs one engine round starting from w. Callers hold engineMu.
func (svc *service) train(ctx context.Context, w *fl.WeightsData) (*fl.WeightsData, error) {
	if svc.trainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.trainTimeout)
		defer cancel()
	}

	if err := svc.engine.PushWeights(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to push weights: %w", err)
	}
	if err := svc.engine.TrainOneRound(ctx); err != nil {
		return nil, fmt.Errorf("failed to train: %w", err)
	}
	// The engine may finish its round without looking at ctx.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trained, err := svc.engine.FetchWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trained weights: %w", err)
	}

	return trained, nil
}

func (svc *service) ComputeDelta(ctx context.Context) (*fl.DeltaData, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.oldWeights == nil {
		return nil, pkgerrors.ErrNoSnapshot
	}

	return fl.NewDeltaData(svc.baseVersion, svc.current.Load().weights, svc.oldWeights)
}

func (svc *service) ReplaceWeights(ctx context.Context, w *fl.WeightsData, version int64) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	cur := svc.current.Load()
	if err := cur.weights.CheckShape(w); err != nil {
		return err
	}
	if version < cur.version {
		return fmt.Errorf("%w: %d is older than %d", pkgerrors.ErrStaleVersion, version, cur.version)
	}

	if err := svc.commit(ctx, w.DeepCopy(), version); err != nil {
		return err
	}
	svc.discardSnapshot()

	return nil
}

func (svc *service) MergeDelta(ctx context.Context, d *fl.DeltaData) (MergeResult, error) {
	if d == nil || d.WeightsDelta() == nil {
		return MergeResult{}, fmt.Errorf("%w: missing delta", pkgerrors.ErrInvalidData)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	cur := svc.current.Load()
	s := fl.Staleness(cur.version, d.SourceVersion())
	lambda, err := fl.StalenessFactor(s)
	if err != nil {
		return MergeResult{}, err
	}
	// Checked before scaling so a rejected delta is handed back untouched.
	if err := cur.weights.CheckShape(d.WeightsDelta()); err != nil {
		return MergeResult{}, err
	}
	if err := d.ScaleWeights(lambda); err != nil {
		return MergeResult{}, err
	}
	merged, err := cur.weights.Add(d.WeightsDelta())
	if err != nil {
		return MergeResult{}, err
	}

	if err := svc.commit(ctx, merged, cur.version+1); err != nil {
		return MergeResult{}, err
	}
	svc.discardSnapshot()

	return MergeResult{
		PreviousVersion: cur.version,
		Version:         cur.version + 1,
		Staleness:       s,
		Factor:          lambda,
	}, nil
}

func (svc *service) Resynchronize(ctx context.Context, desc fl.ModelDescriptor) error {
	if desc.IsZero() {
		return fmt.Errorf("%w: empty descriptor", pkgerrors.ErrInvalidData)
	}

	svc.engineMu.Lock()
	defer svc.engineMu.Unlock()

	if cur := svc.current.Load(); desc.Version() < cur.version {
		return fmt.Errorf("%w: %d is older than %d", pkgerrors.ErrStaleVersion, desc.Version(), cur.version)
	}

	if err := svc.engine.LoadModel(ctx, desc.Binary()); err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	weights, err := svc.engine.FetchWeights(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch loaded weights: %w", err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	cur := svc.current.Load()
	if desc.Version() < cur.version {
		// A merge overtook us while loading; put the engine back.
		err := fmt.Errorf("%w: %d is older than %d", pkgerrors.ErrStaleVersion, desc.Version(), cur.version)
		if lerr := svc.engine.LoadModel(ctx, cur.descriptor.Binary()); lerr != nil {
			return errors.Join(err, lerr)
		}

		return err
	}

	svc.current.Store(&state{
		version:    desc.Version(),
		weights:    weights,
		descriptor: desc,
	})
	svc.generation++
	svc.discardSnapshot()

	return nil
}

func (svc *service) Validate(ctx context.Context) (float64, error) {
	svc.engineMu.Lock()
	defer svc.engineMu.Unlock()

	if err := svc.engine.PushWeights(ctx, svc.current.Load().weights); err != nil {
		return 0, fmt.Errorf("failed to push weights: %w", err)
	}
	accuracy, err := svc.engine.ValidateModel(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to validate: %w", err)
	}
	if accuracy < 0 || accuracy > 1 {
		return 0, fmt.Errorf("%w: accuracy %v outside [0, 1]", pkgerrors.ErrInvalidData, accuracy)
	}

	return accuracy, nil
}

func (svc *service) TrainingData(ctx context.Context, d dataset.Descriptor) (dataset.TrainingData, error) {
	if svc.loader == nil {
		return dataset.TrainingData{}, ErrNoLoader
	}

	return svc.loader.Slice(ctx, d)
}

func (svc *service) SetTrainingData(ctx context.Context, td dataset.TrainingData) error {
	if err := td.Validate(); err != nil {
		return err
	}

	svc.engineMu.Lock()
	defer svc.engineMu.Unlock()

	if err := svc.engine.SetTrainingData(ctx, td); err != nil {
		return fmt.Errorf("failed to set training data: %w", err)
	}
	svc.numTraining.Store(int64(td.NumData))

	return nil
}

func (svc *service) ModelVersion() int64 {
	return svc.current.Load().version
}

func (svc *service) ModelDescriptor() fl.ModelDescriptor {
	return svc.current.Load().descriptor
}

func (svc *service) WeightsData() *fl.WeightsData {
	return svc.current.Load().weights.DeepCopy()
}

func (svc *service) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	svc.mu.Lock()
	cur := svc.current.Load()
	st, base := Idle, int64(0)
	if svc.oldWeights != nil {
		st, base = TrainedLocally, svc.baseVersion
	}
	svc.mu.Unlock()

	return Snapshot{
		Version:         cur.version,
		State:           st,
		BaseVersion:     base,
		Shape:           cur.weights.Shape(),
		DescriptorSize:  cur.descriptor.Size(),
		TrainingObjects: svc.NumberOfTrainingObjects(),
		TestingObjects:  svc.NumberOfTestingObjects(),
		Weights:         cur.weights.DeepCopy(),
		Descriptor:      cur.descriptor,
	}, nil
}

func (svc *service) NumberOfTrainingObjects() int {
	return int(svc.numTraining.Load())
}

func (svc *service) NumberOfTestingObjects() int {
	return int(svc.numTesting.Load())
}

// commit publishes w at version. Callers hold mu.
func (svc *service) commit(ctx context.Context, w *fl.WeightsData, version int64) error {
	binary, err := svc.engine.Serialize(ctx, w, version)
	if err != nil {
		return fmt.Errorf("failed to serialize model: %w", err)
	}
	svc.current.Store(&state{
		version:    version,
		weights:    w,
		descriptor: fl.NewModelDescriptor(binary, version),
	})
	svc.generation++

	return nil
}

func (svc *service) discardSnapshot() {
	svc.oldWeights = nil
	svc.baseVersion = 0
}
