// Package dense is a small fully-connected network trained with mini-batch
// SGD. Hidden layers use ReLU, the output layer softmax with cross-entropy.
package dense

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

var (
	ErrNoModel          = errors.New("no model created or loaded")
	ErrArchitecture     = errors.New("invalid network architecture")
	ErrNoData           = errors.New("no data available")
	ErrIncompatibleData = errors.New("data does not fit the network")
)

const (
	defaultLearningRate = 0.05
	defaultBatchSize    = 16
	defaultEpochs       = 1
)

var _ model.Engine = (*Engine)(nil)

type layer struct {
	in, out int
	// w is out x in, row-major.
	w []float32
	b []float32
}

func (l layer) general(data []float32) blas32.General {
	return blas32.General{Rows: l.out, Cols: l.in, Stride: l.in, Data: data}
}

type Engine struct {
	params atomic.Pointer[model.Parameters]

	mu       sync.Mutex
	layers   []layer
	training dataset.TrainingData
	testing  dataset.TrainingData
	rng      *rand.Rand
}

func New() *Engine {
	return &Engine{}
}

func withDefaults(p model.Parameters) (model.Parameters, error) {
	if len(p.Layers) < 2 {
		return p, fmt.Errorf("%w: need input and output sizes, got %v", ErrArchitecture, p.Layers)
	}
	for _, n := range p.Layers {
		if n <= 0 {
			return p, fmt.Errorf("%w: layer sizes %v", ErrArchitecture, p.Layers)
		}
	}
	if p.LearningRate <= 0 {
		p.LearningRate = defaultLearningRate
	}
	if p.BatchSize <= 0 {
		p.BatchSize = defaultBatchSize
	}
	if p.Epochs <= 0 {
		p.Epochs = defaultEpochs
	}
	p.Layers = append([]int(nil), p.Layers...)

	return p, nil
}

func (e *Engine) CreateModel(ctx context.Context, params model.Parameters) ([]byte, error) {
	p, err := withDefaults(params)
	if err != nil {
		return nil, err
	}

	rng := newRand(p.Seed)
	layers := make([]layer, len(p.Layers)-1)
	for i := range layers {
		in, out := p.Layers[i], p.Layers[i+1]
		limit := math.Sqrt(6 / float64(in+out))
		w := make([]float32, in*out)
		for j := range w {
			w[j] = float32((rng.Float64()*2 - 1) * limit)
		}
		layers[i] = layer{in: in, out: out, w: w, b: make([]float32, out)}
	}

	e.mu.Lock()
	e.layers = layers
	e.rng = rng
	e.params.Store(&p)
	w := e.weights()
	e.mu.Unlock()

	return e.Serialize(ctx, w, 0)
}

func (e *Engine) LoadModel(_ context.Context, binary []byte) error {
	snap, err := decodeSnapshot(binary)
	if err != nil {
		return err
	}
	p, err := withDefaults(snap.params())
	if err != nil {
		return err
	}
	if err := checkWeights(p.Layers, snap.Weights); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers = layersFrom(p.Layers, snap.Weights)
	e.rng = newRand(p.Seed)
	e.params.Store(&p)

	return nil
}

func (e *Engine) TrainOneRound(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.params.Load()
	if p == nil {
		return ErrNoModel
	}
	n := e.training.NumData
	if n == 0 {
		return fmt.Errorf("%w: training set is empty", ErrNoData)
	}
	// A loaded model may have a different architecture than the one the
	// data was checked against.
	if err := e.fits(e.training); err != nil {
		return err
	}

	scratch := newScratch(e.layers)
	grads := make([]layer, len(e.layers))
	for i, l := range e.layers {
		grads[i] = layer{in: l.in, out: l.out, w: make([]float32, len(l.w)), b: make([]float32, len(l.b))}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for epoch := 0; epoch < p.Epochs; epoch++ {
		e.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for start := 0; start < n; start += p.BatchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(start+p.BatchSize, n)
			for _, g := range grads {
				clear(g.w)
				clear(g.b)
			}
			for _, idx := range order[start:end] {
				e.backprop(e.training.Sample(idx), int(e.training.Labels[idx]), grads, scratch)
			}
			step := float32(-p.LearningRate / float64(end-start))
			for i, l := range e.layers {
				blas32.Axpy(step, vec(grads[i].w), vec(l.w))
				blas32.Axpy(step, vec(grads[i].b), vec(l.b))
			}
		}
	}

	return nil
}

func (e *Engine) ValidateModel(ctx context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.layers) == 0 {
		return 0, ErrNoModel
	}
	n := e.testing.NumData
	if n == 0 {
		return 0, fmt.Errorf("%w: testing set is empty", ErrNoData)
	}
	if err := e.fits(e.testing); err != nil {
		return 0, err
	}

	scratch := newScratch(e.layers)
	correct := 0
	for i := 0; i < n; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		out := e.forward(e.testing.Sample(i), scratch)
		if argmax(out) == int(e.testing.Labels[i]) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

func (e *Engine) FetchWeights(context.Context) (*fl.WeightsData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.layers) == 0 {
		return nil, ErrNoModel
	}

	return e.weights(), nil
}

func (e *Engine) PushWeights(_ context.Context, w *fl.WeightsData) error {
	p := e.params.Load()
	if p == nil {
		return ErrNoModel
	}
	if err := checkWeights(p.Layers, w); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers = layersFrom(p.Layers, w)

	return nil
}

// Serialize encodes w with the current architecture. It does not touch the
// network and may run while a round is training.
func (e *Engine) Serialize(_ context.Context, w *fl.WeightsData, version int64) ([]byte, error) {
	p := e.params.Load()
	if p == nil {
		return nil, ErrNoModel
	}
	if err := checkWeights(p.Layers, w); err != nil {
		return nil, err
	}

	return encodeSnapshot(*p, w, version)
}

func (e *Engine) SetTrainingData(_ context.Context, td dataset.TrainingData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.fits(td); err != nil {
		return err
	}
	e.training = td

	return nil
}

func (e *Engine) SetTestingData(_ context.Context, td dataset.TrainingData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.fits(td); err != nil {
		return err
	}
	e.testing = td

	return nil
}

func (e *Engine) fits(td dataset.TrainingData) error {
	if err := td.Validate(); err != nil {
		return err
	}
	if len(e.layers) == 0 || td.NumData == 0 {
		return nil
	}
	in, out := e.layers[0].in, e.layers[len(e.layers)-1].out
	if td.SizeOfData != in || td.NumLabels > out {
		return fmt.Errorf("%w: %d features and %d labels for a %d-in %d-out network", ErrIncompatibleData, td.SizeOfData, td.NumLabels, in, out)
	}

	return nil
}

// weights copies the network into a WeightsData. Callers hold mu.
func (e *Engine) weights() *fl.WeightsData {
	w := &fl.WeightsData{}
	for i, l := range e.layers {
		_ = w.SetLayerWeights(i, append([]float32(nil), l.w...))
		_ = w.SetLayerBiases(i, append([]float32(nil), l.b...))
	}

	return w
}

type scratch struct {
	acts   [][]float32
	zs     [][]float32
	deltas [][]float32
}

func newScratch(layers []layer) scratch {
	s := scratch{
		acts:   make([][]float32, len(layers)+1),
		zs:     make([][]float32, len(layers)),
		deltas: make([][]float32, len(layers)),
	}
	for i, l := range layers {
		s.acts[i+1] = make([]float32, l.out)
		s.zs[i] = make([]float32, l.out)
		s.deltas[i] = make([]float32, l.out)
	}

	return s
}

// forward returns the output probabilities. They live in s.
func (e *Engine) forward(x []float32, s scratch) []float32 {
	s.acts[0] = x
	last := len(e.layers) - 1
	for i, l := range e.layers {
		z := s.zs[i]
		copy(z, l.b)
		blas32.Gemv(blas.NoTrans, 1, l.general(l.w), vec(s.acts[i]), 1, vec(z))
		if i == last {
			softmax(z, s.acts[i+1])
			continue
		}
		for j, v := range z {
			s.acts[i+1][j] = max(v, 0)
		}
	}

	return s.acts[len(e.layers)]
}

// backprop accumulates the cross-entropy gradient of one sample into grads.
func (e *Engine) backprop(x []float32, label int, grads []layer, s scratch) {
	out := e.forward(x, s)
	last := len(e.layers) - 1
	copy(s.deltas[last], out)
	s.deltas[last][label]--

	for i := last; i >= 0; i-- {
		l, d := e.layers[i], s.deltas[i]
		blas32.Ger(1, vec(d), vec(s.acts[i]), l.general(grads[i].w))
		blas32.Axpy(1, vec(d), vec(grads[i].b))
		if i == 0 {
			break
		}
		prev := s.deltas[i-1]
		blas32.Gemv(blas.Trans, 1, l.general(l.w), vec(d), 0, vec(prev))
		for j, z := range s.zs[i-1] {
			if z <= 0 {
				prev[j] = 0
			}
		}
	}
}

func softmax(z, out []float32) {
	peak := z[0]
	for _, v := range z[1:] {
		peak = max(peak, v)
	}
	var sum float64
	for i, v := range z {
		ev := math.Exp(float64(v - peak))
		out[i] = float32(ev)
		sum += ev
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
}

func argmax(v []float32) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}

	return best
}

func checkWeights(sizes []int, w *fl.WeightsData) error {
	if w == nil {
		return fmt.Errorf("%w: missing weights", pkgerrors.ErrShapeMismatch)
	}
	if w.NumLayers() != len(sizes)-1 {
		return fmt.Errorf("%w: %d layers for a %d-layer network", pkgerrors.ErrShapeMismatch, w.NumLayers(), len(sizes)-1)
	}
	for i := 0; i < w.NumLayers(); i++ {
		lw, err := w.LayerWeights(i)
		if err != nil {
			return err
		}
		lb, err := w.LayerBiases(i)
		if err != nil {
			return err
		}
		if len(lw) != sizes[i]*sizes[i+1] || len(lb) != sizes[i+1] {
			return fmt.Errorf("%w: layer %d has %d weights and %d biases, want %d and %d",
				pkgerrors.ErrShapeMismatch, i, len(lw), len(lb), sizes[i]*sizes[i+1], sizes[i+1])
		}
	}

	return nil
}

// layersFrom copies checked weights into network layers.
func layersFrom(sizes []int, w *fl.WeightsData) []layer {
	layers := make([]layer, len(sizes)-1)
	for i := range layers {
		lw, _ := w.LayerWeights(i)
		lb, _ := w.LayerBiases(i)
		layers[i] = layer{
			in:  sizes[i],
			out: sizes[i+1],
			w:   append([]float32(nil), lw...),
			b:   append([]float32(nil), lb...),
		}
	}

	return layers
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func vec(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Data: data, Inc: 1}
}
