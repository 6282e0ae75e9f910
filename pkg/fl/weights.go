package fl

import (
	"errors"
	"fmt"
	"math"

	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"gonum.org/v1/gonum/blas/blas32"
)

// Layer holds the tensors of one network layer. A nil tensor has not been set.
type Layer struct {
	Weights []float32 `json:"weights" cbor:"1,keyasint"`
	Biases  []float32 `json:"biases"  cbor:"2,keyasint"`
}

// LayerShape is the tensor lengths of one layer.
type LayerShape struct {
	Weights int `json:"weights"`
	Biases  int `json:"biases"`
}

// WeightsData is the per-layer weight and bias store of a model. Layers are
// indexed densely from 0. The zero value is an empty store ready to use.
//
// WeightsData is not safe for concurrent mutation. Add and Sub never modify
// their operands, which lets a published instance be shared by readers.
type WeightsData struct {
	layers []*Layer
}

// NumLayers returns the number of layer slots, including unset ones.
func (w *WeightsData) NumLayers() int {
	return len(w.layers)
}

// LayerWeights returns the weights tensor of layer i. The tensor is shared
// with the store and must be treated as read-only; use DeepCopy before
// modifying it.
func (w *WeightsData) LayerWeights(i int) ([]float32, error) {
	l, err := w.layer(i)
	if err != nil {
		return nil, err
	}
	if l.Weights == nil {
		return nil, fmt.Errorf("%w: weights of layer %d", pkgerrors.ErrUnknownLayer, i)
	}

	return l.Weights, nil
}

// LayerBiases returns the biases tensor of layer i. Like LayerWeights, the
// result is read-only.
func (w *WeightsData) LayerBiases(i int) ([]float32, error) {
	l, err := w.layer(i)
	if err != nil {
		return nil, err
	}
	if l.Biases == nil {
		return nil, fmt.Errorf("%w: biases of layer %d", pkgerrors.ErrUnknownLayer, i)
	}

	return l.Biases, nil
}

// SetLayerWeights replaces the weights tensor of layer i. The store keeps t;
// callers must not modify it afterwards.
func (w *WeightsData) SetLayerWeights(i int, t []float32) error {
	l, err := w.ensure(i)
	if err != nil {
		return err
	}
	l.Weights = nonNil(t)

	return nil
}

// SetLayerBiases replaces the biases tensor of layer i. The store keeps t;
// callers must not modify it afterwards.
func (w *WeightsData) SetLayerBiases(i int, t []float32) error {
	l, err := w.ensure(i)
	if err != nil {
		return err
	}
	l.Biases = nonNil(t)

	return nil
}

// DeepCopy returns a clone that shares no storage with w.
func (w *WeightsData) DeepCopy() *WeightsData {
	c := &WeightsData{layers: make([]*Layer, len(w.layers))}
	for i, l := range w.layers {
		if l == nil {
			continue
		}
		c.layers[i] = &Layer{
			Weights: clone(l.Weights),
			Biases:  clone(l.Biases),
		}
	}

	return c
}

// Shape returns the tensor lengths per layer. Unset tensors report -1.
func (w *WeightsData) Shape() []LayerShape {
	shape := make([]LayerShape, len(w.layers))
	for i, l := range w.layers {
		shape[i] = LayerShape{Weights: -1, Biases: -1}
		if l == nil {
			continue
		}
		if l.Weights != nil {
			shape[i].Weights = len(l.Weights)
		}
		if l.Biases != nil {
			shape[i].Biases = len(l.Biases)
		}
	}

	return shape
}

// CheckShape reports ErrShapeMismatch unless other has the same layer set and
// the same tensor lengths as w.
func (w *WeightsData) CheckShape(other *WeightsData) error {
	if other == nil {
		return fmt.Errorf("%w: missing weights", pkgerrors.ErrShapeMismatch)
	}
	if len(w.layers) != len(other.layers) {
		return fmt.Errorf("%w: %d layers against %d", pkgerrors.ErrShapeMismatch, len(w.layers), len(other.layers))
	}
	for i := range w.layers {
		a, b := w.layers[i], other.layers[i]
		if (a == nil) != (b == nil) {
			return fmt.Errorf("%w: layer %d set on one side only", pkgerrors.ErrShapeMismatch, i)
		}
		if a == nil {
			continue
		}
		if err := sameTensor(a.Weights, b.Weights); err != nil {
			return fmt.Errorf("%w: weights of layer %d: %w", pkgerrors.ErrShapeMismatch, i, err)
		}
		if err := sameTensor(a.Biases, b.Biases); err != nil {
			return fmt.Errorf("%w: biases of layer %d: %w", pkgerrors.ErrShapeMismatch, i, err)
		}
	}

	return nil
}

// Add returns w + other elementwise.
func (w *WeightsData) Add(other *WeightsData) (*WeightsData, error) {
	return w.axpy(1, other)
}

// Sub returns w - other elementwise.
func (w *WeightsData) Sub(other *WeightsData) (*WeightsData, error) {
	return w.axpy(-1, other)
}

// Scale multiplies every element of every tensor by factor in place.
func (w *WeightsData) Scale(factor float64) error {
	f, err := toFactor(factor)
	if err != nil {
		return err
	}
	for _, l := range w.layers {
		if l == nil {
			continue
		}
		blas32.Scal(f, vector(l.Weights))
		blas32.Scal(f, vector(l.Biases))
	}

	return nil
}

func (w *WeightsData) axpy(alpha float32, other *WeightsData) (*WeightsData, error) {
	if err := w.CheckShape(other); err != nil {
		return nil, err
	}
	out := w.DeepCopy()
	for i, l := range out.layers {
		if l == nil {
			continue
		}
		blas32.Axpy(alpha, vector(other.layers[i].Weights), vector(l.Weights))
		blas32.Axpy(alpha, vector(other.layers[i].Biases), vector(l.Biases))
	}

	return out, nil
}

func (w *WeightsData) layer(i int) (*Layer, error) {
	if i < 0 || i >= len(w.layers) || w.layers[i] == nil {
		return nil, fmt.Errorf("%w: %d", pkgerrors.ErrUnknownLayer, i)
	}

	return w.layers[i], nil
}

func (w *WeightsData) ensure(i int) (*Layer, error) {
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", pkgerrors.ErrUnknownLayer, i)
	}
	if i >= len(w.layers) {
		grown := make([]*Layer, i+1)
		copy(grown, w.layers)
		w.layers = grown
	}
	if w.layers[i] == nil {
		w.layers[i] = &Layer{}
	}

	return w.layers[i], nil
}

func toFactor(factor float64) (float32, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 0, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidFactor, factor)
	}
	f := float32(factor)
	if math.IsInf(float64(f), 0) {
		return 0, fmt.Errorf("%w: %v overflows float32", pkgerrors.ErrInvalidFactor, factor)
	}

	return f, nil
}

func sameTensor(a, b []float32) error {
	if (a == nil) != (b == nil) {
		return errors.New("set on one side only")
	}
	if len(a) != len(b) {
		return fmt.Errorf("length %d against %d", len(a), len(b))
	}

	return nil
}

func vector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Data: data, Inc: 1}
}

func clone(t []float32) []float32 {
	if t == nil {
		return nil
	}
	c := make([]float32, len(t))
	blas32.Copy(vector(t), blas32.Vector{N: len(c), Data: c, Inc: 1})

	return c
}

func nonNil(t []float32) []float32 {
	if t == nil {
		return []float32{}
	}

	return t
}
