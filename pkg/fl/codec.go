package fl

import (
	"encoding/json"
	"fmt"

	pkgerrors "github.com/absmach/fedasync/pkg/errors"
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

type weightsWire struct {
	Layers []*Layer `json:"layers" cbor:"1,keyasint"`
}

type deltaWire struct {
	SourceVersion int64        `cbor:"1,keyasint"`
	Weights       *WeightsData `cbor:"2,keyasint"`
}

type descriptorWire struct {
	Version int64  `json:"version" cbor:"1,keyasint"`
	Binary  []byte `json:"binary"  cbor:"2,keyasint"`
}

func (w *WeightsData) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(weightsWire{Layers: w.layers})
}

func (w *WeightsData) UnmarshalCBOR(data []byte) error {
	var wire weightsWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return err
	}
	w.layers = wire.Layers

	return nil
}

func (w *WeightsData) MarshalJSON() ([]byte, error) {
	return json.Marshal(weightsWire{Layers: w.layers})
}

func (w *WeightsData) UnmarshalJSON(data []byte) error {
	var wire weightsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	w.layers = wire.Layers

	return nil
}

func (d ModelDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorWire{Version: d.version, Binary: d.binary})
}

func (d *ModelDescriptor) UnmarshalJSON(data []byte) error {
	var wire descriptorWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*d = NewModelDescriptor(wire.Binary, wire.Version)

	return nil
}

// EncodeDelta serializes d for transport.
func EncodeDelta(d *DeltaData) ([]byte, error) {
	return encMode.Marshal(deltaWire{SourceVersion: d.sourceVersion, Weights: d.weights})
}

func DecodeDelta(data []byte) (*DeltaData, error) {
	var wire deltaWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}
	if wire.Weights == nil {
		return nil, fmt.Errorf("%w: delta without weights", pkgerrors.ErrInvalidData)
	}

	return &DeltaData{
		sourceVersion: wire.SourceVersion,
		weights:       wire.Weights,
	}, nil
}

// EncodeDescriptor serializes d for storage or transport.
func EncodeDescriptor(d ModelDescriptor) ([]byte, error) {
	return encMode.Marshal(descriptorWire{Version: d.version, Binary: d.binary})
}

func DecodeDescriptor(data []byte) (ModelDescriptor, error) {
	var wire descriptorWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return ModelDescriptor{}, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}

	return NewModelDescriptor(wire.Binary, wire.Version), nil
}
