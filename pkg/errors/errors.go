package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")
)

// Model protocol errors. ErrShapeMismatch and ErrUnknownLayer are not
// retriable: the caller has to resynchronize from a descriptor.
var (
	ErrShapeMismatch   = errors.New("weights shape mismatch")
	ErrUnknownLayer    = errors.New("unknown layer")
	ErrInvalidFactor   = errors.New("invalid scale factor")
	ErrNoSnapshot      = errors.New("no training snapshot available")
	ErrStaleVersion    = errors.New("model version would move backwards")
	ErrRoundInProgress = errors.New("training round already in progress")
	ErrRoundSuperseded = errors.New("training round superseded by a weight replacement")
)
