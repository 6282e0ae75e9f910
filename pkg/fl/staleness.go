package fl

import (
	"fmt"
	"math"

	pkgerrors "github.com/absmach/fedasync/pkg/errors"
)

// Staleness is the number of versions the receiving model is ahead of the
// version a delta was computed against. It is negative when the delta comes
// from a model newer than the receiver.
func Staleness(currentVersion, sourceVersion int64) int64 {
	return currentVersion - sourceVersion
}

// StalenessFactor returns 1/sqrt(1+s). A negative staleness is clamped to 0,
// so a delta from a newer model is applied with factor 1.
func StalenessFactor(s int64) (float64, error) {
	if s < 0 {
		s = 0
	}
	lambda := 1 / math.Sqrt(1+float64(s))
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) || lambda <= 0 {
		return 0, fmt.Errorf("%w: staleness %d gives %v", pkgerrors.ErrInvalidFactor, s, lambda)
	}

	return lambda, nil
}
