package fl_test

import (
	"math"
	"testing"

	"github.com/absmach/fedasync/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStalenessFactor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc    string
		current int64
		source  int64
		factor  float64
	}{
		{desc: "fresh delta", current: 5, source: 5, factor: 1},
		{desc: "one version behind", current: 6, source: 5, factor: 1 / math.Sqrt2},
		{desc: "three versions behind", current: 8, source: 5, factor: 0.5},
		{desc: "eight versions behind", current: 13, source: 5, factor: 1.0 / 3},
		{desc: "delta from a newer model", current: 2, source: 9, factor: 1},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			s := fl.Staleness(tc.current, tc.source)
			assert.Equal(t, tc.current-tc.source, s)

			lambda, err := fl.StalenessFactor(s)
			require.NoError(t, err)
			assert.InDelta(t, tc.factor, lambda, 1e-12)
		})
	}
}

func TestStalenessFactorDecreases(t *testing.T) {
	t.Parallel()

	prev := 1.0
	for s := int64(1); s < 1000; s++ {
		lambda, err := fl.StalenessFactor(s)
		require.NoError(t, err)
		require.Less(t, lambda, prev)
		require.Greater(t, lambda, 0.0)
		prev = lambda
	}
}
