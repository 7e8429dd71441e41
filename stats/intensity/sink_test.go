package intensity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContrastSink(t *testing.T) {
	var s ContrastSink
	require.Error(t, s.Begin(0))
	require.NoError(t, s.Begin(4))

	require.NoError(t, s.Frame(0, []float64{2, 2, 2, 2}))
	require.NoError(t, s.Frame(1, []float64{1, 3, 1, 3}))
	require.Error(t, s.Frame(2, []float64{1}))

	got := s.Contrasts()
	require.Len(t, got, 2)
	assert.InDelta(t, 0, got[0], 0)
	assert.InDelta(t, 0.5, got[1], 1e-12)

	sum := s.Summary()
	assert.Equal(t, 2, sum.Length)
	assert.InDelta(t, 0.25, sum.Mean, 1e-12)

	pooled := s.Pooled()
	assert.Equal(t, 8, pooled.Length)
	assert.InDelta(t, 2.0, pooled.Mean, 1e-12)

	got[0] = 99
	assert.InDelta(t, 0, s.Contrasts()[0], 0)

	require.NoError(t, s.Begin(2))
	assert.Empty(t, s.Contrasts())
	assert.Zero(t, s.Pooled().Length)
}
