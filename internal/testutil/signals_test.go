package testutil

import (
	"math"
	"testing"
)

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
		if a[i] < -1 || a[i] >= 1 {
			t.Fatalf("a[%d] = %v out of range", i, a[i])
		}
	}
}

func TestSpeckleTrace(t *testing.T) {
	const n = 20000
	trace := SpeckleTrace(5, 100, 10, n)
	if len(trace) != n {
		t.Fatalf("len = %d, want %d", len(trace), n)
	}

	var sum float64
	for i, v := range trace {
		if v < 0 {
			t.Fatalf("trace[%d] = %v is negative", i, v)
		}
		sum += v
	}

	// Exponential intensity statistics: mean within a few percent for long traces.
	mean := sum / n
	if math.Abs(mean-100) > 15 {
		t.Fatalf("mean = %v, want about 100", mean)
	}

	again := SpeckleTrace(5, 100, 10, n)
	RequireSliceNearlyEqual(t, again, trace, 0)
}

func TestAlternating(t *testing.T) {
	RequireSliceNearlyEqual(t, Alternating(1, 2, 5), []float64{1, 2, 1, 2, 1}, 0)
}

func TestDC(t *testing.T) {
	RequireSliceNearlyEqual(t, DC(2.5, 3), []float64{2.5, 2.5, 2.5}, 0)
}
