package intensity

import "fmt"

// ContrastSink records the spatial speckle contrast of every frame it
// receives. It satisfies the frame sink interface of the grid package.
type ContrastSink struct {
	cells     int
	contrasts []float64
	overall   Accumulator
}

// Begin resets the sink for frames of cells values.
func (s *ContrastSink) Begin(cells int) error {
	if cells <= 0 {
		return fmt.Errorf("intensity: invalid cell count %d", cells)
	}
	s.cells = cells
	s.contrasts = s.contrasts[:0]
	s.overall.Reset()
	return nil
}

// Frame records the contrast across the cells of one frame.
func (s *ContrastSink) Frame(index int, intensities []float64) error {
	if len(intensities) != s.cells {
		return fmt.Errorf("intensity: frame %d has %d cells, want %d", index, len(intensities), s.cells)
	}
	s.contrasts = append(s.contrasts, Contrast(intensities))
	s.overall.Update(intensities)
	return nil
}

// Contrasts returns the per-frame spatial contrast in arrival order.
func (s *ContrastSink) Contrasts() []float64 {
	out := make([]float64, len(s.contrasts))
	copy(out, s.contrasts)
	return out
}

// Summary returns the statistics of the per-frame contrasts.
func (s *ContrastSink) Summary() Stats {
	return Calculate(s.contrasts)
}

// Pooled returns the statistics of every received intensity.
func (s *ContrastSink) Pooled() Stats {
	return s.overall.Result()
}
