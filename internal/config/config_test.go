package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-speckle/dls/speckle"
)

const fullYAML = `
frames: frames1
block_size: 8
skip: {top: 1, bottom: 1, left: 2, right: 0}
workers: 4
drop_degenerate: true
time_key:
  counts: [100, 50]
  steps: [0.001, 0.01]
extremes:
  fraction: 0.1
  lag: 3
  side: worst
  rank: fakf
fit:
  points: 20
optics:
  refractive_index: 1.33
  wavelength: 632.8e-9
  angle_deg: 90
  viscosity: 1.002e-3
  temperature: 293.15
output:
  intensity_table: frames1.asc
  ensemble_table: enslog.asc
  sqlite: speckle.db
`

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.BlockSize)
	assert.False(t, cfg.Extremes.Enabled())
	assert.Nil(t, cfg.Optics)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)

	assert.Equal(t, "frames1", cfg.Frames)
	assert.Equal(t, 8, cfg.BlockSize)
	assert.Equal(t, Skip{Top: 1, Bottom: 1, Left: 2}, cfg.Skip)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []int{100, 50}, cfg.TimeKey.Counts)
	assert.Equal(t, []float64{0.001, 0.01}, cfg.TimeKey.Steps)
	assert.Equal(t, 20, cfg.Fit.Points)
	assert.Equal(t, "speckle.db", cfg.Output.SQLite)

	require.True(t, cfg.Extremes.Enabled())
	side, err := cfg.Extremes.SideValue()
	require.NoError(t, err)
	assert.Equal(t, speckle.SideWorst, side)

	require.NotNil(t, cfg.Optics)
	assert.InDelta(t, math.Pi/2, cfg.Optics.AngleRad(), 1e-15)
	assert.True(t, cfg.DropDegenerate)
	assert.Len(t, cfg.GridOptions(), 4)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("frames: run7\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BlockSize)
	assert.Equal(t, "both", cfg.Extremes.Side)
	assert.Len(t, cfg.GridOptions(), 2)

	cfg, err = Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero block", "block_size: 0"},
		{"negative skip", "skip: {top: -1}"},
		{"negative workers", "workers: -2"},
		{"unpaired time key", "time_key: {counts: [1, 2], steps: [1]}"},
		{"fraction too large", "extremes: {fraction: 1.5}"},
		{"negative lag", "extremes: {fraction: 0.5, lag: -1}"},
		{"unknown side", "extremes: {fraction: 0.5, side: middle}"},
		{"unknown rank", "extremes: {fraction: 0.5, rank: colour}"},
		{"bad angle", "optics: {refractive_index: 1, wavelength: 1e-6, angle_deg: 270, viscosity: 1, temperature: 300}"},
		{"missing viscosity", "optics: {refractive_index: 1, wavelength: 1e-6, angle_deg: 90, temperature: 300}"},
		{"negative fit points", "fit: {points: -1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Parse([]byte("blocksize: 4"))
	require.Error(t, err, "unknown keys are rejected")
	_, err = Parse([]byte("block_size: [1"))
	require.Error(t, err)
}

func TestRankers(t *testing.T) {
	for _, name := range []string{"", "iakf", "FAKF", "intensity", "time_average", "average"} {
		r, err := Extremes{Rank: name}.Ranker()
		require.NoError(t, err, name)
		assert.NotNil(t, r, name)
	}
	for name, want := range map[string]speckle.Side{"best": speckle.SideBest, "Both": speckle.SideBoth, "": speckle.SideBoth} {
		got, err := Extremes{Side: name}.SideValue()
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullYAML), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.BlockSize)

	yml := filepath.Join(dir, "run.YML")
	require.NoError(t, os.WriteFile(yml, []byte("block_size: 4\n"), 0o600))
	cfg, err = Load(yml)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.BlockSize)

	_, err = Load(filepath.Join(dir, "run.json"))
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	big := filepath.Join(dir, "big.yaml")
	require.NoError(t, os.WriteFile(big, []byte("# "+strings.Repeat("x", maxFileSize)), 0o600))
	_, err = Load(big)
	require.ErrorIs(t, err, ErrInvalid)
}
