// Package config loads the YAML run description used by the msdls command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-speckle/dls/grid"
	"github.com/cwbudde/algo-speckle/dls/speckle"
)

const maxFileSize = 1 << 20

var ErrInvalid = errors.New("config: invalid")

// Config describes one multispeckle run.
type Config struct {
	Frames    string   `yaml:"frames"`
	BlockSize int      `yaml:"block_size"`
	Skip      Skip     `yaml:"skip"`
	Workers   int      `yaml:"workers"`
	TimeKey   TimeKey  `yaml:"time_key"`
	Extremes  Extremes `yaml:"extremes"`
	Fit       Fit      `yaml:"fit"`
	Optics    *Optics  `yaml:"optics,omitempty"`
	Output    Output   `yaml:"output"`

	// DropDegenerate leaves blocks without mean intensity, such as dead
	// detector regions, out of the ensemble instead of failing the run.
	DropDegenerate bool `yaml:"drop_degenerate"`
}

// Skip counts edge blocks excluded from the grid.
type Skip struct {
	Top    int `yaml:"top"`
	Bottom int `yaml:"bottom"`
	Left   int `yaml:"left"`
	Right  int `yaml:"right"`
}

// TimeKey lists acquisition batches: Counts[i] frames spaced Steps[i]
// seconds apart. Empty means frame numbers are used as time.
type TimeKey struct {
	Counts []int     `yaml:"counts"`
	Steps  []float64 `yaml:"steps"`
}

// Extremes selects a sub-ensemble. A zero Fraction disables it.
type Extremes struct {
	Fraction float64 `yaml:"fraction"`
	Lag      int     `yaml:"lag"`
	Side     string  `yaml:"side"`
	Rank     string  `yaml:"rank"`
}

// Fit controls the decay fits. Points limits the fit to the first lags
// after lag 0; zero uses every lag up to the first non-positive value.
type Fit struct {
	Points int `yaml:"points"`
}

// Optics converts a decay rate into a hydrodynamic radius.
type Optics struct {
	RefractiveIndex float64 `yaml:"refractive_index"`
	Wavelength      float64 `yaml:"wavelength"` // m
	AngleDeg        float64 `yaml:"angle_deg"`
	Viscosity       float64 `yaml:"viscosity"`   // Pa*s
	Temperature     float64 `yaml:"temperature"` // K
}

// Output names the files written by a run. Empty paths are skipped.
type Output struct {
	IntensityTable string `yaml:"intensity_table"`
	EnsembleTable  string `yaml:"ensemble_table"`
	SQLite         string `yaml:"sqlite"`
}

// Default returns a configuration with 10 pixel blocks, no edge skips and
// no extremal selection.
func Default() Config {
	return Config{
		BlockSize: 10,
		Extremes: Extremes{
			Lag:  1,
			Side: "both",
			Rank: "iakf",
		},
	}
}

// Load reads a .yaml or .yml file over the defaults and validates it.
func Load(path string) (Config, error) {
	clean := filepath.Clean(path)
	switch ext := strings.ToLower(filepath.Ext(clean)); ext {
	case ".yaml", ".yml":
	default:
		return Config{}, fmt.Errorf("%w: config file must be .yaml or .yml, got %q", ErrInvalid, ext)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return Config{}, fmt.Errorf("config: stat: %w", err)
	}
	if info.Size() > maxFileSize {
		return Config{}, fmt.Errorf("%w: file too large: %d bytes (max %d)", ErrInvalid, info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field consistency.
func (c Config) Validate() error {
	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: block_size must be positive, got %d", ErrInvalid, c.BlockSize)
	}
	if c.Skip.Top < 0 || c.Skip.Bottom < 0 || c.Skip.Left < 0 || c.Skip.Right < 0 {
		return fmt.Errorf("%w: skip counts must not be negative", ErrInvalid)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	}
	if len(c.TimeKey.Counts) != len(c.TimeKey.Steps) {
		return fmt.Errorf("%w: time_key has %d counts but %d steps", ErrInvalid, len(c.TimeKey.Counts), len(c.TimeKey.Steps))
	}
	if c.Fit.Points < 0 {
		return fmt.Errorf("%w: fit.points must not be negative", ErrInvalid)
	}

	if c.Extremes.Fraction != 0 {
		if !(c.Extremes.Fraction > 0 && c.Extremes.Fraction <= 1) {
			return fmt.Errorf("%w: extremes.fraction %v outside (0, 1]", ErrInvalid, c.Extremes.Fraction)
		}
		if c.Extremes.Lag < 0 {
			return fmt.Errorf("%w: extremes.lag must not be negative", ErrInvalid)
		}
		if _, err := c.Extremes.SideValue(); err != nil {
			return err
		}
		if _, err := c.Extremes.Ranker(); err != nil {
			return err
		}
	}

	if o := c.Optics; o != nil {
		for name, v := range map[string]float64{
			"refractive_index": o.RefractiveIndex,
			"wavelength":       o.Wavelength,
			"viscosity":        o.Viscosity,
			"temperature":      o.Temperature,
		} {
			if !(v > 0) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: optics.%s must be positive, got %v", ErrInvalid, name, v)
			}
		}
		if !(o.AngleDeg > 0 && o.AngleDeg <= 180) {
			return fmt.Errorf("%w: optics.angle_deg %v outside (0, 180]", ErrInvalid, o.AngleDeg)
		}
	}
	return nil
}

// Enabled reports whether an extremal sub-ensemble is requested.
func (e Extremes) Enabled() bool {
	return e.Fraction > 0
}

// SideValue parses Side.
func (e Extremes) SideValue() (speckle.Side, error) {
	switch strings.ToLower(e.Side) {
	case "best":
		return speckle.SideBest, nil
	case "worst":
		return speckle.SideWorst, nil
	case "both", "":
		return speckle.SideBoth, nil
	}
	return 0, fmt.Errorf("%w: extremes.side %q", ErrInvalid, e.Side)
}

// Ranker parses Rank.
func (e Extremes) Ranker() (speckle.Ranker, error) {
	switch strings.ToLower(e.Rank) {
	case "iakf", "":
		return speckle.ByIAKF, nil
	case "fakf":
		return speckle.ByFAKF, nil
	case "intensity":
		return speckle.ByIntensity, nil
	case "time_average", "average":
		return speckle.ByTimeAverage, nil
	}
	return nil, fmt.Errorf("%w: extremes.rank %q", ErrInvalid, e.Rank)
}

// AngleRad returns the scattering angle in radians.
func (o Optics) AngleRad() float64 {
	return o.AngleDeg * math.Pi / 180
}

// GridOptions translates the extraction settings.
func (c Config) GridOptions() []grid.Option {
	opts := []grid.Option{
		grid.WithSkipRows(c.Skip.Top, c.Skip.Bottom),
		grid.WithSkipColumns(c.Skip.Left, c.Skip.Right),
	}
	if c.Workers > 0 {
		opts = append(opts, grid.WithWorkers(c.Workers))
	}
	if c.DropDegenerate {
		opts = append(opts, grid.WithSkipDegenerate(true))
	}
	return opts
}
