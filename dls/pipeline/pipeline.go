// Package pipeline runs a complete multispeckle evaluation: frames are read
// from a directory, reduced to block intensities, collected into an
// ensemble, optionally narrowed to an extremal sub-ensemble, fitted and
// written to the configured outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sgostarter/i/l"

	"github.com/cwbudde/algo-speckle/dls/frames"
	"github.com/cwbudde/algo-speckle/dls/grid"
	"github.com/cwbudde/algo-speckle/dls/model"
	"github.com/cwbudde/algo-speckle/dls/speckle"
	"github.com/cwbudde/algo-speckle/dls/store"
	"github.com/cwbudde/algo-speckle/internal/config"
	"github.com/cwbudde/algo-speckle/stats/intensity"
)

// Store labels of the saved ensembles.
const (
	LabelAll      = "all"
	LabelExtremes = "extremes"
)

// Runner executes runs against a frame file system. Outputs are created
// through Create, which defaults to os.Create.
type Runner struct {
	FS     fs.FS
	Create func(name string) (io.WriteCloser, error)
	Logger l.Wrapper
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Frames   int
	Ensemble *speckle.Ensemble
	Skipped  []int // dark cells left out with drop_degenerate
	Extremes *speckle.Ensemble
	Stats    speckle.Stats
	Fit      *Fit
	FitErr   error

	// SpatialContrast summarizes the per-frame contrast across blocks;
	// TemporalContrast summarizes the per-speckle contrast over time.
	SpatialContrast  intensity.Stats
	TemporalContrast intensity.Stats
}

// Fit holds the decay fits of the ensemble curve and, with optics
// configured, the derived particle size.
type Fit struct {
	Points    int
	Single    model.SingleExp
	Cumulant  *model.Cumulant2
	Diffusion float64 // m^2/s, zero without optics
	Radius    float64 // m, zero without optics
}

func (r *Runner) logger() l.Wrapper {
	if r.Logger == nil {
		return l.NewNopLoggerWrapper()
	}
	return r.Logger
}

func (r *Runner) create(name string) (io.WriteCloser, error) {
	if r.Create != nil {
		return r.Create(name)
	}
	return os.Create(name)
}

// Run evaluates cfg. The returned result is nil on error.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (res *Result, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := r.logger().WithFields(l.StringField(l.ClsKey, "pipeline"), l.StringField("frames", cfg.Frames))

	spatial := &intensity.ContrastSink{}
	sinks := []grid.Sink{spatial}
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil && err == nil {
				err, res = fmt.Errorf("pipeline: close output: %w", cerr), nil
			}
		}
	}()

	if name := cfg.Output.IntensityTable; name != "" {
		w, err := r.create(name)
		if err != nil {
			return nil, fmt.Errorf("pipeline: create intensity table: %w", err)
		}
		closers = append(closers, w)
		sinks = append(sinks, grid.NewTableSink(w))
	}

	var db *store.DB
	var run *store.Run
	if path := cfg.Output.SQLite; path != "" {
		db, err = store.Open(path)
		if err != nil {
			return nil, err
		}
		closers = append(closers, db)
		run, err = db.StartRun(cfg.Frames, cfg.BlockSize)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, run)
		logger = logger.WithFields(l.StringField("run", run.ID()))
	}

	opts := append(cfg.GridOptions(), grid.WithSink(grid.MultiSink(sinks...)))
	x, err := grid.NewExtractor(cfg.BlockSize, opts...)
	if err != nil {
		return nil, err
	}

	n, err := frames.NewLoader(r.FS, cfg.Frames, logger).Feed(ctx, x)
	if err != nil {
		logger.WithFields(l.ErrorField(err), l.IntField("read", n)).Error("reading frames failed")
		return nil, err
	}
	rows, cols := x.Grid()
	logger.WithFields(l.IntField("frames", n), l.IntField("rows", rows), l.IntField("cols", cols)).Info("frames reduced")

	e, err := x.Ensemble()
	if err != nil {
		logger.WithFields(l.ErrorField(err)).Error("building ensemble failed")
		return nil, err
	}
	if len(cfg.TimeKey.Counts) > 0 {
		if err := e.CreateTimeKey(cfg.TimeKey.Counts, cfg.TimeKey.Steps); err != nil {
			return nil, err
		}
	}

	stats, err := e.Stats()
	if err != nil {
		return nil, err
	}
	logger.WithFields(l.StringField("stats", stats.String())).Info("ensemble updated")

	res = &Result{
		Frames:           n,
		Ensemble:         e,
		Skipped:          x.Skipped(),
		Stats:            stats,
		SpatialContrast:  spatial.Summary(),
		TemporalContrast: temporalContrast(e),
	}
	logger.WithFields(
		l.StringField("spatial", fmt.Sprintf("%.4g", res.SpatialContrast.Mean)),
		l.StringField("temporal", fmt.Sprintf("%.4g", res.TemporalContrast.Mean)),
	).Debug("speckle contrast")
	if run != nil {
		res.RunID = run.ID()
	}
	if len(res.Skipped) > 0 {
		logger.WithFields(l.IntField("cells", len(res.Skipped))).Info("dark cells dropped")
	}

	if cfg.Extremes.Enabled() {
		res.Extremes, err = extremes(e, cfg.Extremes)
		if err != nil {
			logger.WithFields(l.ErrorField(err)).Error("selecting extremes failed")
			return nil, err
		}
		logger.WithFields(l.IntField("speckles", res.Extremes.Len())).Info("extremes selected")
	}

	if name := cfg.Output.EnsembleTable; name != "" {
		if err := r.writeTable(name, e); err != nil {
			return nil, err
		}
	}

	if db != nil {
		if err := db.SaveEnsemble(run.ID(), LabelAll, e); err != nil {
			return nil, err
		}
		if res.Extremes != nil {
			if err := db.SaveEnsemble(run.ID(), LabelExtremes, res.Extremes); err != nil {
				return nil, err
			}
		}
	}

	res.Fit, res.FitErr = fit(e, cfg)
	if res.FitErr != nil {
		logger.WithFields(l.ErrorField(res.FitErr)).Error("decay fit failed")
	} else {
		logger.WithFields(l.StringField("model", model.String(res.Fit.Single)), l.IntField("points", res.Fit.Points)).Info("decay fitted")
	}
	return res, nil
}

func (r *Runner) writeTable(name string, e *speckle.Ensemble) error {
	w, err := r.create(name)
	if err != nil {
		return fmt.Errorf("pipeline: create ensemble table: %w", err)
	}
	if err := e.WriteTable(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// temporalContrast returns the statistics of the per-speckle contrast.
func temporalContrast(e *speckle.Ensemble) intensity.Stats {
	sp := e.Speckles()
	ks := make([]float64, len(sp))
	for i, s := range sp {
		ks[i] = intensity.Contrast(s.Intensity())
	}
	return intensity.Calculate(ks)
}

func extremes(e *speckle.Ensemble, sel config.Extremes) (*speckle.Ensemble, error) {
	side, err := sel.SideValue()
	if err != nil {
		return nil, err
	}
	rank, err := sel.Ranker()
	if err != nil {
		return nil, err
	}
	return e.Extremes(sel.Fraction, sel.Lag, side, rank)
}

var errNoFitPoints = errors.New("pipeline: no positive correlation to fit")

// fit fits g2-1 with a single exponential and g1 with a second order
// cumulant over the lags after 0 that are still positive.
func fit(e *speckle.Ensemble, cfg config.Config) (*Fit, error) {
	iakf, err := e.IAKF()
	if err != nil {
		return nil, err
	}
	key, err := e.TimeKey()
	if err != nil {
		return nil, err
	}

	g2 := make([]float64, len(iakf)-1)
	for i := range g2 {
		g2[i] = iakf[i+1] - 1
	}
	points := model.LeadingPositive(g2)
	if cfg.Fit.Points > 0 {
		points = min(points, cfg.Fit.Points)
	}
	if points == 0 {
		return nil, errNoFitPoints
	}
	t := key[1 : points+1]

	single, err := model.FitSingleExp(t, g2[:points])
	if err != nil {
		return nil, err
	}
	f := &Fit{Points: points, Single: single}

	if fakf, err := e.FAKF(); err == nil {
		if c, err := model.FitCumulant2(t, fakf[1:points+1]); err == nil {
			f.Cumulant = &c
		}
	}

	if o := cfg.Optics; o != nil {
		q, err := model.ScatteringVector(o.RefractiveIndex, o.Wavelength, o.AngleRad())
		if err != nil {
			return nil, err
		}
		if f.Diffusion, err = model.DiffusionCoefficient(single.B, q); err != nil {
			return nil, err
		}
		if f.Radius, err = model.HydrodynamicRadius(f.Diffusion, o.Viscosity, o.Temperature); err != nil {
			return nil, err
		}
	}
	return f, nil
}
