package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-speckle/dls/frames"
	"github.com/cwbudde/algo-speckle/dls/grid"
	"github.com/cwbudde/algo-speckle/dls/speckle"
	"github.com/cwbudde/algo-speckle/dls/store"
	"github.com/cwbudde/algo-speckle/internal/config"
	"github.com/cwbudde/algo-speckle/internal/testutil"
)

const (
	frameSide = 8
	blockSize = 2
	cells     = (frameSide / blockSize) * (frameSide / blockSize)
	nFrames   = 256
	tau       = 4.0
)

// acquisition renders nFrames 16-bit frames in which every block follows
// its own speckle trace. Dead cells stay black.
func acquisition(t *testing.T, dead ...int) fstest.MapFS {
	t.Helper()
	traces := make([][]float64, cells)
	for c := range traces {
		traces[c] = testutil.SpeckleTrace(int64(c+1), 2000, tau, nFrames)
	}
	for _, c := range dead {
		traces[c] = make([]float64, nFrames)
	}

	fsys := fstest.MapFS{}
	for f := 0; f < nFrames; f++ {
		img := image.NewGray16(image.Rect(0, 0, frameSide, frameSide))
		for y := 0; y < frameSide; y++ {
			for x := 0; x < frameSide; x++ {
				c := (y/blockSize)*(frameSide/blockSize) + x/blockSize
				v := math.Round(math.Min(traces[c][f], 65535))
				if traces[c][f] > 0 {
					v = math.Max(v, 1)
				}
				img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
			}
		}
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		fsys[fmt.Sprintf("run/frame%d.png", f+1)] = &fstest.MapFile{Data: buf.Bytes()}
	}
	return fsys
}

type memFile struct {
	bytes.Buffer
	closed bool
}

func (m *memFile) Close() error {
	m.closed = true
	return nil
}

type memOutputs struct {
	mu    sync.Mutex
	files map[string]*memFile
}

func (o *memOutputs) create(name string) (io.WriteCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.files == nil {
		o.files = map[string]*memFile{}
	}
	f := &memFile{}
	o.files[name] = f
	return f, nil
}

func baseConfig() config.Config {
	cfg := config.Default()
	cfg.Frames = "run"
	cfg.BlockSize = blockSize
	cfg.TimeKey = config.TimeKey{Counts: []int{nFrames}, Steps: []float64{0.001}}
	cfg.Fit.Points = 5
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	fsys := acquisition(t)
	dbPath := filepath.Join(t.TempDir(), "speckle.db")

	cfg := baseConfig()
	cfg.Extremes = config.Extremes{Fraction: 0.25, Lag: 1, Side: "best", Rank: "iakf"}
	cfg.Optics = &config.Optics{
		RefractiveIndex: 1.33,
		Wavelength:      632.8e-9,
		AngleDeg:        90,
		Viscosity:       1.002e-3,
		Temperature:     293.15,
	}
	cfg.Output = config.Output{
		IntensityTable: "run.asc",
		EnsembleTable:  "enslog.asc",
		SQLite:         dbPath,
	}

	out := &memOutputs{}
	r := &Runner{FS: fsys, Create: out.create}
	res, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, nFrames, res.Frames)
	assert.Equal(t, cells, res.Ensemble.Len())
	assert.Equal(t, nFrames, res.Stats.Frames)
	assert.InDelta(t, 2000, res.Stats.Average, 400)
	require.NotNil(t, res.Extremes)
	assert.Equal(t, cells/4, res.Extremes.Len())

	assert.Equal(t, nFrames, res.SpatialContrast.Length)
	assert.Greater(t, res.SpatialContrast.Mean, 0.0)
	assert.Equal(t, cells, res.TemporalContrast.Length)
	assert.InDelta(t, 1.0, res.TemporalContrast.Mean, 0.5)

	fakf, err := res.Ensemble.FAKF()
	require.NoError(t, err)
	assert.Equal(t, 1.0, fakf[0])

	require.NoError(t, res.FitErr)
	require.NotNil(t, res.Fit)
	assert.Equal(t, 5, res.Fit.Points)
	// g2-1 decays as exp(-2t/(tau*dt)), so the rate is near 250/s.
	assert.Greater(t, res.Fit.Single.B, 50.0)
	assert.Less(t, res.Fit.Single.B, 2000.0)
	assert.Greater(t, res.Fit.Radius, 0.0)
	assert.Greater(t, res.Fit.Diffusion, 0.0)

	table := out.files["run.asc"]
	require.NotNil(t, table)
	assert.True(t, table.closed)
	lines := strings.Split(strings.TrimSuffix(table.String(), "\n"), "\n")
	require.Len(t, lines, nFrames+1)
	assert.True(t, strings.HasPrefix(lines[0], "Im. No.\tSpeckle 0\t"))
	assert.True(t, strings.HasPrefix(lines[2], "2\t"))

	ens := out.files["enslog.asc"]
	require.NotNil(t, ens)
	lines = strings.Split(strings.TrimSuffix(ens.String(), "\n"), "\n")
	require.Len(t, lines, nFrames+1)
	assert.Equal(t, "time\tFAKF\tIAKF", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0.001\t1\t"))

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	ri, err := db.Run(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, cells, ri.Cells)
	assert.Equal(t, nFrames, ri.Frames)

	all, err := db.Curve(res.RunID, LabelAll)
	require.NoError(t, err)
	iakf, err := res.Ensemble.IAKF()
	require.NoError(t, err)
	assert.Equal(t, iakf, all.IAKF)

	ext, err := db.Curve(res.RunID, LabelExtremes)
	require.NoError(t, err)
	assert.Equal(t, cells/4, ext.Speckles)
}

func TestRunMinimal(t *testing.T) {
	cfg := baseConfig()
	cfg.TimeKey = config.TimeKey{}

	res, err := (&Runner{FS: acquisition(t)}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Nil(t, res.Extremes)

	key, err := res.Ensemble.TimeKey()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, key[0], 0)
	assert.InDelta(t, float64(nFrames), key[nFrames-1], 0)
	require.NoError(t, res.FitErr)
	assert.Zero(t, res.Fit.Radius)
}

func TestRunDeadCells(t *testing.T) {
	fsys := acquisition(t, 0, 5)
	cfg := baseConfig()

	_, err := (&Runner{FS: fsys}).Run(context.Background(), cfg)
	require.ErrorIs(t, err, speckle.ErrDegenerateSequence)
	var cellErr *grid.CellError
	require.ErrorAs(t, err, &cellErr)

	cfg.DropDegenerate = true
	res, err := (&Runner{FS: fsys}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5}, res.Skipped)
	assert.Equal(t, cells-2, res.Ensemble.Len())
	assert.Equal(t, cells-2, res.TemporalContrast.Length)

	fakf, err := res.Ensemble.FAKF()
	require.NoError(t, err)
	assert.Equal(t, 1.0, fakf[0])
}

func TestRunErrors(t *testing.T) {
	fsys := acquisition(t)
	ctx := context.Background()

	cfg := baseConfig()
	cfg.BlockSize = 3
	_, err := (&Runner{FS: fsys}).Run(ctx, cfg)
	require.Error(t, err)

	cfg = baseConfig()
	cfg.Frames = "missing"
	_, err = (&Runner{FS: fsys}).Run(ctx, cfg)
	require.Error(t, err)

	cfg = baseConfig()
	cfg.Frames = "empty"
	_, err = (&Runner{FS: fstest.MapFS{"empty/readme.txt": &fstest.MapFile{}}}).Run(ctx, cfg)
	require.ErrorIs(t, err, frames.ErrNoFrames)

	cfg = baseConfig()
	cfg.TimeKey = config.TimeKey{Counts: []int{10}, Steps: []float64{1}}
	_, err = (&Runner{FS: fsys}).Run(ctx, cfg)
	require.ErrorIs(t, err, speckle.ErrLengthMismatch)

	cfg = baseConfig()
	cfg.BlockSize = 0
	_, err = (&Runner{FS: fsys}).Run(ctx, cfg)
	require.ErrorIs(t, err, config.ErrInvalid)

	boom := errors.New("read-only")
	cfg = baseConfig()
	cfg.Output.EnsembleTable = "enslog.asc"
	_, err = (&Runner{FS: fsys, Create: func(string) (io.WriteCloser, error) { return nil, boom }}).Run(ctx, cfg)
	require.ErrorIs(t, err, boom)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = (&Runner{FS: fsys}).Run(cancelled, baseConfig())
	require.ErrorIs(t, err, context.Canceled)
}
