// Package store persists multispeckle runs in SQLite: the per-frame block
// intensities streamed during extraction and the resulting ensemble
// correlation curves.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cwbudde/algo-speckle/dls/speckle"
)

var (
	ErrRunNotFound  = errors.New("store: run not found")
	ErrNotStarted   = errors.New("store: run frame before Begin")
	ErrCellMismatch = errors.New("store: cell count differs from Begin")
)

//go:embed schema.sql
var schemaSQL string

// DB is a speckle result database.
type DB struct {
	*sql.DB
}

// Open opens or creates the database at path and applies the schema. Use
// ":memory:" for a private in-memory database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{db}, nil
}

// RunInfo describes a stored run.
type RunInfo struct {
	ID        string
	Source    string
	BlockSize int
	Cells     int
	Frames    int
	CreatedAt time.Time
}

// Run records the block intensities of one extraction. It implements
// grid.Sink.
type Run struct {
	db    *DB
	id    string
	cells int
}

// StartRun registers a new run with a random id.
func (db *DB) StartRun(source string, blockSize int) (*Run, error) {
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO runs (run_id, source, block_size, created_at)
		VALUES (?, ?, ?, ?)`,
		id, source, blockSize, time.Now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: start run: %w", err)
	}
	return &Run{db: db, id: id, cells: -1}, nil
}

// ID returns the run id.
func (r *Run) ID() string {
	return r.id
}

// Begin records the number of cells per frame.
func (r *Run) Begin(cells int) error {
	if _, err := r.db.Exec(`UPDATE runs SET cells = ? WHERE run_id = ?`, cells, r.id); err != nil {
		return fmt.Errorf("store: begin run: %w", err)
	}
	r.cells = cells
	return nil
}

// Frame stores the block intensities of one frame in a single transaction.
func (r *Run) Frame(index int, intensities []float64) error {
	if r.cells < 0 {
		return ErrNotStarted
	}
	if len(intensities) != r.cells {
		return fmt.Errorf("%w: got %d, want %d", ErrCellMismatch, len(intensities), r.cells)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin frame tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO intensities (run_id, frame, cell, intensity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store: prepare frame insert: %w", err)
	}
	defer stmt.Close()

	for cell, v := range intensities {
		if _, err := stmt.Exec(r.id, index, cell, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: insert frame %d cell %d: %w", index, cell, err)
		}
	}
	if _, err := tx.Exec(`UPDATE runs SET frames = frames + 1 WHERE run_id = ?`, r.id); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: count frame: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit frame %d: %w", index, err)
	}
	return nil
}

// Runs lists stored runs, newest first.
func (db *DB) Runs() ([]RunInfo, error) {
	rows, err := db.Query(`
		SELECT run_id, source, block_size, cells, frames, created_at
		FROM runs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var ri RunInfo
		var created int64
		if err := rows.Scan(&ri.ID, &ri.Source, &ri.BlockSize, &ri.Cells, &ri.Frames, &created); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		ri.CreatedAt = time.Unix(0, created)
		out = append(out, ri)
	}
	return out, rows.Err()
}

// Run returns one stored run.
func (db *DB) Run(id string) (RunInfo, error) {
	var ri RunInfo
	var created int64
	err := db.QueryRow(`
		SELECT run_id, source, block_size, cells, frames, created_at
		FROM runs WHERE run_id = ?`, id,
	).Scan(&ri.ID, &ri.Source, &ri.BlockSize, &ri.Cells, &ri.Frames, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("store: query run: %w", err)
	}
	ri.CreatedAt = time.Unix(0, created)
	return ri, nil
}

// Trace returns the stored intensity trace of one cell in frame order.
func (db *DB) Trace(runID string, cell int) ([]float64, error) {
	rows, err := db.Query(`
		SELECT intensity FROM intensities
		WHERE run_id = ? AND cell = ?
		ORDER BY frame`, runID, cell)
	if err != nil {
		return nil, fmt.Errorf("store: query trace: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("store: scan trace: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LoadEnsemble rebuilds an updated ensemble from the stored intensities of
// a run.
func (db *DB) LoadEnsemble(runID string) (*speckle.Ensemble, error) {
	ri, err := db.Run(runID)
	if err != nil {
		return nil, err
	}

	e := speckle.NewEnsemble()
	for cell := 0; cell < ri.Cells; cell++ {
		trace, err := db.Trace(runID, cell)
		if err != nil {
			return nil, err
		}
		s, err := speckle.New(trace)
		if err != nil {
			return nil, fmt.Errorf("store: cell %d: %w", cell, err)
		}
		if err := e.Add(s); err != nil {
			return nil, err
		}
	}
	if err := e.Update(); err != nil {
		return nil, err
	}
	if err := e.SetDefaultTimeKey(); err != nil {
		return nil, err
	}
	return e, nil
}

// Curve is a stored ensemble correlation. Time is nil when the ensemble had
// no time key; FAKF holds NaN where it was undefined.
type Curve struct {
	Speckles int
	Average  float64
	Time     []float64
	IAKF     []float64
	FAKF     []float64
}

// SaveEnsemble stores the average, IAKF, FAKF and time key of an updated
// ensemble under label, replacing an earlier result with the same label.
func (db *DB) SaveEnsemble(runID, label string, e *speckle.Ensemble) error {
	avg, err := e.Average()
	if err != nil {
		return err
	}
	iakf, err := e.IAKF()
	if err != nil {
		return err
	}
	fakf, fakfErr := e.FAKF()
	if fakfErr != nil && !errors.Is(fakfErr, speckle.ErrDegenerateSequence) {
		return fakfErr
	}
	key, keyErr := e.TimeKey()
	if keyErr != nil && !errors.Is(keyErr, speckle.ErrNoTimeKey) {
		return keyErr
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin ensemble tx: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM ensembles WHERE run_id = ? AND label = ?`, runID, label); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: replace ensemble: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO ensembles (run_id, label, speckles, frames, average)
		VALUES (?, ?, ?, ?, ?)`,
		runID, label, e.Len(), len(iakf), avg,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: insert ensemble: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO correlations (run_id, label, lag, time, iakf, fakf)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store: prepare correlation insert: %w", err)
	}
	defer stmt.Close()

	for lag, g2 := range iakf {
		var t, g1 sql.NullFloat64
		if key != nil {
			t = sql.NullFloat64{Float64: key[lag], Valid: true}
		}
		if fakfErr == nil {
			g1 = sql.NullFloat64{Float64: fakf[lag], Valid: true}
		}
		if _, err := stmt.Exec(runID, label, lag, t, g2, g1); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: insert lag %d: %w", lag, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit ensemble: %w", err)
	}
	return nil
}

// Curve loads a stored ensemble correlation.
func (db *DB) Curve(runID, label string) (Curve, error) {
	var c Curve
	err := db.QueryRow(`
		SELECT speckles, average FROM ensembles
		WHERE run_id = ? AND label = ?`, runID, label,
	).Scan(&c.Speckles, &c.Average)
	if errors.Is(err, sql.ErrNoRows) {
		return Curve{}, fmt.Errorf("%w: %s/%s", ErrRunNotFound, runID, label)
	}
	if err != nil {
		return Curve{}, fmt.Errorf("store: query ensemble: %w", err)
	}

	rows, err := db.Query(`
		SELECT time, iakf, fakf FROM correlations
		WHERE run_id = ? AND label = ?
		ORDER BY lag`, runID, label)
	if err != nil {
		return Curve{}, fmt.Errorf("store: query correlations: %w", err)
	}
	defer rows.Close()

	hasTime := true
	for rows.Next() {
		var t, g1 sql.NullFloat64
		var g2 float64
		if err := rows.Scan(&t, &g2, &g1); err != nil {
			return Curve{}, fmt.Errorf("store: scan correlation: %w", err)
		}
		hasTime = hasTime && t.Valid
		c.Time = append(c.Time, t.Float64)
		c.IAKF = append(c.IAKF, g2)
		if g1.Valid {
			c.FAKF = append(c.FAKF, g1.Float64)
		} else {
			c.FAKF = append(c.FAKF, math.NaN())
		}
	}
	if err := rows.Err(); err != nil {
		return Curve{}, err
	}
	if !hasTime {
		c.Time = nil
	}
	return c, nil
}
