package speckle

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTable(t *testing.T, s string) (header string, rows [][]float64) {
	t.Helper()
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 3, "row %q", line)
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			require.NoError(t, err)
			row[i] = v
		}
		rows = append(rows, row)
	}
	return lines[0], rows
}

func TestWriteTable(t *testing.T) {
	e := NewEnsemble(threeSpeckles(t)...)
	require.NoError(t, e.Update())
	require.NoError(t, e.CreateTimeKey([]int{4}, []float64{0.5}))

	var buf bytes.Buffer
	require.NoError(t, e.WriteTable(&buf))

	header, rows := parseTable(t, buf.String())
	assert.Equal(t, "time\tFAKF\tIAKF", header)
	require.Len(t, rows, 4)

	iakf, err := e.IAKF()
	require.NoError(t, err)
	fakf, err := e.FAKF()
	require.NoError(t, err)
	for i, row := range rows {
		assert.InDelta(t, 0.5*float64(i+1), row[0], 1e-12)
		assert.InDelta(t, fakf[i], row[1], 1e-15)
		assert.InDelta(t, iakf[i], row[2], 1e-15)
	}
}

func TestWriteTableReadsBackAsTSV(t *testing.T) {
	e := NewEnsemble(threeSpeckles(t)...)
	require.NoError(t, e.Update())
	require.NoError(t, e.SetDefaultTimeKey())

	var buf bytes.Buffer
	require.NoError(t, e.WriteTable(&buf))

	r := csv.NewReader(&buf)
	r.Comma = '\t'
	r.FieldsPerRecord = 3
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"time", "FAKF", "IAKF"}, records[0])
	assert.Equal(t, []string{"1", "1"}, records[1][:2])
}

func TestWriteTableDegenerateFAKF(t *testing.T) {
	e := NewEnsemble(mustSpeckle(t, 2, 2, 2))
	require.NoError(t, e.Update())
	require.NoError(t, e.SetDefaultTimeKey())

	var buf bytes.Buffer
	require.NoError(t, e.WriteTable(&buf))

	_, rows := parseTable(t, buf.String())
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.True(t, math.IsNaN(row[1]))
		assert.InDelta(t, 1.0, row[2], 1e-12)
	}
}

func TestWriteTableErrors(t *testing.T) {
	e := NewEnsemble(threeSpeckles(t)...)
	var buf bytes.Buffer
	require.ErrorIs(t, e.WriteTable(&buf), ErrNotUpdated)

	require.NoError(t, e.Update())
	require.ErrorIs(t, e.WriteTable(&buf), ErrNoTimeKey)
	assert.Zero(t, buf.Len())
}

type failingWriter struct{}

var errWrite = errors.New("write failed")

func (failingWriter) Write([]byte) (int, error) { return 0, errWrite }

func TestWriteTablePropagatesWriterError(t *testing.T) {
	e := NewEnsemble(threeSpeckles(t)...)
	require.NoError(t, e.Update())
	require.NoError(t, e.SetDefaultTimeKey())
	require.ErrorIs(t, e.WriteTable(failingWriter{}), errWrite)
}
