package report_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotaylor/report"
	"github.com/njchilds90/gotaylor/taylor"
)

func TestWriteEvaluationTable(t *testing.T) {
	rows := []taylor.Evaluation{
		{X: 1, Exact: math.E, Approx: 2.5, Error: math.E - 2.5, Bound: math.E / 6},
		{X: 0, Exact: math.NaN(), Approx: 1, Error: math.NaN(), Err: errors.New("boom")},
	}
	var buf bytes.Buffer
	require.NoError(t, report.WriteEvaluationTable(&buf, rows, false))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	rule := strings.Repeat("-", 60)
	assert.Equal(t, rule, lines[0])
	assert.Equal(t, "       x        |      Exact      |  Approximation  |      Error     ", lines[1])
	assert.Equal(t, rule, lines[2])
	assert.Equal(t, "       1.000000 |        2.718282 |        2.500000 |    2.182818e-01", lines[3])
	cell := "     Error     "
	assert.Equal(t, "       0.000000 | "+cell+" | "+cell+" | "+cell+" - boom", lines[4])
	assert.Equal(t, rule, lines[5])
}

func TestWriteEvaluationTable_WithBound(t *testing.T) {
	rows := []taylor.Evaluation{
		{X: 1, Exact: math.E, Approx: 2.5, Error: math.E - 2.5, Bound: math.E / 6},
		{X: 2, Exact: 1, Approx: 1, Error: 0, BoundErr: errors.New("no samples")},
	}
	var buf bytes.Buffer
	require.NoError(t, report.WriteEvaluationTable(&buf, rows, true))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, strings.Repeat("-", 80), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "|   Error bound  "), lines[1])
	assert.True(t, strings.HasSuffix(lines[3], " |    4.530470e-01"), lines[3])
	assert.True(t, strings.HasSuffix(lines[4], " |       n/a      "), lines[4])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteEvaluationTable_WriteError(t *testing.T) {
	err := report.WriteEvaluationTable(failingWriter{}, nil, false)
	assert.EqualError(t, err, "disk full")
}
