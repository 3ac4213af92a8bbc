package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/cortex/curves"
)

func TestSampleCurve(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, sampleCurve(curves.Linear, 3))
}

func TestPrintSpark(t *testing.T) {
	var buf bytes.Buffer
	printSpark(&buf, "Linear", 8, []float64{0, 0.5, 1})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Linear    "))
	assert.Contains(t, out, "▁")
	assert.Contains(t, out, "█")
	assert.Contains(t, out, "[0.00 .. 1.00]")
}

func TestRunPreviewWritesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curves.csv")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"Linear", "expr: 1 - x", "--samples", "5", "--csv", path})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, 2, strings.Count(out.String(), "\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows []sample
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 10)
	assert.Equal(t, sample{Curve: "expr: 1 - x", X: 0, Y: 1}, rows[5])
}
