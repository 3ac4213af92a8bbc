// Curve preview tool - prints response curves as sparklines and optionally
// writes the samples as CSV.
//
// Usage: go run ./cmd/curvepreview [curve...] [--csv out.csv]
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/cortex/curves"
)

var sparks = []rune("▁▂▃▄▅▆▇█")

// sample is one row of the CSV output.
type sample struct {
	Curve string  `csv:"curve"`
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
}

var (
	samples int
	csvPath string
)

var rootCmd = &cobra.Command{
	Use:   "curvepreview [curve...]",
	Short: "Preview consideration response curves",
	Long: `Samples each named curve over [0,1]. Names may be library curves or
expressions prefixed with "expr:", e.g. "expr: 1 - x*x". With no arguments
every library curve is shown.`,
	RunE:         runPreview,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().IntVar(&samples, "samples", 32, "Samples per curve")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "Write samples to this CSV file")
}

func runPreview(cmd *cobra.Command, args []string) error {
	if samples < 2 {
		return fmt.Errorf("--samples must be at least 2, got %d", samples)
	}
	lib := curves.NewLibrary()
	names := args
	if len(names) == 0 {
		names = lib.Names()
	}

	var rows []sample
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		c, err := lib.Resolve(name)
		if err != nil {
			return err
		}
		ys := sampleCurve(c, samples)
		for i, y := range ys {
			rows = append(rows, sample{Curve: name, X: xAt(i, samples), Y: y})
		}
		printSpark(cmd.OutOrStdout(), name, width, ys)
	}

	if csvPath == "" {
		return nil
	}
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", csvPath, err)
	}
	defer f.Close()
	return gocsv.MarshalFile(&rows, f)
}

func xAt(i, n int) float64 {
	return float64(i) / float64(n-1)
}

// sampleCurve evaluates c at n evenly spaced points in [0,1], clamped.
func sampleCurve(c curves.Curve, n int) []float64 {
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = curves.Eval(c, xAt(i, n))
	}
	return ys
}

func printSpark(w io.Writer, name string, width int, ys []float64) {
	var b strings.Builder
	for _, y := range ys {
		idx := int(y * float64(len(sparks)-1))
		b.WriteRune(sparks[min(max(idx, 0), len(sparks)-1)])
	}
	fmt.Fprintf(w, "%-*s  %s  [%.2f .. %.2f]\n", width, name, b.String(), ys[0], ys[len(ys)-1])
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
