package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/njchilds90/gotaylor/symbolic"
	"github.com/njchilds90/gotaylor/taylor"
)

// WriteApproximation writes the function, expansion point, order, the
// series and its simplified form.
func WriteApproximation(w io.Writer, approx *taylor.Approximation) error {
	sw := &stickyWriter{w: w}
	sw.printf("Function: %s\n", approx.Function.Source())
	sw.printf("Expansion point: x0 = %s\n", formatPoint(approx.X0))
	sw.printf("Order: %d\n\n", approx.Order)
	sw.printf("Taylor approximation:\n%s\n\n", approx)
	if simplified, ok := approx.Simplified(); ok {
		sw.printf("Simplified form:\n%s\n\n", simplified)
		sw.printf("LaTeX:\n%s\n", symbolic.LaTeX(simplified))
	} else {
		sw.printf("Could not simplify: some derivatives have no finite value at x0\n")
	}
	return sw.err
}

// Export writes approx to path, creating parent directories as needed.
func Export(approx *taylor.Approximation, path string) error {
	var buf bytes.Buffer
	if err := WriteApproximation(&buf, approx); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("export approximation: %w", err)
	}
	return nil
}

func formatPoint(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
