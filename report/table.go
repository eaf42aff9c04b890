package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/njchilds90/gotaylor/taylor"
)

const cellWidth = 15

// center pads s on both sides to width; an odd remainder goes right.
func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

// stickyWriter keeps the first write error so a table can be written
// without checking every line.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) printf(format string, args ...interface{}) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

// WriteEvaluationTable writes rows as a fixed-width table with the columns
// x, exact, approximation and error, plus the Lagrange bound when withBound
// is set. A row that failed shows "Error" cells followed by the reason.
func WriteEvaluationTable(w io.Writer, rows []taylor.Evaluation, withBound bool) error {
	sw := &stickyWriter{w: w}
	rule := strings.Repeat("-", 60)
	headers := []string{"x", "Exact", "Approximation", "Error"}
	if withBound {
		rule = strings.Repeat("-", 80)
		headers = append(headers, "Error bound")
	}
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = center(h, cellWidth)
	}

	sw.printf("%s\n%s\n%s\n", rule, strings.Join(cells, " | "), rule)
	for _, r := range rows {
		if r.Err != nil {
			failed := make([]string, len(headers)-1)
			for i := range failed {
				failed[i] = center("Error", cellWidth)
			}
			sw.printf("%15.6f | %s - %v\n", r.X, strings.Join(failed, " | "), r.Err)
			continue
		}
		sw.printf("%15.6f | %15.6f | %15.6f | %15.6e", r.X, r.Exact, r.Approx, r.Error)
		if withBound {
			if r.BoundErr != nil {
				sw.printf(" | %s", center("n/a", cellWidth))
			} else {
				sw.printf(" | %15.6e", r.Bound)
			}
		}
		sw.printf("\n")
	}
	sw.printf("%s\n", rule)
	return sw.err
}
