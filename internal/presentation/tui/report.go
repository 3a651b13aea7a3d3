package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Check is the outcome of validating one form file.
type Check struct {
	Path  string
	Forms []string
	Err   error
}

// PrintReport writes one line per check, coloured when w supports it, and
// returns the number of failures.
func PrintReport(w io.Writer, checks []Check) int {
	out := termenv.NewOutput(w)
	ok := out.String("ok  ").Foreground(out.Color("2")).Bold()
	fail := out.String("FAIL").Foreground(out.Color("1")).Bold()

	failures := 0
	for _, c := range checks {
		if c.Err != nil {
			failures++
			fmt.Fprintf(w, "%s %s\n     %s\n", fail, c.Path, out.String(c.Err.Error()).Faint())
			continue
		}
		fmt.Fprintf(w, "%s %s %v\n", ok, c.Path, c.Forms)
	}

	summary := fmt.Sprintf("%d file(s), %d failure(s)", len(checks), failures)
	if failures > 0 {
		fmt.Fprintln(w, out.String(summary).Foreground(out.Color("1")))
	} else {
		fmt.Fprintln(w, out.String(summary).Foreground(out.Color("2")))
	}
	return failures
}
