package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the formwire banner to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"   __                              _          ", "#818cf8"},
		{"  / _| ___  _ __ _ __ _____      _(_)_ __ ___ ", "#a78bfa"},
		{" | |_ / _ \\| '__| '_ ` _ \\ \\ /\\ / / | '__/ _ \\", "#c084fc"},
		{" |  _| (_) | |  | | | | | \\ V  V /| | | |  __/", "#e879f9"},
		{" |_|  \\___/|_|  |_| |_| |_|\\_/\\_/ |_|_|  \\___|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+version).Faint())
	fmt.Fprintln(w)
}
