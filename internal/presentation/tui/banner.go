package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Pulse ASCII art banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Using a subtle gradient-like color scheme (Teal/Cyan)
	lines := []struct {
		text  string
		color string
	}{
		{"  ____        _          ", "#2dd4bf"},
		{" |  _ \\ _   _| |___  ___ ", "#22d3ee"},
		{" | |_) | | | | / __|/ _ \\", "#38bdf8"},
		{" |  __/| |_| | \\__ \\  __/", "#60a5fa"},
		{" |_|    \\__,_|_|___/\\___|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+version).Faint())
	fmt.Fprintln(w)
}
