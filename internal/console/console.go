// Package console prints the human-readable banners and status markers
// that accompany every step of a ship run.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// separator is the rule printed above and below each step description.
var separator = strings.Repeat("=", 60)

// Console writes step banners and outcome markers to a writer.
type Console struct {
	w io.Writer

	title   *color.Color
	success *color.Color
	failure *color.Color
	warning *color.Color
	dim     *color.Color
}

// New returns a Console writing to w. Colour is applied only when useColor
// is true.
func New(w io.Writer, useColor bool) *Console {
	c := &Console{
		w:       w,
		title:   color.New(color.Bold),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		warning: color.New(color.FgYellow),
		dim:     color.New(color.Faint),
	}
	for _, col := range []*color.Color{c.title, c.success, c.failure, c.warning, c.dim} {
		if useColor {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// ShouldColor reports whether output to f should be coloured: f must be a
// terminal and NO_COLOR must be unset.
func ShouldColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Discard returns a Console that writes nowhere.
func Discard() *Console {
	return New(io.Discard, false)
}

// Start prints the opening banner for a run in workspace.
func (c *Console) Start(workspace string) {
	c.title.Fprintf(c.w, "\n🚀 Starting git commit and push in %s\n", workspace)
	fmt.Fprintln(c.w, separator)
}

// Banner prints the framed description that precedes a step.
func (c *Console) Banner(description string) {
	fmt.Fprintf(c.w, "\n%s\n", separator)
	c.title.Fprintf(c.w, "📝 %s\n", description)
	fmt.Fprintln(c.w, separator)
}

// Output echoes captured standard output verbatim. Empty output prints nothing.
func (c *Console) Output(stdout []byte) {
	if len(stdout) == 0 {
		return
	}
	fmt.Fprintln(c.w, string(stdout))
}

// Truncated notes that the output echoed above was cut at the configured
// max_output.
func (c *Console) Truncated() {
	c.dim.Fprintln(c.w, "(output truncated at max_output)")
}

// Success prints the success marker.
func (c *Console) Success() {
	c.success.Fprintln(c.w, "✅ Success!")
}

// Failure prints captured standard error behind the failure marker.
func (c *Console) Failure(stderr []byte) {
	c.failure.Fprintf(c.w, "❌ Error: %s\n", stderr)
}

// Exception prints a diagnostic for a command that could not be started.
func (c *Console) Exception(err error) {
	c.failure.Fprintf(c.w, "❌ Exception: %v\n", err)
}

// Warning prints msg behind the warning marker.
func (c *Console) Warning(msg string) {
	c.warning.Fprintf(c.w, "\n⚠️  Warning: %s\n", msg)
}

// Fatal prints a diagnostic for a condition that stops the run.
func (c *Console) Fatal(msg string) {
	c.failure.Fprintf(c.w, "❌ Error: %s\n", msg)
}

// Info prints a plain informational line.
func (c *Console) Info(msg string) {
	fmt.Fprintln(c.w, msg)
}

// Summary prints the closing banner. warned is true when a tolerated step
// failed along the way.
func (c *Console) Summary(branch string, warned bool) {
	fmt.Fprintf(c.w, "\n%s\n", separator)
	if warned {
		c.warning.Fprintln(c.w, "⚠️  Git operations completed with warnings")
	} else {
		c.success.Fprintln(c.w, "✅ All git operations completed successfully!")
	}
	if branch != "" {
		c.dim.Fprintf(c.w, "   Branch: %s\n", branch)
	}
	fmt.Fprintln(c.w, separator)
}
