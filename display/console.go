package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Console writes timestamped, coloured lines to a terminal.
type Console struct {
	label string
	out   io.Writer
	mu    sync.Mutex

	ok      *color.Color
	warn    *color.Color
	neutral *color.Color
}

// NewConsole creates a console sink.
//
// Arguments:
//   - label: Short tag printed before every line, e.g. "output" or "timer".
//   - out: Destination writer, os.Stdout when nil.
//
// Returns:
//   - *Console: The console sink.
//
// @example
// sink := display.NewConsole("output", nil)
// sink.Show("Monitoring: Pose is correct.")
func NewConsole(label string, out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		label:   label,
		out:     out,
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow, color.Bold),
		neutral: color.New(color.FgCyan),
	}
}

// Show prints the message, green when the pose is correct, yellow for corrections.
func (c *Console) Show(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := fmt.Sprintf("[%s] %-6s %s\n", time.Now().Format("15:04:05.000"), c.label, text)
	c.colorFor(text).Fprint(c.out, line)
}

func (c *Console) colorFor(text string) *color.Color {
	switch {
	case strings.Contains(text, "Pose is correct"), strings.Contains(text, "complete"):
		return c.ok
	case strings.Contains(text, "move "), strings.Contains(text, "failed"):
		return c.warn
	default:
		return c.neutral
	}
}
