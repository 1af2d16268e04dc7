package jobmonitor

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console is a styled mirror writer for verbose runs. Each line written
// to the job log is echoed to the console prefixed with the job name.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	prefixStyle lipgloss.Style
	lineStyle   lipgloss.Style
	prefix      string
}

// NewConsole returns a Console writing to out, tagging lines with jobName.
func NewConsole(out io.Writer, jobName string) *Console {
	return &Console{
		out:         out,
		prefixStyle: lipgloss.NewStyle().Faint(true),
		lineStyle:   lipgloss.NewStyle(),
		prefix:      jobName,
	}
}

// Write implements io.Writer; input is assumed line-oriented.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := string(p)
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	_, err := fmt.Fprintln(c.out,
		c.prefixStyle.Render(c.prefix+" |"),
		c.lineStyle.Render(line))
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
