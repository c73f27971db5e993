package progress

import (
	"regexp"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

var gitProgressLine = regexp.MustCompile(`^(Counting objects|Compressing objects|Receiving objects|Resolving deltas):\s+(\d+)%(?:\s+\((\d+)/(\d+)\))?`)

// GitWriter turns the sideband output of a clone or fetch into
// SubProgressMsg values
type GitWriter struct {
	program *tea.Program
}

// NewGitWriter creates a writer sending to p
func NewGitWriter(p *tea.Program) *GitWriter {
	return &GitWriter{program: p}
}

func (w *GitWriter) Write(p []byte) (int, error) {
	// Sideband lines are terminated by \r while a phase is running
	for _, line := range strings.FieldsFunc(string(p), func(r rune) bool { return r == '\r' || r == '\n' }) {
		if percent, detail, ok := parseGitProgress(line); ok {
			w.program.Send(SubProgressMsg{Percent: percent, Detail: detail})
		}
	}
	return len(p), nil
}

func parseGitProgress(line string) (float64, string, bool) {
	m := gitProgressLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, "", false
	}
	percent, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, "", false
	}
	detail := m[1]
	if m[3] != "" {
		detail += ": " + m[3] + "/" + m[4]
	}
	return percent, detail, true
}
