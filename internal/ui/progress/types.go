package progress

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/buildctl/internal/ui/styles"
)

// State of a single step
type State int

const (
	StatePending State = iota
	StateInProgress
	StateComplete
	StateError
)

// Step is one line of a multi-step operation
type Step struct {
	Name   string
	State  State
	Detail string
	Err    error
}

// Icons used for step states
type Icons struct {
	Check   string
	Cross   string
	Pending string
	Warning string
	Spinner string
}

var (
	NerdFontIcons = Icons{
		Check:   "\uf00c",
		Cross:   "\uf00d",
		Pending: "\uf111",
		Warning: "\uf071",
		Spinner: "\uf110",
	}

	ASCIIIcons = Icons{
		Check:   "+",
		Cross:   "x",
		Pending: "o",
		Warning: "!",
		Spinner: "*",
	}
)

// GetIcons picks Nerd Font glyphs when BUILDCTL_NERD_FONTS=1
func GetIcons() Icons {
	if os.Getenv("BUILDCTL_NERD_FONTS") == "1" {
		return NerdFontIcons
	}
	return ASCIIIcons
}

var iconStyles = map[State]lipgloss.Style{
	StatePending:    lipgloss.NewStyle().Foreground(styles.Muted),
	StateInProgress: lipgloss.NewStyle().Foreground(styles.Primary),
	StateComplete:   lipgloss.NewStyle().Foreground(styles.Success),
	StateError:      lipgloss.NewStyle().Foreground(styles.Error),
}

var warningIcon = lipgloss.NewStyle().Foreground(styles.Warning)

// StyledIcon renders the icon of state
func StyledIcon(state State) string {
	icons := GetIcons()
	glyph := icons.Pending
	switch state {
	case StateComplete:
		glyph = icons.Check
	case StateError:
		glyph = icons.Cross
	case StateInProgress:
		glyph = icons.Spinner
	}
	return iconStyles[state].Render(glyph)
}

// StepStyle returns the text style of state
func StepStyle(state State) lipgloss.Style {
	switch state {
	case StateComplete:
		return styles.SuccessText
	case StateError:
		return styles.ErrorText
	case StateInProgress:
		return styles.NormalText.Bold(true)
	default:
		return styles.MutedText
	}
}

// Progress tracks the steps of one operation
type Progress struct {
	Title   string
	Steps   []Step
	Current int
	Percent float64 // 0-100 within the current step
	Detail  string  // transient detail of the current step
}

// NewProgress creates a progress with every step pending
func NewProgress(title string, names ...string) *Progress {
	p := &Progress{Title: title, Steps: make([]Step, len(names))}
	for i, name := range names {
		p.Steps[i] = Step{Name: name}
	}
	return p
}

func (p *Progress) current() *Step {
	if p.Current >= len(p.Steps) {
		return nil
	}
	return &p.Steps[p.Current]
}

// Start marks the current step in progress
func (p *Progress) Start() {
	if s := p.current(); s != nil {
		s.State = StateInProgress
		p.Percent, p.Detail = 0, ""
	}
}

// Complete finishes the current step and moves to the next
func (p *Progress) Complete() {
	if s := p.current(); s != nil {
		s.State = StateComplete
		s.Detail = ""
		p.Percent, p.Detail = 0, ""
		p.Current++
	}
}

// Fail marks the current step failed
func (p *Progress) Fail(err error) {
	if s := p.current(); s != nil {
		s.State = StateError
		s.Err = err
	}
}

// Done reports whether every step completed
func (p *Progress) Done() bool {
	for _, s := range p.Steps {
		if s.State != StateComplete {
			return false
		}
	}
	return true
}
