package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/buildctl/internal/ui/styles"
)

// Messages driving a Model. Send them through tea.Program.Send from the
// goroutine doing the work.
type (
	StartStepMsg    struct{}
	CompleteStepMsg struct{}
	FailStepMsg     struct{ Err error }
	SubProgressMsg  struct {
		Percent float64
		Detail  string
	}
	DoneMsg struct{ Err error }
)

// Model renders a Progress with a spinner and a bar for the running step
type Model struct {
	progress *Progress
	spinner  spinner.Model
	bar      progress.Model
	err      error
}

// NewModel creates a model for the given steps
func NewModel(title string, steps ...string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	return Model{
		progress: NewProgress(title, steps...),
		spinner:  s,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-10, 40)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case StartStepMsg:
		m.progress.Start()

	case CompleteStepMsg:
		m.progress.Complete()
		if m.progress.Done() {
			return m, tea.Quit
		}

	case FailStepMsg:
		m.progress.Fail(msg.Err)
		m.err = msg.Err
		return m, tea.Quit

	case SubProgressMsg:
		m.progress.Percent = msg.Percent
		m.progress.Detail = msg.Detail
		return m, m.bar.SetPercent(msg.Percent / 100)

	case DoneMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styles.NormalText.Bold(true).Render(m.progress.Title))
	b.WriteString("\n\n")

	for _, step := range m.progress.Steps {
		icon := StyledIcon(step.State)
		if step.State == StateInProgress {
			icon = m.spinner.View()
		}
		fmt.Fprintf(&b, "  %s %s\n", icon, StepStyle(step.State).Render(step.Name))

		if step.State != StateInProgress || m.progress.Percent <= 0 {
			continue
		}
		if m.progress.Detail != "" {
			b.WriteString("      " + styles.MutedText.Render(m.progress.Detail) + "\n")
		}
		b.WriteString("    " + m.bar.View() + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Err returns the failure that ended the run, if any
func (m Model) Err() error {
	return m.err
}
