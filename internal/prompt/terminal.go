package prompt

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFC107"))
	hintStyle     = lipgloss.NewStyle().Faint(true)
	yesStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	noStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
)

// confirmModel is a single-keystroke yes/no prompt.
type confirmModel struct {
	question string
	answered bool
	accepted bool
}

func newConfirmModel(question string) confirmModel {
	return confirmModel{question: question}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answered = true
		m.accepted = true
		return m, tea.Quit
	case "n", "N", "enter", "esc", "ctrl+c", "q":
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	q := questionStyle.Render(m.question)
	if !m.answered {
		return fmt.Sprintf("%s %s ", q, hintStyle.Render("[y/N]"))
	}
	if m.accepted {
		return fmt.Sprintf("%s %s\n", q, yesStyle.Render("yes"))
	}
	return fmt.Sprintf("%s %s\n", q, noStyle.Render("no"))
}

// TerminalConfirmer asks with a bubbletea prompt that reacts to a single key.
type TerminalConfirmer struct {
	in   io.Reader
	out  io.Writer
	opts []tea.ProgramOption
}

// NewTerminalConfirmer creates a TerminalConfirmer reading keys from in.
func NewTerminalConfirmer(in io.Reader, out io.Writer, opts ...tea.ProgramOption) *TerminalConfirmer {
	return &TerminalConfirmer{in: in, out: out, opts: opts}
}

// Confirm runs the prompt until a key decides it or ctx is done.
func (c *TerminalConfirmer) Confirm(ctx context.Context, question string) (bool, error) {
	options := append([]tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
	}, c.opts...)

	final, err := tea.NewProgram(newConfirmModel(question), options...).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	m, ok := final.(confirmModel)
	return ok && m.accepted, nil
}
