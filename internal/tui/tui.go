// Package tui shows the progress of a long running wizard operation.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
)

// UpdateMsg carries a progress update into the program.
type UpdateMsg progress.Update

// DoneMsg ends the program once the operation returned.
type DoneMsg struct{ Err error }

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5c6470", Dark: "#8a93a3"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
)

type Model struct {
	title    string
	bar      bar.Model
	spinner  spinner.Model
	percent  int
	message  string
	done     bool
	err      error
	quitting bool
}

func New(title string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		title:   title,
		bar:     bar.New(bar.WithDefaultGradient()),
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case UpdateMsg:
		// an empty update marks the end of one operation
		if msg.Percent == 0 && msg.Message == "" {
			return m, nil
		}
		m.percent = msg.Percent
		m.message = msg.Message
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if msg.Err == nil {
			m.percent = 100
		}
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(10, msg.Width-4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	if m.done {
		b.WriteString(titleStyle.Render(m.title))
	} else {
		fmt.Fprintf(&b, "%s %s", m.spinner.View(), titleStyle.Render(m.title))
	}
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.quitting:
		b.WriteString(messageStyle.Render("interrupted"))
	default:
		b.WriteString(messageStyle.Render(m.message))
	}
	b.WriteString("\n")
	return b.String()
}

// Percent and Message expose the last update shown.
func (m Model) Percent() int { return m.percent }
func (m Model) Message() string { return m.message }
func (m Model) Interrupted() bool { return m.quitting }

// ErrInterrupted is returned by Run when the user quit the view.
var ErrInterrupted = errors.New("interrupted")

// Bridge forwards progress updates to the program started by Run. Its Sink
// can be handed to a progress.Reporter before any program exists.
type Bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func (b *Bridge) Sink(u progress.Update) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(UpdateMsg(u))
	}
}

func (b *Bridge) set(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

// Run shows a progress view while work runs. Quitting the view cancels the
// context passed to work.
func (b *Bridge) Run(ctx context.Context, title string, work func(context.Context) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(title), append(opts, tea.WithContext(ctx))...)
	b.set(p)
	defer b.set(nil)

	errc := make(chan error, 1)
	go func() {
		err := work(ctx)
		errc <- err
		p.Send(DoneMsg{Err: err})
	}()

	final, runErr := p.Run()
	if m, ok := final.(Model); ok && m.Interrupted() {
		cancel()
		<-errc
		return ErrInterrupted
	}
	err := <-errc
	if err == nil && runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("progress view: %w", runErr)
	}
	return err
}
