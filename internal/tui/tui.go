package tui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Run starts the inline progress display and blocks until the event
// channel closes or the user cancels.
func Run(events <-chan Event) error {
	p := tea.NewProgram(NewModel(events))
	_, err := p.Run()
	return err
}

// ShouldUseTUI reports whether the progress display makes sense for this
// environment: stdout must be a terminal and we must not be in CI.
func ShouldUseTUI() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}

	ciVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return false
		}
	}
	return true
}

// SendEvent sends without blocking; events are dropped when the channel is
// full rather than stalling the walk.
func SendEvent(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- e:
	default:
	}
}

// SendStageEvent is a convenience wrapper for stage updates.
func SendStageEvent(ch chan<- Event, stage StageID, status StageStatus, opts ...StageEventOption) {
	e := StageEvent{Stage: stage, Status: status}
	for _, opt := range opts {
		opt(&e)
	}
	SendEvent(ch, e)
}

// StageEventOption is a functional option for StageEvent.
type StageEventOption func(*StageEvent)

// WithMessage sets the message on a StageEvent.
func WithMessage(msg string) StageEventOption {
	return func(e *StageEvent) { e.Message = msg }
}

// WithCount sets the count on a StageEvent.
func WithCount(count int) StageEventOption {
	return func(e *StageEvent) { e.Count = count }
}

// WithProgress sets the progress on a StageEvent.
func WithProgress(p float64) StageEventOption {
	return func(e *StageEvent) { e.Progress = p }
}

// WithError sets the error on a StageEvent.
func WithError(err error) StageEventOption {
	return func(e *StageEvent) { e.Error = err }
}
