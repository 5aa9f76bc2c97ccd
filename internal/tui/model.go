package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is the Bubble Tea model for the scan progress display.
type Model struct {
	stages   []Stage
	spinner  spinner.Model
	progress progress.Model
	events   <-chan Event
	done     bool
	username string
}

// doneMsg signals that the event channel was closed.
type doneMsg struct{}

// ScanStages returns the stage list for the scan command.
func ScanStages() []Stage {
	return []Stage{
		NewStage(StageAuth, "Validating token"),
		NewStage(StageGroups, "Resolving groups"),
		NewStage(StageScan, "Scanning projects"),
		NewStage(StageReport, "Writing reports"),
	}
}

// NewModel creates a progress model reading from events.
func NewModel(events <-chan Event) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	p := progress.New(
		progress.WithScaledGradient("#fca326", "#6e49cb"),
		progress.WithWidth(25),
		progress.WithoutPercentage(),
	)

	return Model{
		stages:   ScanStages(),
		spinner:  s,
		progress: p,
		events:   events,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.events),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case StageEvent:
		var cmd tea.Cmd
		m, cmd = m.updateStage(msg)
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case DoneEvent, doneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) updateStage(e StageEvent) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for i := range m.stages {
		if m.stages[i].ID != e.Stage {
			continue
		}
		m.stages[i].Status = e.Status
		if e.Message != "" {
			m.stages[i].Message = e.Message
		}
		if e.Count > 0 {
			m.stages[i].Count = e.Count
		}
		if e.Progress > 0 {
			m.stages[i].Progress = e.Progress
			cmd = m.progress.SetPercent(e.Progress)
		}
		if e.Error != nil {
			m.stages[i].Error = e.Error
		}
		// The auth stage completes with the authenticated username.
		if e.Stage == StageAuth && e.Status == StatusComplete && e.Message != "" {
			m.username = e.Message
		}
		break
	}
	return m, cmd
}

// View renders the model.
func (m Model) View() string {
	var s string

	for _, stage := range m.stages {
		if stage.ID == StageAuth && stage.Status == StatusComplete && m.username != "" {
			s += fmt.Sprintf("  %s Authenticated as %s\n", iconComplete, userStyle.Render(m.username))
			continue
		}
		s += stage.View(m.spinner.View(), m.progress) + "\n"
	}

	if !m.done {
		s += footerStyle.Render("\n  Press Ctrl+C to cancel")
	}
	s += "\n"

	return s
}

// waitForEvent creates a command that waits for the next event.
func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return event
	}
}
