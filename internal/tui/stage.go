package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-runewidth"
)

// maxMessageWidth keeps long project paths from wrapping the stage line.
const maxMessageWidth = 48

// Stage is one row of the progress display.
type Stage struct {
	ID       StageID
	Name     string
	Status   StageStatus
	Message  string
	Count    int
	Progress float64
	Error    error
}

// NewStage creates a pending stage.
func NewStage(id StageID, name string) Stage {
	return Stage{ID: id, Name: name, Status: StatusPending}
}

// View renders the stage as a single line.
func (s Stage) View(spinnerFrame string, prog progress.Model) string {
	icon := statusIcon(s.Status, spinnerFrame)

	var name string
	if s.Status == StatusPending {
		name = stageDimStyle.Render(s.Name)
	} else {
		name = stageNameStyle.Render(s.Name)
	}

	line := fmt.Sprintf("  %s %s", icon, name)

	msg := runewidth.Truncate(s.Message, maxMessageWidth, "…")
	if s.Status == StatusRunning && s.Progress > 0 {
		line += fmt.Sprintf(" %s %d%%", prog.ViewAs(s.Progress), int(s.Progress*100))
		if msg != "" {
			line += " " + messageStyle.Render(fmt.Sprintf("(%s)", msg))
		}
	} else if msg != "" {
		line += " " + messageStyle.Render(msg)
	}

	if s.Count > 0 && s.Message == "" {
		line += " " + messageStyle.Render(fmt.Sprintf("(%d)", s.Count))
	}

	if s.Error != nil {
		line += " " + errorStyle.Render(s.Error.Error())
	}

	return line
}
