package tui

// StageID identifies one stage of the scan pipeline in the progress
// display.
type StageID int

const (
	StageAuth   StageID = iota // Validating the token
	StageGroups                // Resolving the target group set
	StageScan                  // Walking projects
	StageReport                // Writing the CSV artifacts
)

// StageStatus is the current status of a stage.
type StageStatus int

const (
	StatusPending StageStatus = iota
	StatusRunning
	StatusComplete
	StatusError
)

// Event is the interface for all progress events.
type Event interface {
	isEvent()
}

// StageEvent updates one stage's status.
type StageEvent struct {
	Stage    StageID
	Status   StageStatus
	Message  string  // optional detail, e.g. "42/120" or a project path
	Count    int     // item count shown when there is no message
	Progress float64 // 0.0 to 1.0
	Error    error
}

func (StageEvent) isEvent() {}

// DoneEvent signals that the run is finished.
type DoneEvent struct{}

func (DoneEvent) isEvent() {}
