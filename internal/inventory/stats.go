// Package inventory walks a GitLab instance group by group and aggregates
// per-project statistics for migration planning.
package inventory

// Flags are the run-time switches enabling the more expensive sub-crawls.
// The cheap counters (issues, merge requests) are always collected.
type Flags struct {
	Notes          bool // per-item note sums for issues and merge requests
	CommitComments bool // commit walk plus per-commit comment counts
	RepoSize       bool // per-project statistics fetch
}

// ProjectStats is one project's aggregate record. It is built over the
// lifetime of a single visit and immutable once handed to the sink.
// Optional fields are meaningful only when the corresponding flag was
// enabled for the run.
type ProjectStats struct {
	Group             string
	Project           string
	Issues            int
	MergeRequests     int
	IssueNotes        int
	MergeRequestNotes int
	CommitComments    int
	RepoSizeKB        int64
	ForkParent        string
}

// Sink persists completed project records. Implementations must be safe
// for concurrent use.
type Sink interface {
	Append(ProjectStats) error
}

// kilobytes converts a raw byte size to whole kilobytes. Values under
// 1024 bytes round down to 0; that is the intended display behavior.
func kilobytes(bytes int64) int64 {
	return bytes / 1024
}
