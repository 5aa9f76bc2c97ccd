// Package report writes the two run artifacts: the per-project statistics
// CSV and the name-conflict CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/glinvent/glinvent/internal/inventory"
)

// StatsSink is an append-only CSV writer for project records. Records are
// flushed as they arrive so a crashed run keeps everything written so far.
// Safe for concurrent use.
//
// The column set depends on which aggregation flags were enabled, but row
// width is fixed for a given run: fork_parent is always the last column
// and is empty for non-forks.
type StatsSink struct {
	mu    sync.Mutex
	f     *os.File
	w     *csv.Writer
	flags inventory.Flags
}

// Header returns the column names for a run with the given flags.
func Header(flags inventory.Flags) []string {
	cols := []string{"group", "project", "issues", "merge_requests"}
	if flags.Notes {
		cols = append(cols, "issue_notes", "merge_request_notes")
	}
	if flags.CommitComments {
		cols = append(cols, "commit_comments")
	}
	if flags.RepoSize {
		cols = append(cols, "repo_size_kb")
	}
	return append(cols, "fork_parent")
}

// NewStatsSink creates the output file and writes the header. There is no
// fallback path; a failure here is fatal to the run.
func NewStatsSink(path string, flags inventory.Flags) (*StatsSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	s := &StatsSink{f: f, w: csv.NewWriter(f), flags: flags}
	if err := s.w.Write(Header(flags)); err != nil {
		_ = f.Close()
		return nil, err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Append writes one completed project record.
func (s *StatsSink) Append(st inventory.ProjectStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{st.Group, st.Project, strconv.Itoa(st.Issues), strconv.Itoa(st.MergeRequests)}
	if s.flags.Notes {
		row = append(row, strconv.Itoa(st.IssueNotes), strconv.Itoa(st.MergeRequestNotes))
	}
	if s.flags.CommitComments {
		row = append(row, strconv.Itoa(st.CommitComments))
	}
	if s.flags.RepoSize {
		row = append(row, strconv.FormatInt(st.RepoSizeKB, 10))
	}
	row = append(row, st.ForkParent)

	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the underlying file.
func (s *StatsSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

// WriteConflicts writes the conflict report. The file is produced even
// when there are no collisions so downstream tooling can rely on it.
func WriteConflicts(path string, entries []inventory.ConflictEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating conflict file: %w", err)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"conflict_count", "project_name", "groups"})
	for _, e := range entries {
		_ = w.Write([]string{strconv.Itoa(e.Count), e.Name, strings.Join(e.Groups, " ")})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
