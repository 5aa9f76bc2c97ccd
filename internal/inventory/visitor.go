package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/glinvent/glinvent/internal/crawl"
	"github.com/glinvent/glinvent/internal/gitlab"
	"github.com/glinvent/glinvent/internal/log"
	"golang.org/x/sync/errgroup"
)

var errStatisticsAbsent = errors.New("statistics absent from project response")

// Visitor aggregates one project at a time. The enabled sub-crawls have no
// data dependency on each other and run in parallel; a failing sub-crawl
// zeroes its field and is logged, it never fails the visit.
type Visitor struct {
	client   *gitlab.Client
	flags    Flags
	pageSize int
}

// NewVisitor creates a Visitor. pageSize applies to the item walks; count
// probes always request a single item and rely on the total header.
func NewVisitor(client *gitlab.Client, flags Flags, pageSize int) *Visitor {
	if pageSize <= 0 {
		pageSize = gitlab.DefaultPageSize
	}
	return &Visitor{client: client, flags: flags, pageSize: pageSize}
}

// Visit produces the aggregate record for one project. The returned count
// is the number of sub-crawls that failed.
func (v *Visitor) Visit(ctx context.Context, group string, p gitlab.Project) (ProjectStats, int) {
	stats := ProjectStats{Group: group, Project: p.Path}
	if p.ForkedFromProject != nil {
		stats.ForkParent = p.ForkedFromProject.PathWithNamespace
	}

	var mu sync.Mutex
	failed := 0
	fail := func(resource string, err error) {
		log.Warn("sub-crawl failed", "group", group, "project", p.Path, "resource", resource, "error", err)
		mu.Lock()
		failed++
		mu.Unlock()
	}

	var g errgroup.Group

	// Issue and MR counts come from the total header via a one-item probe;
	// the output schema always includes them.
	g.Go(func() error {
		n, err := crawl.Count(ctx, gitlab.Pages[gitlab.Issue](v.client, gitlab.ProjectIssuesPath(p.ID), nil, 1))
		if err != nil {
			fail("issues", err)
			return nil
		}
		mu.Lock()
		stats.Issues = n
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		n, err := crawl.Count(ctx, gitlab.Pages[gitlab.MergeRequest](v.client, gitlab.ProjectMergeRequestsPath(p.ID), nil, 1))
		if err != nil {
			fail("merge_requests", err)
			return nil
		}
		mu.Lock()
		stats.MergeRequests = n
		mu.Unlock()
		return nil
	})

	if v.flags.Notes {
		// Note sums need the items themselves, so this is a second,
		// independent pass over the same resources.
		g.Go(func() error {
			sum := 0
			fetch := gitlab.Pages[gitlab.Issue](v.client, gitlab.ProjectIssuesPath(p.ID), nil, v.pageSize)
			if _, err := crawl.Reduce(ctx, fetch, func(is gitlab.Issue) error {
				sum += is.UserNotesCount
				return nil
			}); err != nil {
				fail("issue_notes", err)
				return nil
			}
			mu.Lock()
			stats.IssueNotes = sum
			mu.Unlock()
			return nil
		})

		g.Go(func() error {
			sum := 0
			fetch := gitlab.Pages[gitlab.MergeRequest](v.client, gitlab.ProjectMergeRequestsPath(p.ID), nil, v.pageSize)
			if _, err := crawl.Reduce(ctx, fetch, func(mr gitlab.MergeRequest) error {
				sum += mr.UserNotesCount
				return nil
			}); err != nil {
				fail("merge_request_notes", err)
				return nil
			}
			mu.Lock()
			stats.MergeRequestNotes = sum
			mu.Unlock()
			return nil
		})
	}

	if v.flags.CommitComments {
		// The one three-level-deep path: project -> commit -> comment
		// count. On failure the partial sum is discarded.
		g.Go(func() error {
			sum := 0
			fetch := gitlab.Pages[gitlab.Commit](v.client, gitlab.ProjectCommitsPath(p.ID), nil, v.pageSize)
			if _, err := crawl.Reduce(ctx, fetch, func(c gitlab.Commit) error {
				n, err := crawl.Count(ctx, gitlab.Pages[gitlab.Comment](v.client, gitlab.CommitCommentsPath(p.ID, c.ID), nil, 1))
				if err != nil {
					return err
				}
				sum += n
				return nil
			}); err != nil {
				fail("commit_comments", err)
				return nil
			}
			mu.Lock()
			stats.CommitComments = sum
			mu.Unlock()
			return nil
		})
	}

	if v.flags.RepoSize {
		g.Go(func() error {
			proj, err := v.client.ProjectWithStatistics(ctx, p.ID)
			if err != nil {
				fail("statistics", err)
				return nil
			}
			if proj.Statistics == nil {
				fail("statistics", errStatisticsAbsent)
				return nil
			}
			mu.Lock()
			stats.RepoSizeKB = kilobytes(proj.Statistics.RepositorySize)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // goroutines report failures through fail, never an error

	return stats, failed
}
