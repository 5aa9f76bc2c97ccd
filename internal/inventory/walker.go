package inventory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/glinvent/glinvent/internal/crawl"
	"github.com/glinvent/glinvent/internal/gitlab"
	"github.com/glinvent/glinvent/internal/log"
	"golang.org/x/sync/errgroup"
)

// ErrPublicInstance is returned when an all-groups scan targets gitlab.com.
// Enumerating every group only makes sense on a self-hosted instance; the
// check runs before any request is made.
var ErrPublicInstance = errors.New("scanning all groups is not supported against gitlab.com")

// Target selects which groups a run walks. Exactly one field should be set.
type Target struct {
	Group      string // one group path
	All        bool   // every group visible on the instance
	GroupsFile string // file with one group path per line
}

// ProgressFunc receives walk progress: projects completed, projects
// discovered so far, and the project just finished.
type ProgressFunc func(done, total int, current string)

// Summary is the outcome of one complete walk.
type Summary struct {
	Groups   int
	Projects int
	Skipped  int // archived projects and excluded groups
	Failures int // resource-level failures (logged, not fatal)
}

// WalkerConfig carries the tunables for one run.
type WalkerConfig struct {
	Workers         int
	PageSize        int
	IncludeArchived bool
	ExcludeGroups   []string
	OnGroups        func(count int) // called once the target group set is known
	OnProgress      ProgressFunc
}

// Walker drives the whole inventory: it resolves the target group set,
// crawls each group's projects, and runs the Visitor over every project.
// Projects are independent, so visits run in parallel; the sink and the
// conflict index are the only shared state and serialize internally.
type Walker struct {
	client    *gitlab.Client
	visitor   *Visitor
	sink      Sink
	conflicts *ConflictIndex
	cfg       WalkerConfig
	excluded  map[string]bool
}

// NewWalker assembles a Walker.
func NewWalker(client *gitlab.Client, visitor *Visitor, sink Sink, conflicts *ConflictIndex, cfg WalkerConfig) *Walker {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = gitlab.DefaultPageSize
	}
	excluded := make(map[string]bool, len(cfg.ExcludeGroups))
	for _, g := range cfg.ExcludeGroups {
		excluded[g] = true
	}
	return &Walker{
		client:    client,
		visitor:   visitor,
		sink:      sink,
		conflicts: conflicts,
		cfg:       cfg,
		excluded:  excluded,
	}
}

// Run walks every group in the target. Resource-level failures are counted
// and logged; the returned error is reserved for fatal conditions (invalid
// target, sink write failure, cancellation).
func (w *Walker) Run(ctx context.Context, target Target) (Summary, error) {
	groups, err := w.resolveGroups(ctx, target)
	if err != nil {
		return Summary{}, err
	}
	if w.cfg.OnGroups != nil {
		w.cfg.OnGroups(len(groups))
	}

	var sum Summary
	var mu sync.Mutex
	done, discovered := 0, 0

	for _, group := range groups {
		if w.excluded[group] {
			log.Info("skipping excluded group", "group", group)
			sum.Skipped++
			continue
		}

		fetch := gitlab.Pages[gitlab.Project](w.client, gitlab.GroupProjectsPath(group), nil, w.cfg.PageSize)
		projects, _, err := crawl.Collect(ctx, fetch)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			log.Warn("listing projects failed", "group", group, "error", err)
			sum.Failures++
			continue
		}
		sum.Groups++
		log.Info("scanning group", "group", group, "projects", len(projects))

		pending := projects[:0]
		for _, p := range projects {
			if p.Archived && !w.cfg.IncludeArchived {
				log.Debug("skipping archived project", "project", p.PathWithNamespace)
				sum.Skipped++
				continue
			}
			pending = append(pending, p)
		}
		discovered += len(pending)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.cfg.Workers)
		for _, p := range pending {
			g.Go(func() error {
				stats, failed := w.visitor.Visit(gctx, group, p)
				if err := w.sink.Append(stats); err != nil {
					return fmt.Errorf("writing record for %s/%s: %w", group, p.Path, err)
				}
				w.conflicts.Record(p.Path, group)

				mu.Lock()
				sum.Projects++
				sum.Failures += failed
				done++
				d, t := done, discovered
				mu.Unlock()
				if w.cfg.OnProgress != nil {
					w.cfg.OnProgress(d, t, group+"/"+p.Path)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// resolveGroups turns the target into a concrete group list.
func (w *Walker) resolveGroups(ctx context.Context, target Target) ([]string, error) {
	switch {
	case target.Group != "":
		return []string{target.Group}, nil

	case target.GroupsFile != "":
		return ReadGroupsFile(target.GroupsFile)

	case target.All:
		if strings.EqualFold(w.client.Host(), "gitlab.com") {
			return nil, ErrPublicInstance
		}
		var groups []string
		fetch := gitlab.Pages[gitlab.Group](w.client, gitlab.GroupsPath(), nil, w.cfg.PageSize)
		if _, err := crawl.Reduce(ctx, fetch, func(g gitlab.Group) error {
			groups = append(groups, g.FullPath)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("listing groups: %w", err)
		}
		log.Info("discovered groups", "count", len(groups))
		return groups, nil

	default:
		return nil, errors.New("no scan target: provide a group, a groups file, or --all-groups")
	}
}

// ReadGroupsFile reads one group path per line. Blank lines and lines
// starting with # are ignored.
func ReadGroupsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading groups file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var groups []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		groups = append(groups, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading groups file: %w", err)
	}
	return groups, nil
}
