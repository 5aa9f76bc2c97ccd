package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/glinvent/glinvent/config"
	"github.com/glinvent/glinvent/internal/gitlab"
	"github.com/glinvent/glinvent/internal/inventory"
	"github.com/glinvent/glinvent/internal/log"
	"github.com/glinvent/glinvent/internal/report"
	"github.com/glinvent/glinvent/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// scanRuntime bundles TUI-related state that's threaded through the scan command.
type scanRuntime struct {
	useTUI  bool
	events  chan tui.Event
	tuiDone chan error
}

// start launches the TUI goroutine if TUI mode is enabled.
func (rt *scanRuntime) start() {
	if !rt.useTUI {
		return
	}
	rt.events = make(chan tui.Event, 100)
	rt.tuiDone = make(chan error, 1)
	go func() {
		rt.tuiDone <- tui.Run(rt.events)
	}()
}

// close closes the event channel and waits for the TUI to finish.
func (rt *scanRuntime) close() {
	if rt.events == nil {
		return
	}
	close(rt.events)
	rt.events = nil
	if rt.tuiDone != nil {
		<-rt.tuiDone
	}
}

// sendStage sends a stage event to the TUI channel if it exists.
func (rt *scanRuntime) sendStage(stage tui.StageID, status tui.StageStatus, opts ...tui.StageEventOption) {
	tui.SendStageEvent(rt.events, stage, status, opts...)
}

// NewCmdScan creates the scan command.
func NewCmdScan(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan GitLab groups and write inventory reports (same as root glinvent)",
		Long: `Walks the selected groups, aggregates per-project statistics, and
writes a stats CSV plus a cross-group name-conflict CSV.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	addScanFlags(cmd, opts)
	return cmd
}

// addScanFlags adds the scan-specific flags to a command.
func addScanFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Server, "server", "s", "", "GitLab host (default: config or GITLAB_HOST)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "API token (default: GITLAB_TOKEN, or prompt)")
	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Group path to scan")
	cmd.Flags().BoolVar(&opts.AllGroups, "all-groups", false, "Scan every visible group (self-hosted only)")
	cmd.Flags().StringVar(&opts.GroupsFile, "groups-file", "", "File with one group path per line")

	cmd.Flags().BoolVar(&opts.Notes, "notes", false, "Sum issue and merge request notes")
	cmd.Flags().BoolVar(&opts.CommitComments, "commit-comments", false, "Count comments on every commit (slow)")
	cmd.Flags().BoolVar(&opts.RepoSize, "sizes", false, "Fetch repository sizes")

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "Stats CSV path (default: gitlab-projects-<date>.csv)")
	cmd.Flags().StringVar(&opts.ConflictsOutput, "conflicts-out", "", "Conflict CSV path (default: gitlab-conflicts-<date>.csv)")

	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Concurrent project visits (default: config or 8)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "API page size (default: config or 100)")
	cmd.Flags().BoolVar(&opts.IncludeArchived, "include-archived", false, "Include archived projects")
	cmd.Flags().BoolVarP(&opts.Insecure, "insecure", "k", false, "Skip TLS certificate verification")
	cmd.Flags().IntVar(&opts.Timeout, "timeout", 0, "Per-request timeout in seconds")
	cmd.Flags().IntVar(&opts.Retries, "retries", 0, "Extra attempts on 5xx and transport failures")

	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")

	// TUI flag with tri-state: nil = auto, true = force, false = disable
	cmd.Flags().Var(newTUIFlag(opts), "tui", "Enable/disable TUI progress (default: auto-detect)")
}

func runScan(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()

	useTUI := shouldUseTUI(opts)

	// Suppress logs during TUI to avoid interleaving with the display.
	if useTUI {
		log.Initialize(opts.Verbosity, io.Discard)
	} else {
		log.Initialize(opts.Verbosity, os.Stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyConfig(opts, cfg)

	target, err := scanTarget(opts)
	if err != nil {
		return err
	}

	token, err := resolveToken(opts, cfg)
	if err != nil {
		return err
	}

	flags := aggregateFlags(opts, cfg)
	statsPath, conflictsPath := outputPaths(opts, cfg, time.Now())

	maxInFlight := opts.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 2 * opts.Workers
	}

	rt := &scanRuntime{useTUI: useTUI}
	rt.start()

	client, err := gitlab.NewClient(ctx, gitlab.Options{
		Host:               opts.Server,
		Token:              token,
		InsecureSkipVerify: opts.Insecure,
		Timeout:            time.Duration(opts.Timeout) * time.Second,
		Retries:            opts.Retries,
		MaxInFlight:        int64(maxInFlight),
	})
	if err != nil {
		rt.close()
		return err
	}

	rt.sendStage(tui.StageAuth, tui.StatusRunning)
	user, err := client.CurrentUser(ctx)
	if err != nil {
		rt.sendStage(tui.StageAuth, tui.StatusError, tui.WithError(err))
		rt.close()
		return fmt.Errorf("token validation failed: %w", err)
	}
	rt.sendStage(tui.StageAuth, tui.StatusComplete, tui.WithMessage(user))
	log.Info("authenticated", "user", user, "server", opts.Server)

	sink, err := report.NewStatsSink(statsPath, flags)
	if err != nil {
		rt.close()
		return err
	}

	conflicts := inventory.NewConflictIndex()
	visitor := inventory.NewVisitor(client, flags, opts.PageSize)

	rt.sendStage(tui.StageGroups, tui.StatusRunning)
	walker := inventory.NewWalker(client, visitor, sink, conflicts, inventory.WalkerConfig{
		Workers:         opts.Workers,
		PageSize:        opts.PageSize,
		IncludeArchived: opts.IncludeArchived,
		ExcludeGroups:   cfg.ExcludeGroups,
		OnGroups: func(count int) {
			rt.sendStage(tui.StageGroups, tui.StatusComplete, tui.WithCount(count))
			rt.sendStage(tui.StageScan, tui.StatusRunning)
		},
		OnProgress: func(done, total int, current string) {
			if rt.useTUI {
				var p float64
				if total > 0 {
					p = float64(done) / float64(total)
				}
				rt.sendStage(tui.StageScan, tui.StatusRunning,
					tui.WithProgress(p),
					tui.WithMessage(fmt.Sprintf("%d/%d %s", done, total, current)))
			} else {
				log.Progress("Scanning projects: %d/%d...", done, total)
			}
		},
	})

	sum, err := walker.Run(ctx, target)
	if !rt.useTUI {
		log.ProgressDone()
	}
	if err != nil {
		rt.sendStage(tui.StageScan, tui.StatusError, tui.WithError(err))
		rt.close()
		_ = sink.Close()
		return err
	}
	rt.sendStage(tui.StageScan, tui.StatusComplete, tui.WithCount(sum.Projects))

	rt.sendStage(tui.StageReport, tui.StatusRunning)
	entries := conflicts.Report()
	if err := sink.Close(); err != nil {
		rt.sendStage(tui.StageReport, tui.StatusError, tui.WithError(err))
		rt.close()
		return err
	}
	if err := report.WriteConflicts(conflictsPath, entries); err != nil {
		rt.sendStage(tui.StageReport, tui.StatusError, tui.WithError(err))
		rt.close()
		return err
	}
	rt.sendStage(tui.StageReport, tui.StatusComplete, tui.WithCount(len(entries)))
	rt.close()

	printSummary(sum, len(entries), statsPath, conflictsPath)
	return nil
}

// applyConfig fills options the user did not set from the loaded config.
func applyConfig(opts *Options, cfg *config.Config) {
	if opts.Server == "" {
		opts.Server = cfg.Server
	}
	if opts.Workers <= 0 {
		opts.Workers = cfg.Workers
	}
	if opts.PageSize <= 0 {
		opts.PageSize = cfg.PageSize
	}
	if cfg.IncludeArchived {
		opts.IncludeArchived = true
	}
	if cfg.Request != nil {
		if opts.Timeout <= 0 && cfg.Request.TimeoutSeconds != nil {
			opts.Timeout = *cfg.Request.TimeoutSeconds
		}
		if opts.Retries <= 0 && cfg.Request.Retries != nil {
			opts.Retries = *cfg.Request.Retries
		}
		if opts.MaxInFlight <= 0 && cfg.Request.MaxInFlight != nil {
			opts.MaxInFlight = *cfg.Request.MaxInFlight
		}
	}
}

// aggregateFlags merges the flag switches with the config defaults.
func aggregateFlags(opts *Options, cfg *config.Config) inventory.Flags {
	flags := inventory.Flags{
		Notes:          opts.Notes,
		CommitComments: opts.CommitComments,
		RepoSize:       opts.RepoSize,
	}
	if cfg.Aggregate != nil {
		if cfg.Aggregate.Notes != nil && *cfg.Aggregate.Notes {
			flags.Notes = true
		}
		if cfg.Aggregate.CommitComments != nil && *cfg.Aggregate.CommitComments {
			flags.CommitComments = true
		}
		if cfg.Aggregate.RepoSize != nil && *cfg.Aggregate.RepoSize {
			flags.RepoSize = true
		}
	}
	return flags
}

// scanTarget validates the group selection flags. Exactly one selector is
// required.
func scanTarget(opts *Options) (inventory.Target, error) {
	set := 0
	if opts.Group != "" {
		set++
	}
	if opts.AllGroups {
		set++
	}
	if opts.GroupsFile != "" {
		set++
	}
	switch set {
	case 0:
		return inventory.Target{}, errors.New("no scan target: use --group, --groups-file, or --all-groups")
	case 1:
		return inventory.Target{
			Group:      opts.Group,
			All:        opts.AllGroups,
			GroupsFile: opts.GroupsFile,
		}, nil
	default:
		return inventory.Target{}, errors.New("--group, --groups-file, and --all-groups are mutually exclusive")
	}
}

// resolveToken finds the API token: flag, then environment, then an
// interactive prompt when attached to a terminal.
func resolveToken(opts *Options, cfg *config.Config) (string, error) {
	if opts.Token != "" {
		return opts.Token, nil
	}
	if token := cfg.Token(); token != "" {
		return token, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "GitLab token: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		if len(b) > 0 {
			return string(b), nil
		}
	}
	return "", errors.New("GitLab token not configured. Use --token or set the GITLAB_TOKEN environment variable")
}

// outputPaths returns the stats and conflict file paths, defaulting to
// dated names under the configured output directory.
func outputPaths(opts *Options, cfg *config.Config, now time.Time) (string, string) {
	date := now.Format("2006-01-02")
	stats := opts.Output
	if stats == "" {
		stats = filepath.Join(cfg.OutputDir, fmt.Sprintf("gitlab-projects-%s.csv", date))
	}
	conflicts := opts.ConflictsOutput
	if conflicts == "" {
		conflicts = filepath.Join(cfg.OutputDir, fmt.Sprintf("gitlab-conflicts-%s.csv", date))
	}
	return stats, conflicts
}

// printSummary prints the run outcome. Resource-level failures were already
// logged and do not change the exit code.
func printSummary(sum inventory.Summary, conflictCount int, statsPath, conflictsPath string) {
	color.New(color.FgGreen).Printf("Scanned %d projects across %d groups\n", sum.Projects, sum.Groups)
	if sum.Skipped > 0 {
		fmt.Printf("Skipped %d archived or excluded entries\n", sum.Skipped)
	}
	if sum.Failures > 0 {
		color.New(color.FgYellow).Printf("%d resources could not be fetched (counted as 0, see log)\n", sum.Failures)
	}
	if conflictCount > 0 {
		color.New(color.FgRed).Printf("%d project names collide across groups\n", conflictCount)
	} else {
		fmt.Println("No project name conflicts")
	}
	fmt.Printf("  stats:     %s\n", statsPath)
	fmt.Printf("  conflicts: %s\n", conflictsPath)
}
