package cmd

// Options holds the shared command-line options for the glinvent CLI.
type Options struct {
	Server     string // GitLab host, overrides config and GITLAB_HOST
	Token      string // API token, overrides GITLAB_TOKEN
	Group      string // single group path to scan
	AllGroups  bool   // scan every group visible on the instance
	GroupsFile string // file with one group path per line

	Notes          bool // sum issue and merge request notes
	CommitComments bool // walk commits and count their comments
	RepoSize       bool // fetch repository size statistics

	Output          string // stats CSV path, defaults to a dated name
	ConflictsOutput string // conflict CSV path, defaults to a dated name

	Workers         int
	PageSize        int
	IncludeArchived bool
	Insecure        bool // skip TLS certificate verification
	Timeout         int  // per-request timeout in seconds
	Retries         int
	MaxInFlight     int  // concurrent request cap, config only; 0 means 2x workers

	Verbosity int
	TUI       *bool // nil = auto-detect, true = force TUI, false = disable TUI
}
