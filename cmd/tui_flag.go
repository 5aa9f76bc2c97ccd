package cmd

import (
	"fmt"

	"github.com/glinvent/glinvent/internal/tui"
)

// tuiFlag is a tri-state pflag.Value: true, false, or auto (nil).
type tuiFlag struct {
	opts *Options
}

// newTUIFlag binds the --tui flag to opts.TUI.
func newTUIFlag(opts *Options) *tuiFlag {
	return &tuiFlag{opts: opts}
}

func (f *tuiFlag) String() string {
	if f.opts.TUI == nil {
		return "auto"
	}
	if *f.opts.TUI {
		return "true"
	}
	return "false"
}

func (f *tuiFlag) Set(s string) error {
	switch s {
	case "true", "1", "yes":
		v := true
		f.opts.TUI = &v
	case "false", "0", "no":
		v := false
		f.opts.TUI = &v
	case "auto":
		f.opts.TUI = nil
	default:
		return fmt.Errorf("invalid value %q: use true, false, or auto", s)
	}
	return nil
}

func (f *tuiFlag) Type() string {
	return "bool"
}

func (f *tuiFlag) IsBoolFlag() bool {
	return true
}

// shouldUseTUI decides whether the progress display runs for this
// invocation.
func shouldUseTUI(opts *Options) bool {
	// Verbose logs and the display would fight over the terminal; logs win
	if opts.Verbosity > 0 {
		return false
	}
	if opts.TUI != nil {
		return *opts.TUI
	}
	return tui.ShouldUseTUI()
}
