// Package cli implements the compositor's command-line surface (spec
// §6.3): `run`, `log`, `quit` and `generate-completion`, built with
// github.com/spf13/cobra and logging through github.com/charmbracelet/log,
// the way bnema/waymon wires its own CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Exit codes (spec §6.3).
const (
	ExitSuccess    = 0
	ExitRuntime    = 1
	ExitArgument   = 2
)

var logLevel string

// Execute builds and runs the root command, returning the process exit
// code spec §6.3 specifies rather than calling os.Exit itself, so
// cmd/jaywl controls the actual process exit.
func Execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if _, isUsage := err.(usageError); isUsage {
			return ExitArgument
		}
		return ExitRuntime
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jaywl",
		Short:         "jaywl is a minimal tiling Wayland compositor core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace|debug|info|warn|error")

	root.AddCommand(newRunCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newQuitCmd())
	root.AddCommand(newCompletionCmd())
	return root
}

// newLogger parses --log-level into a charmbracelet/log.Logger writing
// to stderr, aborting with ExitArgument on an unrecognized level (spec
// §6.3).
func newLogger() (*log.Logger, error) {
	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, usageError{fmt.Errorf("invalid --log-level %q: %w", logLevel, err)}
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
	return logger, nil
}

// usageError marks a cobra command error as an argument-parsing
// failure (exit code 2) rather than a runtime failure (exit code 1).
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }
