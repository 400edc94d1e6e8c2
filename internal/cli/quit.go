package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/jaywl/internal/config"
)

// newQuitCmd implements `jaywl quit` (spec §6.3): signal a running
// compositor instance (found via its pidfile, written by `run`) to
// shut down cleanly, the same SIGTERM path Run's signal.NotifyContext
// already handles.
func newQuitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "ask a running compositor to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(nil)
			if err != nil {
				return usageError{err}
			}
			path, err := pidFilePath(cfg.SocketName)
			if err != nil {
				return usageError{err}
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("jaywl quit: read pidfile %s: %w", path, err)
			}
			pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
			if err != nil {
				return fmt.Errorf("jaywl quit: malformed pidfile %s: %w", path, err)
			}
			proc, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("jaywl quit: pid %d: %w", pid, err)
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("jaywl quit: signal pid %d: %w", pid, err)
			}
			return nil
		},
	}
}
