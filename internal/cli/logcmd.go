package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// newLogCmd implements `jaywl log` (spec §6.3): print (or follow) the
// compositor's on-disk log file. The log file's content/format is out
// of scope for this core (spec §1 Non-goals name "the on-disk log
// file"); this subcommand only reads bytes another process wrote,
// following original_source/src/cli.rs's --path/--follow/--pager-end
// flags.
func newLogCmd() *cobra.Command {
	var path string
	var follow bool
	var pagerEnd bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "show the compositor's log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := defaultLogPath()
				if err != nil {
					return usageError{err}
				}
				path = p
			}
			return tailLog(cmd.OutOrStdout(), path, follow, pagerEnd)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "log file path (default: $XDG_RUNTIME_DIR/jaywl.log)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines as they are appended")
	cmd.Flags().BoolVarP(&pagerEnd, "pager-end", "e", false, "seek to the end before printing")
	return cmd
}

func defaultLogPath() (string, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR is not set")
	}
	return dir + "/jaywl.log", nil
}

func tailLog(w io.Writer, path string, follow, pagerEnd bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("jaywl log: open %s: %w", path, err)
	}
	defer f.Close()

	if pagerEnd {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("jaywl log: seek %s: %w", path, err)
		}
	}

	r := bufio.NewReader(f)
	if err := copyLines(w, r); err != nil {
		return err
	}
	if !follow {
		return nil
	}
	for {
		time.Sleep(500 * time.Millisecond)
		if err := copyLines(w, r); err != nil {
			return err
		}
	}
}

func copyLines(w io.Writer, r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if _, werr := io.WriteString(w, line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
