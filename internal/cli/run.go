package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bnema/jaywl/internal/backend"
	"github.com/bnema/jaywl/internal/compositor"
	"github.com/bnema/jaywl/internal/config"
)

func newRunCmd() *cobra.Command {
	var backendsFlag string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the compositor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompositor(cmd, backendsFlag)
		},
	}
	cmd.Flags().StringVar(&backendsFlag, "backends", "x11,metal", "comma-separated backend try-order")
	return cmd
}

func runCompositor(cmd *cobra.Command, backendsFlag string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("jaywl run: %w", err)
	}
	if cmd.Flags().Changed("backends") && backendsFlag != "" {
		cfg.Backends = strings.Split(backendsFlag, ",")
	}
	logger.Info("resolved backend try-order", "backends", cfg.Backends)

	th, err := config.LoadTheme(cfg.ThemeOverlayPath)
	if err != nil {
		return fmt.Errorf("jaywl run: %w", err)
	}

	runID := uuid.New()
	logger.Info("starting jaywl", "run_id", runID, "socket", cfg.SocketName)

	// The rendering backend, input devices and external configuration
	// module are delegated collaborators (spec §6.2, Non-goals); until
	// one is selected from --backends this core runs against the noop
	// stand-in, which advertises zero connectors.
	var be backend.Backend = backend.Noop{}
	var in backend.Input = backend.Noop{}
	var renderer backend.Renderer = backend.Noop{}
	var cfgHook backend.Configuration = backend.Noop{}

	st, err := compositor.New(cfg, th, logger, be, in, renderer, cfgHook)
	if err != nil {
		return fmt.Errorf("jaywl run: %w", err)
	}

	pidPath, err := writePIDFile(cfg.SocketName)
	if err == nil {
		defer os.Remove(pidPath)
	} else {
		logger.Warn("could not write pidfile", "err", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = st.Run(ctx)
	if err != nil && ctx.Err() != nil {
		// Cancelled by a signal is a clean shutdown, not a failure.
		return nil
	}
	return err
}

func pidFilePath(socketName string) (string, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(dir, socketName+".pid"), nil
}

func writePIDFile(socketName string) (string, error) {
	path, err := pidFilePath(socketName)
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}
