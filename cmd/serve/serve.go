package serve

import (
	"context"
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/pkg/disk"
	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stratastor/blockwatch/pkg/lifecycle"
	"github.com/stratastor/blockwatch/pkg/server"
	"github.com/stratastor/logger"
)

var detached bool

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the block device watcher with its HTTP API",
		Run:   runServe,
	}

	cmd.Flags().BoolVarP(&detached, "detach", "d", false, "Run as a daemon")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) {
	rc := config.GetConfig()
	log, err := logger.NewTag(config.NewLoggerConfig(rc), "serve")
	if err != nil {
		panic(err)
	}

	pidFile := config.GetPIDFilePath()

	if detached || rc.Server.Daemonize {
		dargs := []string{"blockwatch", "serve"}
		if p := config.GetLoadedConfigPath(); p != "" {
			dargs = append(dargs, "--config", p)
		}

		ctx := &daemon.Context{
			PidFileName: pidFile,
			PidFilePerm: 0644,
			LogFileName: rc.Logs.Path,
			LogFilePerm: 0640,
			WorkDir:     "/",
			Umask:       027,
			Args:        dargs,
		}

		d, err := ctx.Reborn()
		if err != nil {
			log.Error("Failed to start daemon", "err", errors.Wrap(err, errors.LifecycleDaemonizeFailed))
			os.Exit(1)
		}

		if d != nil {
			log.Info("Blockwatch is running as a daemon", "pid", d.Pid)
			return
		}
		defer ctx.Release()
	}

	// Check for existing instance before proceeding
	if err := lifecycle.EnsureSingleInstance(pidFile); err != nil {
		log.Error("Failed to start", "err", err)
		os.Exit(1)
	}

	if err := startServer(log, rc); err != nil {
		log.Error("Server stopped with error", "err", err)
		lifecycle.Shutdown()
		os.Exit(1)
	}
}

func startServer(log logger.Logger, cfg *config.Config) error {
	m, err := disk.NewManager(log, cfg)
	if err != nil {
		return err
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lifecycle.RegisterContextCanceller(cancel)

	// Hooks run in reverse: the server stops before the watcher
	lifecycle.RegisterShutdownHook(func() {
		log.Info("Stopping block device watcher...")
		if err := m.Close(); err != nil {
			log.Error("Error stopping watcher", "err", err)
		}
	})
	lifecycle.RegisterShutdownHook(func() {
		log.Info("Shutting down server...")
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error("Error during server shutdown", "err", err)
		}
	})

	// SIGHUP re-enumerates so the event buffer catches up with the host
	lifecycle.RegisterReloadHook(func() {
		if _, err := m.Replay(ctx); err != nil {
			log.Warn("Re-enumeration failed", "err", err)
		}
	})

	config.WatchConfig(log, func(next *config.Config) {
		if next.TickInterval() != cfg.TickInterval() || next.Watcher.Subsystem != cfg.Watcher.Subsystem {
			log.Warn("Watcher settings changed; restart blockwatch to apply them")
		}
	})

	// Start handling lifecycle signals (e.g., SIGTERM, SIGHUP)
	go lifecycle.HandleSignals(ctx)

	if err := m.Start(ctx); err != nil {
		return err
	}

	log.Info("Starting blockwatch server", "port", cfg.Server.Port)
	return server.Start(ctx, log, server.Dependencies{
		Enumerator: m.Enumerator(),
		Watcher:    m.Watcher(),
		Buffer:     m.Buffer(),
	})
}
