package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/pkg/disk"
	"github.com/stratastor/blockwatch/pkg/disk/hotplug"
	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stratastor/blockwatch/pkg/lifecycle"
	"github.com/stratastor/logger"
)

var (
	detached  bool
	enumerate bool
	jsonOut   bool
)

func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print block device add/remove events as they happen",
		Run:   runWatch,
	}

	cmd.Flags().BoolVarP(&detached, "detach", "d", false, "Run as a daemon")
	cmd.Flags().BoolVarP(&enumerate, "enumerate", "e", false, "Report devices already present before watching")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print one JSON object per event")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) {
	rc := config.GetConfig()
	log, err := logger.NewTag(config.NewLoggerConfig(rc), "watch")
	if err != nil {
		panic(err)
	}

	if detached {
		dargs := []string{"blockwatch", "watch"}
		if enumerate {
			dargs = append(dargs, "--enumerate")
		}
		if jsonOut {
			dargs = append(dargs, "--json")
		}
		if p := config.GetLoadedConfigPath(); p != "" {
			dargs = append(dargs, "--config", p)
		}

		ctx := &daemon.Context{
			PidFileName: config.GetPIDFilePath(),
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
			log.Info("Blockwatch watcher is running as a daemon", "pid", d.Pid)
			return
		}
		defer ctx.Release()
	}

	if err := watch(log, rc); err != nil {
		log.Error("Watcher stopped with error", "err", err)
		os.Exit(1)
	}
}

func watch(log logger.Logger, rc *config.Config) error {
	if enumerate {
		rc.Watcher.EnumerateOnStart = true
	}

	m, err := disk.NewManager(log, rc, disk.WithListener(printEvent))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lifecycle.RegisterContextCanceller(cancel)
	lifecycle.RegisterShutdownHook(func() {
		if err := m.Close(); err != nil {
			log.Error("Error stopping watcher", "err", err)
		}
	})
	lifecycle.RegisterReloadHook(func() {
		if _, err := m.Replay(ctx); err != nil {
			log.Warn("Re-enumeration failed", "err", err)
		}
	})

	go lifecycle.HandleSignals(ctx)

	if err := m.Start(ctx); err != nil {
		_ = m.Close()
		return err
	}

	<-ctx.Done()
	return nil
}

type eventLine struct {
	Time       time.Time         `json:"time"`
	Kind       hotplug.EventKind `json:"kind"`
	DevicePath string            `json:"device_path"`
}

func printEvent(ev hotplug.Event) {
	if !jsonOut {
		fmt.Println(ev)
		return
	}
	b, err := json.Marshal(eventLine{Time: time.Now(), Kind: ev.Kind, DevicePath: ev.DevicePath})
	if err != nil {
		return
	}
	fmt.Println(string(b))
}
