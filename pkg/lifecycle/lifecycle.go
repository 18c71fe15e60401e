// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/stratastor/blockwatch/pkg/errors"
)

var (
	mu            sync.Mutex
	shutdownHooks []func()
	reloadHooks   []func()
	cancel        context.CancelFunc
	exit          = os.Exit
)

// RegisterShutdownHook adds a hook run on SIGTERM/SIGINT. Hooks run in
// reverse registration order so that later components stop first.
func RegisterShutdownHook(hook func()) {
	mu.Lock()
	defer mu.Unlock()
	shutdownHooks = append(shutdownHooks, hook)
}

// RegisterReloadHook adds a hook run on SIGHUP.
func RegisterReloadHook(hook func()) {
	mu.Lock()
	defer mu.Unlock()
	reloadHooks = append(reloadHooks, hook)
}

func RegisterContextCanceller(c context.CancelFunc) {
	mu.Lock()
	defer mu.Unlock()
	cancel = c
}

func HandleSignals(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(stop)

	for {
		select {
		case sig := <-stop:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				Shutdown()
				exit(0)
				return
			case syscall.SIGHUP:
				reload()
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown cancels the registered context and runs the shutdown hooks once.
func Shutdown() {
	mu.Lock()
	c := cancel
	hooks := shutdownHooks
	cancel = nil
	shutdownHooks = nil
	mu.Unlock()

	// Cancel context first
	if c != nil {
		c()
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

func reload() {
	mu.Lock()
	hooks := append([]func(){}, reloadHooks...)
	mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// EnsureSingleInstance writes the current PID to pidPath, failing when the
// file names a live process. Stale or empty PID files are replaced.
func EnsureSingleInstance(pidPath string) error {
	if pidPath == "" {
		return errors.New(errors.LifecyclePIDFile, "invalid PID file path")
	}

	// Check if PID file exists
	if pidBytes, err := os.ReadFile(pidPath); err == nil {
		content := strings.TrimSpace(string(pidBytes))
		if content != "" {
			pid, err := strconv.Atoi(content)
			if err != nil {
				return errors.Wrap(err, errors.LifecyclePIDFile).
					WithMetadata("path", pidPath)
			}

			// Check if process exists
			if pid != os.Getpid() {
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return errors.New(errors.LifecycleAlreadyRunning, "another instance is already running").
							WithMetadata("pid", content).
							WithMetadata("path", pidPath)
					}
				}
			}
		}
		// Process not running, remove stale PID file
		os.Remove(pidPath)
	}

	if err := os.MkdirAll(filepath.Dir(pidPath), 0755); err != nil {
		return errors.Wrap(err, errors.LifecyclePIDFile).
			WithMetadata("path", pidPath)
	}

	// Write current PID to file
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return errors.Wrap(err, errors.LifecyclePIDFile).
			WithMetadata("path", pidPath)
	}

	// Register cleanup on shutdown
	RegisterShutdownHook(func() {
		os.Remove(pidPath)
	})

	return nil
}
