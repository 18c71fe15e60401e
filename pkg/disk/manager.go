// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package disk

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/pkg/disk/enumeration"
	"github.com/stratastor/blockwatch/pkg/disk/events"
	"github.com/stratastor/blockwatch/pkg/disk/hotplug"
	"github.com/stratastor/blockwatch/pkg/disk/tools"
	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stratastor/blockwatch/pkg/scheduler"
	"github.com/stratastor/logger"
)

// Manager owns the block device watcher and everything it needs: the
// host scheduler that drives it, the enumerator used for catch-up, and the
// buffer of recent events.
type Manager struct {
	logger      logger.Logger
	cfg         *config.Config
	toolChecker *tools.ToolChecker
	enumerator  *enumeration.Enumerator
	buffer      *events.Buffer
	scheduler   *scheduler.Scheduler
	watcher     *hotplug.Watcher
	listener    hotplug.Listener

	mu        sync.Mutex
	started   bool
	closeOnce sync.Once
}

// Option customizes a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	fs       afero.Fs
	opener   hotplug.Opener
	clock    clockwork.Clock
	prober   enumeration.Prober
	listener hotplug.Listener
}

// WithListener forwards every delivered event, live or replayed, to fn after
// it has been buffered.
func WithListener(fn hotplug.Listener) Option {
	return func(o *managerOptions) { o.listener = fn }
}

// WithFs sets the filesystem the enumerator scans.
func WithFs(fs afero.Fs) Option {
	return func(o *managerOptions) { o.fs = fs }
}

// WithOpener replaces the netlink monitor opener.
func WithOpener(op hotplug.Opener) Option {
	return func(o *managerOptions) { o.opener = op }
}

// WithClock sets the scheduler clock.
func WithClock(c clockwork.Clock) Option {
	return func(o *managerOptions) { o.clock = c }
}

// WithProber replaces the configured metadata prober.
func WithProber(p enumeration.Prober) Option {
	return func(o *managerOptions) { o.prober = p }
}

// NewManager builds a manager from cfg. Nothing is opened or scheduled until
// Start.
func NewManager(l logger.Logger, cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New(errors.ConfigLoadFailed, "configuration is required")
	}

	o := &managerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		logger:   l,
		cfg:      cfg,
		listener: o.listener,
		buffer:   events.NewBuffer(l, cfg.Events.BufferSize),
	}

	prober := o.prober
	if prober == nil {
		m.toolChecker = tools.NewToolChecker(l, &tools.ToolsConfig{
			BlkidPath:   cfg.Enumeration.BlkidPath,
			UdevadmPath: cfg.Enumeration.UdevadmPath,
		})
		m.toolChecker.CheckAll()
		if err := m.toolChecker.ValidateRequired([]string{proberTool(cfg.Enumeration.Prober)}); err != nil {
			// Watching works without the prober; only enumeration degrades.
			l.Warn("metadata prober unavailable, enumeration will find nothing", "error", err)
		}

		var err error
		prober, err = enumeration.NewProber(l, enumeration.ProberConfig{
			Kind:        cfg.Enumeration.Prober,
			BlkidPath:   cfg.Enumeration.BlkidPath,
			UdevadmPath: cfg.Enumeration.UdevadmPath,
			UseSudo:     cfg.Enumeration.UseSudo,
			Timeout:     cfg.ProbeTimeout(),
		})
		if err != nil {
			return nil, err
		}
	}

	enumerator, err := enumeration.NewEnumerator(l, o.fs, prober, &enumeration.Config{
		DeviceRoot: cfg.Enumeration.DeviceRoot,
		Pattern:    cfg.Enumeration.Pattern,
	})
	if err != nil {
		return nil, err
	}
	m.enumerator = enumerator

	var schedOpts []scheduler.Option
	if o.clock != nil {
		schedOpts = append(schedOpts, scheduler.WithClock(o.clock))
	}
	sched, err := scheduler.New(l, schedOpts...)
	if err != nil {
		return nil, err
	}
	m.scheduler = sched

	watcherCfg := &hotplug.WatcherConfig{
		Subsystem:    cfg.Watcher.Subsystem,
		TickInterval: cfg.TickInterval(),
		ReadyTimeout: cfg.ReadyTimeout(),
		Opener:       o.opener,
	}
	watcher, err := hotplug.NewWatcher(l, sched, m.fanOut(events.SourceHotplug), watcherCfg)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	m.watcher = watcher

	return m, nil
}

func proberTool(kind string) string {
	if kind == enumeration.ProberUdevadm {
		return tools.ToolUdevadm
	}
	return tools.ToolBlkid
}

func (m *Manager) fanOut(source events.Source) hotplug.Listener {
	return func(ev hotplug.Event) {
		m.buffer.Add(ev, source)
		if m.listener != nil {
			m.listener(ev)
		}
	}
}

// Start replays existing devices when watcher.enumerateOnStart is set, then
// starts the scheduler and the watcher. A failed enumeration is logged and
// does not prevent watching.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if m.watcher.State() == hotplug.StateCancelled {
		return errors.New(errors.DiskHotplugWatcherCancelled, "watcher is cancelled").
			WithMetadata("watcher_id", m.watcher.ID().String())
	}

	if m.cfg.Watcher.EnumerateOnStart {
		if _, err := m.Replay(ctx); err != nil {
			m.logger.Warn("catch-up enumeration failed", "error", err)
		}
	}

	m.scheduler.Start()
	if err := m.watcher.Start(); err != nil {
		return err
	}
	m.started = true

	m.logger.Info("block device watcher started",
		"watcher_id", m.watcher.ID(),
		"subsystem", m.cfg.Watcher.Subsystem,
		"tick_interval", m.cfg.TickInterval())
	return nil
}

// Replay enumerates current devices and delivers an Added event for each,
// tagged as replayed. Deliveries are serialized with the watcher's ticks, so
// the listener never runs concurrently with itself. Replay must not be called
// from inside the listener.
func (m *Manager) Replay(ctx context.Context) (int, error) {
	volumes, err := m.enumerator.Enumerate(ctx)
	if err != nil {
		return 0, err
	}
	replay := m.fanOut(events.SourceReplay)
	n := enumeration.Replay(volumes, func(ev hotplug.Event) {
		m.watcher.Deliver(ev, replay)
	})
	m.logger.Info("replayed existing devices", "count", n)
	return n, nil
}

// Close cancels the watcher and stops the scheduler. It is safe to call more
// than once.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if cerr := m.watcher.Close(); cerr != nil {
			err = cerr
		}
		if serr := m.scheduler.Shutdown(); serr != nil && err == nil {
			err = serr
		}
		m.logger.Info("block device watcher stopped", "stats", m.watcher.Stats())
	})
	return err
}

// Enumerator returns the manager's enumerator.
func (m *Manager) Enumerator() *enumeration.Enumerator { return m.enumerator }

// Watcher returns the managed watcher.
func (m *Manager) Watcher() *hotplug.Watcher { return m.watcher }

// Buffer returns the buffer of recent events.
func (m *Manager) Buffer() *events.Buffer { return m.buffer }

// ToolStatuses reports the prober tool check, or nil when a custom prober was
// supplied.
func (m *Manager) ToolStatuses() map[string]*tools.ToolStatus {
	if m.toolChecker == nil {
		return nil
	}
	return m.toolChecker.GetAllStatuses()
}
