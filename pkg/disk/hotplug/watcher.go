// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package hotplug

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/errors"
)

const (
	// DefaultTickInterval matches the host loop period the watcher was
	// designed around.
	DefaultTickInterval = 100 * time.Millisecond

	// DefaultReadyTimeout bounds the readiness check inside one tick.
	DefaultReadyTimeout = 5 * time.Millisecond

	// maxFilteredPerTick bounds how many out-of-subsystem messages one tick
	// discards while looking for a deliverable notification.
	maxFilteredPerTick = 64
)

// WatcherConfig tunes a Watcher. Zero values fall back to defaults.
type WatcherConfig struct {
	Subsystem    string
	TickInterval time.Duration
	ReadyTimeout time.Duration

	// Opener creates the monitoring handle. Defaults to the netlink opener.
	Opener Opener
}

// DefaultWatcherConfig returns the configuration used when nil is passed to
// NewWatcher.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		Subsystem:    DefaultSubsystem,
		TickInterval: DefaultTickInterval,
		ReadyTimeout: DefaultReadyTimeout,
	}
}

// Watcher bridges the non-blocking udev monitor into a periodic tick driven
// by a Scheduler and forwards add/remove events to a Listener.
type Watcher struct {
	id        uuid.UUID
	logger    logger.Logger
	scheduler Scheduler
	listener  Listener
	config    WatcherConfig

	// tickMu serializes whole ticks, listener call included.
	tickMu sync.Mutex

	// mu guards everything below. It is never held while the listener runs.
	mu    sync.Mutex
	state State
	conn  Conn
	jobID uuid.UUID
	stats MonitorStats

	closeOnce sync.Once
}

// NewWatcher creates a watcher in the Uninitialized state. Nothing is opened
// until Start.
func NewWatcher(l logger.Logger, sched Scheduler, listener Listener, cfg *WatcherConfig) (*Watcher, error) {
	if l == nil {
		return nil, errors.New(errors.DiskHotplugInvalidInput, "logger is required")
	}
	if sched == nil {
		return nil, errors.New(errors.DiskHotplugScheduleFailed, "scheduler is required")
	}
	if listener == nil {
		return nil, errors.New(errors.DiskHotplugInvalidInput, "listener is required")
	}

	c := DefaultWatcherConfig()
	if cfg != nil {
		if cfg.Subsystem != "" {
			c.Subsystem = cfg.Subsystem
		}
		if cfg.TickInterval > 0 {
			c.TickInterval = cfg.TickInterval
		}
		if cfg.ReadyTimeout > 0 {
			c.ReadyTimeout = cfg.ReadyTimeout
		}
		c.Opener = cfg.Opener
	}
	if c.Opener == nil {
		c.Opener = NetlinkOpener(l)
	}

	return &Watcher{
		id:        uuid.New(),
		logger:    l,
		scheduler: sched,
		listener:  listener,
		config:    *c,
		state:     StateUninitialized,
	}, nil
}

// ID identifies this watcher in logs and scheduler job names.
func (w *Watcher) ID() uuid.UUID {
	return w.id
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Stats returns a snapshot of the monitor counters.
func (w *Watcher) Stats() MonitorStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Start opens the monitoring handle and registers the tick. Any failure moves
// the watcher to Cancelled; there is no retry.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StatePolling:
		return nil
	case StateCancelled:
		return errors.New(errors.DiskHotplugWatcherCancelled, "watcher already cancelled").
			WithMetadata("watcher_id", w.id.String())
	}

	w.logger.Info("Starting hotplug watcher",
		"watcher_id", w.id.String(),
		"subsystem", w.config.Subsystem,
		"tick_interval", w.config.TickInterval,
		"ready_timeout", w.config.ReadyTimeout)

	conn, err := w.config.Opener(w.config.Subsystem)
	if err != nil {
		w.state = StateCancelled
		w.logger.Error("Failed to open udev monitor", "watcher_id", w.id.String(), "error", err)
		if errors.HasCode(err, errors.DiskHotplugContextUnavailable) ||
			errors.HasCode(err, errors.DiskHotplugMonitorUnavailable) {
			return err
		}
		return errors.Wrap(err, errors.DiskHotplugMonitorUnavailable).
			WithMetadata("subsystem", w.config.Subsystem)
	}

	jobID, err := w.scheduler.Register("hotplug-"+w.id.String(), w.config.TickInterval, w.Tick)
	if err != nil {
		w.state = StateCancelled
		if cerr := conn.Close(); cerr != nil {
			w.logger.Warn("Failed to release udev monitor", "error", cerr)
		}
		w.logger.Error("Failed to register hotplug tick", "watcher_id", w.id.String(), "error", err)
		return errors.Wrap(err, errors.DiskHotplugScheduleFailed).
			WithMetadata("watcher_id", w.id.String())
	}

	w.conn = conn
	w.jobID = jobID
	w.stats.StartTime = time.Now()
	w.state = StatePolling

	w.logger.Info("Hotplug watcher polling", "watcher_id", w.id.String(), "job_id", jobID.String())
	return nil
}

// Cancel deregisters the tick and releases the handle. Once it returns no
// tick performs another readiness check. It is a no-op unless the watcher is
// polling and is safe to call from inside the listener.
func (w *Watcher) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelLocked()
}

func (w *Watcher) cancelLocked() {
	if w.state != StatePolling {
		return
	}
	w.state = StateCancelled

	if err := w.scheduler.Deregister(w.jobID); err != nil {
		w.logger.Warn("Failed to deregister hotplug tick",
			"watcher_id", w.id.String(),
			"job_id", w.jobID.String(),
			"error", err)
	}
	w.jobID = uuid.Nil

	if w.conn != nil {
		if err := w.conn.Close(); err != nil {
			w.logger.Warn("Failed to release udev monitor", "watcher_id", w.id.String(), "error", err)
		}
		w.conn = nil
	}

	w.logger.Info("Hotplug watcher cancelled", "watcher_id", w.id.String())
}

// Close runs the cancel sequence once and leaves the watcher terminal, even
// if it was never started. There is no finalizer; owners must call Close.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.cancelLocked()
		w.state = StateCancelled
	})
	return nil
}

// Tick performs one poll step: a bounded readiness check and, when ready, the
// receipt and classification of exactly one notification. The listener is
// called at most once.
func (w *Watcher) Tick() {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	ev, ok := w.poll()
	if !ok {
		return
	}
	w.listener(ev)
}

// Deliver hands ev to l, or to the watcher's own listener when l is nil, on
// the same serialized context as Tick: it waits for a running tick and holds
// off the next one until l returns. It works in any state and must not be
// called from inside a listener.
func (w *Watcher) Deliver(ev Event, l Listener) {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	if l == nil {
		l = w.listener
	}
	l(ev)
}

func (w *Watcher) poll() (Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePolling || w.conn == nil {
		return Event{}, false
	}
	w.stats.Ticks++

	ready, err := w.conn.Ready(w.config.ReadyTimeout)
	if err != nil {
		w.stats.PollErrors++
		w.logger.Debug("udev monitor readiness check failed", "error", err)
		return Event{}, false
	}
	if !ready {
		return Event{}, false
	}

	raw, ok := w.receiveLocked()
	if !ok {
		return Event{}, false
	}
	w.stats.EventsReceived++

	ev, ok := Classify(raw)
	if !ok {
		w.stats.EventsIgnored++
		w.logger.Debug("Ignoring udev event",
			"action", string(raw.Action),
			"device", ev.DevicePath,
			"seqnum", raw.SeqNum)
		return Event{}, false
	}

	w.stats.EventsDelivered++
	w.stats.LastEvent = time.Now()
	w.logger.Debug("Hotplug event", "kind", ev.Kind.String(), "device", ev.DevicePath)
	return ev, true
}

// receiveLocked reads the next notification of the watched subsystem.
// Messages of other subsystems are dropped without using up the tick, as long
// as more input is already queued; at most maxFilteredPerTick are skipped.
func (w *Watcher) receiveLocked() (*UdevEvent, bool) {
	for skipped := 0; ; skipped++ {
		raw, err := w.conn.Receive()
		if err != nil {
			w.stats.ReceiveErrors++
			w.logger.Debug("Failed to receive udev event", "error", err)
			return nil, false
		}
		if raw != nil {
			return raw, true
		}
		w.stats.EventsFiltered++

		if skipped+1 >= maxFilteredPerTick {
			return nil, false
		}
		ready, err := w.conn.Ready(0)
		if err != nil {
			w.stats.PollErrors++
			w.logger.Debug("udev monitor readiness check failed", "error", err)
			return nil, false
		}
		if !ready {
			return nil, false
		}
	}
}
