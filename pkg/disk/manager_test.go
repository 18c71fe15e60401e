// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package disk

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/pkg/disk/enumeration"
	"github.com/stratastor/blockwatch/pkg/disk/events"
	"github.com/stratastor/blockwatch/pkg/disk/hotplug"
	"github.com/stratastor/blockwatch/pkg/disk/parsers"
	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stratastor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueConn struct {
	mu     sync.Mutex
	queue  []*hotplug.UdevEvent
	closed bool
}

func (c *queueConn) push(ev *hotplug.UdevEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, ev)
}

func (c *queueConn) Fd() int { return 7 }

func (c *queueConn) Ready(time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) > 0, nil
}

func (c *queueConn) Receive() (*hotplug.UdevEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil, nil
	}
	ev := c.queue[0]
	c.queue = c.queue[1:]
	return ev, nil
}

func (c *queueConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *queueConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Watcher.Subsystem = "block"
	cfg.Watcher.TickInterval = "100ms"
	cfg.Watcher.ReadyTimeout = "5ms"
	cfg.Enumeration.DeviceRoot = "/dev"
	cfg.Enumeration.Pattern = "sd*[0-9]"
	cfg.Events.BufferSize = 16
	return cfg
}

func ext4Prober() enumeration.Prober {
	return enumeration.ProberFunc(func(_ context.Context, path string) (*parsers.ProbeResult, error) {
		return &parsers.ProbeResult{Device: path, FSType: "ext4"}, nil
	})
}

func setupManager(t *testing.T, cfg *config.Config, conn *queueConn, extra ...Option) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	l, err := logger.New(logger.Config{LogLevel: "debug"})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dev/sda1", nil, 0o660))
	require.NoError(t, afero.WriteFile(fs, "/dev/sdb", nil, 0o660))

	clock := clockwork.NewFakeClock()
	opts := []Option{
		WithFs(fs),
		WithClock(clock),
		WithProber(ext4Prober()),
		WithOpener(func(string) (hotplug.Conn, error) { return conn, nil }),
	}
	opts = append(opts, extra...)

	m, err := NewManager(l, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, clock
}

func TestManager_ReplayBuffersExistingVolumes(t *testing.T) {
	m, _ := setupManager(t, testConfig(), &queueConn{})

	n, err := m.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records := m.Buffer().All()
	require.Len(t, records, 1)
	assert.Equal(t, "/dev/sda1", records[0].DevicePath)
	assert.Equal(t, hotplug.KindAdded, records[0].Kind)
	assert.Equal(t, events.SourceReplay, records[0].Source)
}

func TestManager_StartDeliversLiveEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Watcher.EnumerateOnStart = true

	conn := &queueConn{}
	var mu sync.Mutex
	var seen []hotplug.Event
	m, clock := setupManager(t, cfg, conn, WithListener(func(ev hotplug.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev)
	}))

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, hotplug.StatePolling, m.Watcher().State())
	assert.Equal(t, 1, m.Buffer().Len())

	conn.push(&hotplug.UdevEvent{Action: hotplug.UdevActionAdd, DevPath: "/dev/sdc1"})

	assert.Eventually(t, func() bool {
		clock.Advance(100 * time.Millisecond)
		return m.Buffer().Len() == 2
	}, 5*time.Second, 10*time.Millisecond)

	records := m.Buffer().All()
	assert.Equal(t, events.SourceHotplug, records[1].Source)
	assert.Equal(t, "/dev/sdc1", records[1].DevicePath)

	mu.Lock()
	require.Len(t, seen, 2)
	assert.Equal(t, hotplug.Event{Kind: hotplug.KindAdded, DevicePath: "/dev/sda1"}, seen[0])
	assert.Equal(t, hotplug.Event{Kind: hotplug.KindAdded, DevicePath: "/dev/sdc1"}, seen[1])
	mu.Unlock()

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, hotplug.StateCancelled, m.Watcher().State())
	assert.True(t, conn.isClosed())
}

func TestManager_StartFailsWhenMonitorUnavailable(t *testing.T) {
	l, err := logger.New(logger.Config{LogLevel: "debug"})
	require.NoError(t, err)

	m, err := NewManager(l, testConfig(),
		WithFs(afero.NewMemMapFs()),
		WithProber(ext4Prober()),
		WithOpener(func(string) (hotplug.Conn, error) {
			return nil, errors.New(errors.DiskHotplugContextUnavailable, "no netlink")
		}))
	require.NoError(t, err)
	defer m.Close()

	err = m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.DiskHotplugContextUnavailable))
	assert.Equal(t, hotplug.StateCancelled, m.Watcher().State())
}

func TestNewManager_Validation(t *testing.T) {
	l, err := logger.New(logger.Config{LogLevel: "debug"})
	require.NoError(t, err)

	_, err = NewManager(l, nil)
	assert.True(t, errors.HasCode(err, errors.ConfigLoadFailed))

	cfg := testConfig()
	cfg.Enumeration.DeviceRoot = "dev"
	_, err = NewManager(l, cfg, WithProber(ext4Prober()))
	assert.True(t, errors.HasCode(err, errors.DiskDevicePathInvalid))

	cfg = testConfig()
	cfg.Enumeration.Prober = "hdparm"
	_, err = NewManager(l, cfg)
	assert.True(t, errors.HasCode(err, errors.DiskProberUnknown))
}

func TestManager_ReplayAndTicksNeverOverlapInListener(t *testing.T) {
	conn := &queueConn{}
	var active, maxActive, calls atomic.Int32
	m, clock := setupManager(t, testConfig(), conn, WithListener(func(hotplug.Event) {
		n := active.Add(1)
		for {
			cur := maxActive.Load()
			if n <= cur || maxActive.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		calls.Add(1)
		active.Add(-1)
	}))
	require.NoError(t, m.Start(context.Background()))

	for _, dev := range []string{"/dev/sdc1", "/dev/sdd1", "/dev/sde1"} {
		conn.push(&hotplug.UdevEvent{Action: hotplug.UdevActionAdd, DevPath: dev})
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Replay(context.Background())
			assert.NoError(t, err)
		}()
	}

	assert.Eventually(t, func() bool {
		clock.Advance(100 * time.Millisecond)
		return calls.Load() == 8
	}, 5*time.Second, 5*time.Millisecond)
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Equal(t, 8, m.Buffer().Len())
}

func TestManager_StartAfterFailureDoesNotReplayAgain(t *testing.T) {
	l, err := logger.New(logger.Config{LogLevel: "debug"})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dev/sda1", nil, 0o660))

	cfg := testConfig()
	cfg.Watcher.EnumerateOnStart = true
	m, err := NewManager(l, cfg,
		WithFs(fs),
		WithProber(ext4Prober()),
		WithOpener(func(string) (hotplug.Conn, error) {
			return nil, errors.New(errors.DiskHotplugMonitorUnavailable, "no monitor")
		}))
	require.NoError(t, err)
	defer m.Close()

	require.Error(t, m.Start(context.Background()))
	assert.Equal(t, 1, m.Buffer().Len())

	err = m.Start(context.Background())
	assert.True(t, errors.HasCode(err, errors.DiskHotplugWatcherCancelled))
	assert.Equal(t, 1, m.Buffer().Len())
}
