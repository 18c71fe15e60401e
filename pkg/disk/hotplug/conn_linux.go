// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package hotplug

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/errors"
	"golang.org/x/sys/unix"
)

// netlinkConn is the Linux monitoring handle: a NETLINK_KOBJECT_UEVENT socket
// subscribed to the udev multicast group plus a subsystem matcher.
type netlinkConn struct {
	logger logger.Logger

	mu      sync.Mutex
	conn    *netlink.UEventConn      // connection context
	matcher *netlink.RuleDefinitions // monitor filter
	fd      int
}

// Open connects to the udev netlink stream and binds a monitor filtered to
// subsystem.
func Open(l logger.Logger, subsystem string) (Conn, error) {
	l.Debug("opening udev netlink monitor", "subsystem", subsystem)

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, errors.Wrap(err, errors.DiskHotplugContextUnavailable).
			WithMetadata("operation", "netlink_connect").
			WithMetadata("stream", "udev")
	}

	matcher, err := newSubsystemMatcher(subsystem)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.DiskHotplugMonitorUnavailable).
			WithMetadata("operation", "subsystem_filter").
			WithMetadata("subsystem", subsystem)
	}

	if conn.Fd < 0 {
		conn.Close()
		return nil, errors.New(errors.DiskHotplugMonitorUnavailable, "netlink socket has no descriptor").
			WithMetadata("subsystem", subsystem)
	}

	l.Info("udev netlink monitor ready", "subsystem", subsystem, "fd", conn.Fd)

	return &netlinkConn{
		logger:  l,
		conn:    conn,
		matcher: matcher,
		fd:      conn.Fd,
	}, nil
}

func newSubsystemMatcher(subsystem string) (*netlink.RuleDefinitions, error) {
	if strings.TrimSpace(subsystem) == "" {
		return nil, errors.New(errors.DiskHotplugMonitorUnavailable, "empty subsystem filter")
	}

	matcher := &netlink.RuleDefinitions{
		Rules: []netlink.RuleDefinition{
			{Env: map[string]string{"SUBSYSTEM": "^" + regexp.QuoteMeta(subsystem) + "$"}},
		},
	}
	// RuleDefinitions.Compile works on copies; compile in place so Evaluate
	// reuses the regexps.
	for i := range matcher.Rules {
		if err := matcher.Rules[i].Compile(); err != nil {
			return nil, err
		}
	}
	return matcher, nil
}

func (c *netlinkConn) Fd() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fd
}

// Ready polls the socket for input with a bounded wait. EINTR counts as not
// ready.
func (c *netlinkConn) Ready(timeout time.Duration) (bool, error) {
	fd := c.Fd()
	if fd < 0 {
		return false, errors.New(errors.DiskHotplugPollFailed, "monitor released")
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	ts := unix.NsecToTimespec(timeout.Nanoseconds())

	n, err := unix.Ppoll(fds, &ts, nil)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, errors.Wrap(err, errors.DiskHotplugPollFailed).
			WithMetadata("operation", "ppoll")
	}
	if n == 0 {
		return false, nil
	}
	if fds[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		return false, errors.New(errors.DiskHotplugPollFailed, "descriptor in error state")
	}
	return fds[0].Revents&unix.POLLIN != 0, nil
}

// Receive reads exactly one uevent from the socket.
func (c *netlinkConn) Receive() (*UdevEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errors.New(errors.DiskHotplugReceiveFailed, "monitor released")
	}

	uevent, err := c.conn.ReadUEvent()
	if err != nil {
		return nil, errors.Wrap(err, errors.DiskHotplugReceiveFailed).
			WithMetadata("operation", "netlink_read")
	}
	if uevent == nil {
		return nil, nil
	}

	if c.matcher != nil && !c.matcher.Evaluate(*uevent) {
		c.logger.Debug("uevent outside subsystem filter",
			"action", uevent.Action,
			"subsystem", uevent.Env["SUBSYSTEM"])
		return nil, nil
	}

	return fromUEvent(uevent), nil
}

// Close drops the monitor filter before closing the socket.
func (c *netlinkConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.matcher = nil

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.fd = -1
	if err != nil {
		return errors.Wrap(err, errors.DiskUdevError).
			WithMetadata("operation", "netlink_close")
	}
	return nil
}

// fromUEvent converts a netlink UEvent to our UdevEvent
func fromUEvent(uevent *netlink.UEvent) *UdevEvent {
	event := &UdevEvent{
		Action:     UdevAction(uevent.Action),
		SysPath:    uevent.KObj,
		Properties: uevent.Env,
		Timestamp:  time.Now(),
	}

	if devname, ok := uevent.Env["DEVNAME"]; ok {
		event.DevPath = nodePath(devname)
		if idx := strings.LastIndex(devname, "/"); idx >= 0 {
			event.DevName = devname[idx+1:]
		} else {
			event.DevName = devname
		}
	}

	event.DevType = uevent.Env["DEVTYPE"]
	event.Subsystem = uevent.Env["SUBSYSTEM"]
	event.SeqNum = uevent.Env["SEQNUM"]

	return event
}
