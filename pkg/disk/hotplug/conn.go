// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package hotplug

import (
	"time"

	"github.com/stratastor/logger"
)

// DefaultSubsystem is the only device class the watcher is meant for.
const DefaultSubsystem = "block"

// Conn is the monitoring handle drained by the poll loop. It wraps the
// connection context to the notification source, the monitor bound to the
// subsystem filter, and the descriptor that signals pending notifications.
//
// A Conn is owned by exactly one Watcher and is never used concurrently.
type Conn interface {
	// Fd returns the readiness descriptor, or -1 once the handle is released.
	Fd() int

	// Ready reports whether a notification can be received without
	// blocking, waiting at most timeout.
	Ready(timeout time.Duration) (bool, error)

	// Receive returns the next pending notification. A nil event with a nil
	// error means the notification fell outside the subsystem filter.
	Receive() (*UdevEvent, error)

	// Close releases the monitor and then the context. Calling it more than
	// once is safe.
	Close() error
}

// Opener creates a Conn for the given subsystem. Failures carry
// DiskHotplugContextUnavailable or DiskHotplugMonitorUnavailable.
type Opener func(subsystem string) (Conn, error)

// NetlinkOpener returns an Opener backed by the udev netlink stream.
func NetlinkOpener(l logger.Logger) Opener {
	return func(subsystem string) (Conn, error) {
		return Open(l, subsystem)
	}
}
