// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package hotplug

import (
	"runtime"

	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/errors"
)

// Open always fails: udev netlink monitoring only exists on Linux. Callers
// can still use the enumeration package for one-shot scans.
func Open(l logger.Logger, subsystem string) (Conn, error) {
	l.Warn("udev netlink monitoring not available on this platform", "os", runtime.GOOS)
	return nil, errors.New(errors.DiskHotplugContextUnavailable, "udev netlink is only available on linux").
		WithMetadata("os", runtime.GOOS).
		WithMetadata("subsystem", subsystem)
}
