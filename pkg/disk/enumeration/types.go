// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package enumeration lists block devices that are already present when the
// process starts, so callers can catch up before hotplug events arrive.
package enumeration

import (
	"context"

	"github.com/stratastor/blockwatch/pkg/disk/hotplug"
	"github.com/stratastor/blockwatch/pkg/disk/parsers"
)

const (
	DefaultDeviceRoot = "/dev"

	// DefaultPattern matches numbered partitions (sda1, sdb12) and leaves out
	// whole disks.
	DefaultPattern = "sd*[0-9]"
)

// Volume is one partition carrying a filesystem.
type Volume struct {
	Path   string `json:"path"`
	FSType string `json:"fs_type"`
	UUID   string `json:"uuid"`
	Label  string `json:"label,omitempty"`
}

// Event synthesizes the Added event the watcher would have produced had the
// volume been attached while it was running.
func (v Volume) Event() hotplug.Event {
	return hotplug.Event{Kind: hotplug.KindAdded, DevicePath: v.Path}
}

// Prober reads filesystem metadata for one device.
type Prober interface {
	Probe(ctx context.Context, devicePath string) (*parsers.ProbeResult, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, devicePath string) (*parsers.ProbeResult, error)

func (f ProberFunc) Probe(ctx context.Context, devicePath string) (*parsers.ProbeResult, error) {
	return f(ctx, devicePath)
}

// Replay feeds a synthesized Added event for every volume to listener, in
// order, and returns the number delivered.
func Replay(volumes []Volume, listener hotplug.Listener) int {
	if listener == nil {
		return 0
	}
	for _, v := range volumes {
		listener(v.Event())
	}
	return len(volumes)
}
