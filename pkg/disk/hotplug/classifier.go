// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package hotplug

import (
	"path"
	"strings"
)

// devRoot is where udev creates device nodes.
const devRoot = "/dev"

// Classify maps a raw notification to an Event. The boolean reports whether
// the event should be delivered: only "add" and "remove" qualify. The device
// path is filled in regardless of the outcome so callers can log skipped
// notifications.
func Classify(raw *UdevEvent) (Event, bool) {
	if raw == nil {
		return Event{}, false
	}

	ev := Event{
		Kind:       KindUnknown,
		DevicePath: devicePath(raw),
	}

	switch raw.Action {
	case UdevActionAdd:
		ev.Kind = KindAdded
	case UdevActionRemove:
		ev.Kind = KindRemoved
	default:
		return ev, false
	}

	return ev, true
}

func devicePath(raw *UdevEvent) string {
	if raw.DevPath != "" {
		return nodePath(raw.DevPath)
	}
	if devname := raw.Properties["DEVNAME"]; devname != "" {
		return nodePath(devname)
	}
	return nodePath(raw.DevName)
}

// nodePath turns a DEVNAME value ("sdb1" or "/dev/sdb1") into an absolute
// device node path.
func nodePath(devname string) string {
	devname = strings.TrimSpace(devname)
	if devname == "" {
		return ""
	}
	if strings.HasPrefix(devname, "/") {
		return path.Clean(devname)
	}
	return path.Join(devRoot, devname)
}
