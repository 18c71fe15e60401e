// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package hotplug provides block-device hotplug detection using udev events.
//
// # Overview
//
// A Watcher owns a monitoring handle (Conn) bound to the udev netlink stream
// and filtered to one subsystem ("block"). It does not run its own goroutine:
// it registers a periodic Tick with a host Scheduler. Each tick performs a
// bounded readiness check on the handle's descriptor, drains at most one
// notification, classifies it and hands the resulting Event to the
// application's Listener.
//
// # Event Flow
//
//	netlink socket → Conn.Ready → Conn.Receive → Classify → Listener
//
// Only "add" and "remove" actions reach the listener. Everything else
// (change, bind, move, online, offline, missing action) is counted and
// dropped.
//
// # Streams
//
// The monitor always subscribes to the udev stream, which is sent after udev
// has finished processing the device, run its rules and created the device
// node. The raw kernel stream is never used: the device may not be usable yet
// and touching it concurrently with udev is unsafe.
//
// # Lifecycle
//
//	w, _ := hotplug.NewWatcher(logger, sched, listener, nil)
//	if err := w.Start(); err != nil { ... }  // Uninitialized → Polling
//	...
//	w.Cancel()                                // Polling → Cancelled
//	w.Close()                                 // always safe, runs Cancel once
//
// Cancelled is terminal; build a new Watcher to monitor again.
package hotplug

import (
	"fmt"
	"time"
)

// UdevAction represents a udev event action
type UdevAction string

const (
	UdevActionAdd     UdevAction = "add"
	UdevActionRemove  UdevAction = "remove"
	UdevActionChange  UdevAction = "change"
	UdevActionMove    UdevAction = "move"
	UdevActionOnline  UdevAction = "online"
	UdevActionOffline UdevAction = "offline"
	UdevActionBind    UdevAction = "bind"
	UdevActionUnbind  UdevAction = "unbind"
)

// UdevEvent is one raw notification received from the monitor.
type UdevEvent struct {
	Action     UdevAction        // Event action (add, remove, change)
	DevPath    string            // Device node (e.g., /dev/sdb1)
	SysPath    string            // Kernel object path
	DevName    string            // Device name (e.g., sdb1)
	DevType    string            // Device type (disk, partition)
	Subsystem  string            // Subsystem (block)
	SeqNum     string            // Kernel sequence number
	Timestamp  time.Time         // Receive timestamp
	Properties map[string]string // udev properties (ID_FS_TYPE, ID_SERIAL, ...)
}

// EventKind classifies a hotplug event.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindAdded
	KindRemoved
)

func (k EventKind) String() string {
	switch k {
	case KindAdded:
		return "added"
	case KindRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind as its lowercase name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is the normalized notification delivered to a Listener.
type Event struct {
	Kind       EventKind `json:"kind"`
	DevicePath string    `json:"device_path"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Kind, e.DevicePath)
}

// Listener receives events synchronously on the polling tick. It must return
// promptly; a slow listener delays every following tick. It must not call
// Tick on the same watcher.
type Listener func(Event)

// State is the watcher lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StatePolling
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePolling:
		return "polling"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MonitorStats tracks monitoring statistics
type MonitorStats struct {
	Ticks           uint64    `json:"ticks"`
	EventsReceived  uint64    `json:"events_received"`
	EventsDelivered uint64    `json:"events_delivered"`
	EventsFiltered  uint64    `json:"events_filtered"` // outside the subsystem filter
	EventsIgnored   uint64    `json:"events_ignored"`  // unrecognized action
	PollErrors      uint64    `json:"poll_errors"`
	ReceiveErrors   uint64    `json:"receive_errors"`
	LastEvent       time.Time `json:"last_event,omitempty"`
	StartTime       time.Time `json:"start_time,omitempty"`
}
