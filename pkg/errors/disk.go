// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"maps"
	"net/http"
)

// Disk Management Error Codes (2300-2399)
const (
	// Discovery Errors (2300-2309)
	DiskDiscoveryFailed   = 2300 + iota // Failed to enumerate devices
	DiskDiscoveryTimeout                // Enumeration timed out
	DiskNotFound                        // Device not found
	DiskDevicePathInvalid               // Invalid device path or pattern
)

const (
	// Probe Errors (2330-2349)
	DiskProbeFailed      = 2330 + iota // Metadata probe failed
	DiskProbeParseFailed               // Failed to parse probe output
	DiskProbeTimeout                   // Probe timed out
	DiskProberUnknown                  // Unknown prober requested
)

const (
	// Hotplug Errors (2350-2369)
	DiskHotplugContextUnavailable = 2350 + iota // Notification context could not be opened
	DiskHotplugMonitorUnavailable               // Monitor could not be created
	DiskHotplugScheduleFailed                   // Poll tick could not be registered
	DiskHotplugWatcherCancelled                 // Watcher is cancelled and cannot restart
	DiskHotplugReceiveFailed                    // Failed to receive a notification
	DiskHotplugPollFailed                       // Readiness check failed
	DiskUdevError                               // udev operation error
	DiskHotplugInvalidInput                     // Watcher built with missing logger or listener
)

const (
	// Tool Errors (2390-2399)
	DiskToolNotFound        = 2390 + iota // Required tool not found
	DiskToolExecutionFailed               // Tool execution failed
)

func init() {
	diskErrorDefinitions := map[ErrorCode]errorDefinition{
		DiskDiscoveryFailed: {
			"Failed to enumerate block devices",
			DomainDisk,
			http.StatusInternalServerError,
		},
		DiskDiscoveryTimeout: {
			"Block device enumeration timed out",
			DomainDisk,
			http.StatusGatewayTimeout,
		},
		DiskNotFound: {
			"Disk not found",
			DomainDisk,
			http.StatusNotFound,
		},
		DiskDevicePathInvalid: {
			"Invalid device path",
			DomainDisk,
			http.StatusBadRequest,
		},

		DiskProbeFailed: {
			"Device metadata probe failed",
			DomainDisk,
			http.StatusInternalServerError,
		},
		DiskProbeParseFailed: {
			"Failed to parse device metadata",
			DomainDisk,
			http.StatusInternalServerError,
		},
		DiskProbeTimeout: {
			"Device metadata probe timed out",
			DomainDisk,
			http.StatusGatewayTimeout,
		},
		DiskProberUnknown: {
			"Unknown device metadata prober",
			DomainDisk,
			http.StatusBadRequest,
		},

		DiskHotplugContextUnavailable: {
			"Failed to open device notification context",
			DomainHotplug,
			http.StatusServiceUnavailable,
		},
		DiskHotplugMonitorUnavailable: {
			"Failed to create device monitor",
			DomainHotplug,
			http.StatusServiceUnavailable,
		},
		DiskHotplugScheduleFailed: {
			"Failed to schedule hotplug polling",
			DomainHotplug,
			http.StatusInternalServerError,
		},
		DiskHotplugWatcherCancelled: {
			"Hotplug watcher has been cancelled",
			DomainHotplug,
			http.StatusConflict,
		},
		DiskHotplugReceiveFailed: {
			"Failed to receive device notification",
			DomainHotplug,
			http.StatusInternalServerError,
		},
		DiskHotplugPollFailed: {
			"Device notification readiness check failed",
			DomainHotplug,
			http.StatusInternalServerError,
		},
		DiskUdevError: {
			"udev operation error",
			DomainHotplug,
			http.StatusInternalServerError,
		},
		DiskHotplugInvalidInput: {
			"Invalid hotplug watcher input",
			DomainHotplug,
			http.StatusBadRequest,
		},

		DiskToolNotFound: {
			"Required tool not found",
			DomainDisk,
			http.StatusServiceUnavailable,
		},
		DiskToolExecutionFailed: {
			"Tool execution failed",
			DomainDisk,
			http.StatusInternalServerError,
		},
	}

	maps.Copy(errorDefinitions, diskErrorDefinitions)
}
