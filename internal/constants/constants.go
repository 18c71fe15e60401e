// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package constants

// Build-time variables set via ldflags
var (
	Version   = "v0.0.1-dev" // Set via -X flag during build
	CommitSHA = "unknown"    // Set via -X flag during build
	BuildTime = "unknown"    // Set via -X flag during build
)

const (
	AppName            = "blockwatch"
	BlockwatchVersion  = "v0.0.1"
	SystemConfigDir    = "/etc/blockwatch"
	UserConfigDirName  = ".blockwatch"
	PIDFileName        = "blockwatch.pid"
	DefaultLogFilePath = "/var/log/blockwatch/blockwatch.log"

	// config
	ConfigFileName = "blockwatch.yml"
	EnvPrefix      = "BLOCKWATCH"
	ConfigEnvVar   = EnvPrefix + "_CONFIG"

	// routes
	APIVersion = "v1"
	APIBase    = "/api/" + APIVersion + "/blockwatch"

	// APIDevices lists block devices found by enumeration
	APIDevices = APIBase + "/devices"

	// APIEvents returns buffered hotplug events
	APIEvents = APIBase + "/events"

	// APIStats returns watcher statistics and state
	APIStats = APIBase + "/stats"
)
