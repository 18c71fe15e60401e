// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package parsers

import "strings"

// ParseUdevProperties parses udev property output into a map
func ParseUdevProperties(output string) map[string]string {
	props := make(map[string]string)
	lines := strings.Split(output, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Udev properties are in KEY=VALUE format
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			props[parts[0]] = parts[1]
		}
	}

	return props
}

// ProbeResultFromUdev builds a ProbeResult from the ID_FS_* properties udev's
// blkid builtin attaches to block devices.
func ProbeResultFromUdev(props map[string]string) *ProbeResult {
	return &ProbeResult{
		Device:     props["DEVNAME"],
		FSType:     props["ID_FS_TYPE"],
		UUID:       props["ID_FS_UUID"],
		Label:      props["ID_FS_LABEL"],
		PartUUID:   props["ID_PART_ENTRY_UUID"],
		Usage:      props["ID_FS_USAGE"],
		Version:    props["ID_FS_VERSION"],
		Properties: props,
	}
}
