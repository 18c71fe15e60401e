// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package parsers

// ProbeResult is the filesystem metadata of one block device.
type ProbeResult struct {
	Device   string `json:"device,omitempty"`
	FSType   string `json:"fs_type,omitempty"`
	UUID     string `json:"uuid,omitempty"`
	Label    string `json:"label,omitempty"`
	PartUUID string `json:"part_uuid,omitempty"`
	Usage    string `json:"usage,omitempty"`   // filesystem, raid, crypto, other
	Version  string `json:"version,omitempty"` // filesystem version, e.g. "1.0"

	// Properties holds every key reported by the probing tool.
	Properties map[string]string `json:"properties,omitempty"`
}

// HasFilesystem reports whether a filesystem signature was found.
func (r *ProbeResult) HasFilesystem() bool {
	return r != nil && r.FSType != ""
}
