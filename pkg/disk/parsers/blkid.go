// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/stratastor/blockwatch/pkg/errors"
)

// ParseBlkidExport parses `blkid -p -o export <device>` output:
//
//	DEVNAME=/dev/sda1
//	UUID=5f0c3a7e-...
//	TYPE=ext4
//	LABEL=my\ data
//
// Values are shell-escaped by blkid. Empty output yields an empty result.
func ParseBlkidExport(output []byte) (*ProbeResult, error) {
	result := &ProbeResult{Properties: make(map[string]string)}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			// blkid separates devices with a blank line; only the first is ours
			if len(result.Properties) > 0 {
				break
			}
			continue
		}

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.New(errors.DiskProbeParseFailed, "malformed blkid export line").
				WithMetadata("line", line)
		}

		words, err := shellquote.Split(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.DiskProbeParseFailed).
				WithMetadata("key", key).
				WithMetadata("tool", "blkid")
		}
		result.Properties[key] = strings.Join(words, " ")
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.DiskProbeParseFailed).
			WithMetadata("tool", "blkid")
	}

	p := result.Properties
	result.Device = p["DEVNAME"]
	result.FSType = p["TYPE"]
	result.UUID = p["UUID"]
	result.Label = p["LABEL"]
	result.PartUUID = p["PART_ENTRY_UUID"]
	if result.PartUUID == "" {
		result.PartUUID = p["PARTUUID"]
	}
	result.Usage = p["USAGE"]
	result.Version = p["VERSION"]

	return result, nil
}
