// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package enumeration

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/errors"
)

// Config controls where and what the enumerator scans.
type Config struct {
	DeviceRoot string
	Pattern    string
}

// Enumerator performs one-shot scans of existing block devices. It keeps no
// state between scans and may be used before any watcher is started.
type Enumerator struct {
	logger  logger.Logger
	fs      afero.Fs
	prober  Prober
	root    string
	pattern string
}

// NewEnumerator creates an enumerator over fs. A nil fs means the OS
// filesystem.
func NewEnumerator(l logger.Logger, fs afero.Fs, prober Prober, cfg *Config) (*Enumerator, error) {
	if prober == nil {
		return nil, errors.New(errors.DiskProberUnknown, "prober is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	e := &Enumerator{
		logger:  l,
		fs:      fs,
		prober:  prober,
		root:    DefaultDeviceRoot,
		pattern: DefaultPattern,
	}
	if cfg != nil {
		if cfg.DeviceRoot != "" {
			e.root = cfg.DeviceRoot
		}
		if cfg.Pattern != "" {
			e.pattern = cfg.Pattern
		}
	}

	if !filepath.IsAbs(e.root) {
		return nil, errors.New(errors.DiskDevicePathInvalid, "device root must be absolute").
			WithMetadata("device_root", e.root)
	}
	if _, err := filepath.Match(e.pattern, ""); err != nil {
		return nil, errors.Wrap(err, errors.DiskDevicePathInvalid).
			WithMetadata("pattern", e.pattern)
	}

	return e, nil
}

// Enumerate lists devices matching the pattern that carry a filesystem.
// Candidates that vanish between listing and probing, or whose probe fails,
// are skipped.
func (e *Enumerator) Enumerate(ctx context.Context) ([]Volume, error) {
	start := time.Now()
	glob := filepath.Join(e.root, e.pattern)

	candidates, err := afero.Glob(e.fs, glob)
	if err != nil {
		return nil, errors.Wrap(err, errors.DiskDiscoveryFailed).
			WithMetadata("operation", "glob").
			WithMetadata("pattern", glob)
	}
	sort.Strings(candidates)

	e.logger.Debug("enumerating block devices",
		"pattern", glob,
		"candidates", len(candidates))

	volumes := make([]Volume, 0, len(candidates))
	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.DiskDiscoveryTimeout).
				WithMetadata("pattern", glob)
		}

		info, err := e.fs.Stat(path)
		if err != nil {
			e.logger.Debug("candidate vanished", "device", path, "error", err)
			continue
		}
		if info.IsDir() {
			continue
		}

		result, err := e.prober.Probe(ctx, path)
		if err != nil {
			e.logger.Warn("failed to probe device", "device", path, "error", err)
			continue
		}
		if !result.HasFilesystem() {
			e.logger.Debug("no filesystem on device", "device", path)
			continue
		}

		volumes = append(volumes, Volume{
			Path:   path,
			FSType: result.FSType,
			UUID:   result.UUID,
			Label:  result.Label,
		})
	}

	e.logger.Info("block device enumeration complete",
		"candidates", len(candidates),
		"volumes", len(volumes),
		"duration", time.Since(start))

	return volumes, nil
}
