// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package enumeration

import (
	"context"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/disk/parsers"
	"github.com/stratastor/blockwatch/pkg/disk/tools"
	"github.com/stratastor/blockwatch/pkg/errors"
)

// Prober kinds accepted by NewProber.
const (
	ProberBlkid   = "blkid"
	ProberUdevadm = "udevadm"
)

// ProberConfig selects and configures the metadata prober.
type ProberConfig struct {
	Kind        string
	BlkidPath   string
	UdevadmPath string
	UseSudo     bool
	Timeout     time.Duration
}

// NewProber builds the prober named by cfg.Kind. An empty kind means blkid.
func NewProber(l logger.Logger, cfg ProberConfig) (Prober, error) {
	switch cfg.Kind {
	case "", ProberBlkid:
		path := cfg.BlkidPath
		if path == "" {
			path = tools.ToolBlkid
		}
		return NewBlkidProber(tools.NewBlkidExecutor(l, path, cfg.UseSudo, cfg.Timeout)), nil
	case ProberUdevadm:
		path := cfg.UdevadmPath
		if path == "" {
			path = tools.ToolUdevadm
		}
		return NewUdevProber(tools.NewUdevadmExecutor(l, path, cfg.UseSudo, cfg.Timeout)), nil
	default:
		return nil, errors.New(errors.DiskProberUnknown, "unsupported prober").
			WithMetadata("prober", cfg.Kind)
	}
}

// BlkidProber probes the device directly with blkid.
type BlkidProber struct {
	blkid *tools.BlkidExecutor
}

func NewBlkidProber(blkid *tools.BlkidExecutor) *BlkidProber {
	return &BlkidProber{blkid: blkid}
}

func (p *BlkidProber) Probe(ctx context.Context, devicePath string) (*parsers.ProbeResult, error) {
	output, err := p.blkid.Export(ctx, devicePath)
	if err != nil {
		if errors.HasCode(err, errors.CommandTimeout) {
			return nil, errors.Wrap(err, errors.DiskProbeTimeout).
				WithMetadata("device", devicePath)
		}
		return nil, errors.Wrap(err, errors.DiskProbeFailed).
			WithMetadata("device", devicePath).
			WithMetadata("prober", ProberBlkid)
	}

	result, err := parsers.ParseBlkidExport(output)
	if err != nil {
		return nil, err
	}
	if result.Device == "" {
		result.Device = devicePath
	}
	return result, nil
}

// UdevProber reads the properties udev recorded for the device.
type UdevProber struct {
	udevadm *tools.UdevadmExecutor
}

func NewUdevProber(udevadm *tools.UdevadmExecutor) *UdevProber {
	return &UdevProber{udevadm: udevadm}
}

func (p *UdevProber) Probe(ctx context.Context, devicePath string) (*parsers.ProbeResult, error) {
	output, err := p.udevadm.Info(ctx, devicePath)
	if err != nil {
		if errors.HasCode(err, errors.CommandTimeout) {
			return nil, errors.Wrap(err, errors.DiskProbeTimeout).
				WithMetadata("device", devicePath)
		}
		return nil, errors.Wrap(err, errors.DiskProbeFailed).
			WithMetadata("device", devicePath).
			WithMetadata("prober", ProberUdevadm)
	}

	result := parsers.ProbeResultFromUdev(parsers.ParseUdevProperties(string(output)))
	if result.Device == "" {
		result.Device = devicePath
	}
	return result, nil
}
