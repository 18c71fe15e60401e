// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/internal/command"
	"github.com/stratastor/blockwatch/pkg/errors"
)

// UdevadmExecutor wraps udevadm command execution
type UdevadmExecutor struct {
	logger   logger.Logger
	executor *command.CommandExecutor
	path     string
}

// NewUdevadmExecutor creates a new udevadm executor
func NewUdevadmExecutor(l logger.Logger, path string, useSudo bool, timeout time.Duration) *UdevadmExecutor {
	executor := command.NewCommandExecutor(useSudo)
	executor.Timeout = 10 * time.Second
	if timeout > 0 {
		executor.Timeout = timeout
	}

	return &UdevadmExecutor{
		logger:   l,
		executor: executor,
		path:     path,
	}
}

// Info gets udev properties for a device, including the ID_FS_* keys set
// by udev's blkid builtin.
func (u *UdevadmExecutor) Info(ctx context.Context, device string) ([]byte, error) {
	u.logger.Debug("getting udev info", "device", device)
	output, err := u.executor.Execute(ctx, u.path,
		"info",
		"--query=property",
		"--name="+device,
	)
	if err != nil {
		return output, errors.Wrap(err, errors.DiskToolExecutionFailed).
			WithMetadata("tool", "udevadm").
			WithMetadata("device", device)
	}
	return output, nil
}

// Settle waits for udev to process all queued events
func (u *UdevadmExecutor) Settle(ctx context.Context) error {
	u.logger.Debug("waiting for udev to settle")
	if _, err := u.executor.ExecuteWithCombinedOutput(ctx, u.path,
		"settle",
		"--timeout=10",
	); err != nil {
		return errors.Wrap(err, errors.DiskToolExecutionFailed).
			WithMetadata("tool", "udevadm").
			WithMetadata("operation", "settle")
	}
	return nil
}
