// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	stderrors "errors"
	"os/exec"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/internal/command"
	"github.com/stratastor/blockwatch/pkg/errors"
)

// blkidExitNotFound is blkid's exit status when no signature is detected.
const blkidExitNotFound = 2

// BlkidExecutor wraps blkid command execution
type BlkidExecutor struct {
	logger   logger.Logger
	executor *command.CommandExecutor
	path     string
}

// NewBlkidExecutor creates a new blkid executor
func NewBlkidExecutor(l logger.Logger, path string, useSudo bool, timeout time.Duration) *BlkidExecutor {
	executor := command.NewCommandExecutor(useSudo)
	executor.Timeout = 10 * time.Second
	if timeout > 0 {
		executor.Timeout = timeout
	}

	return &BlkidExecutor{
		logger:   l,
		executor: executor,
		path:     path,
	}
}

// Export runs a low-level probe (bypassing the blkid cache) and returns the
// KEY=VALUE export format. A device without any recognizable signature
// returns empty output and no error.
func (b *BlkidExecutor) Export(ctx context.Context, device string) ([]byte, error) {
	b.logger.Debug("probing device with blkid", "device", device)

	output, err := b.executor.Execute(ctx, b.path,
		"-p",
		"-o", "export",
		device,
	)
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) && exitErr.ExitCode() == blkidExitNotFound {
			return nil, nil
		}
		return output, errors.Wrap(err, errors.DiskToolExecutionFailed).
			WithMetadata("tool", "blkid").
			WithMetadata("device", device)
	}
	return output, nil
}
