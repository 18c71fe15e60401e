// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSingleInstance(t *testing.T) {
	t.Cleanup(Shutdown)
	pidPath := filepath.Join(t.TempDir(), "run", "blockwatch.pid")

	require.NoError(t, EnsureSingleInstance(pidPath))

	data, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// Our own PID does not block a second call.
	require.NoError(t, EnsureSingleInstance(pidPath))

	Shutdown()
	_, err = os.Stat(pidPath)
	assert.True(t, os.IsNotExist(err))
}

func TestEnsureSingleInstance_LiveProcess(t *testing.T) {
	t.Cleanup(Shutdown)
	pidPath := filepath.Join(t.TempDir(), "blockwatch.pid")

	// PID 1 always exists.
	require.NoError(t, os.WriteFile(pidPath, []byte("1"), 0644))

	err := EnsureSingleInstance(pidPath)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.LifecycleAlreadyRunning) ||
		errors.HasCode(err, errors.LifecyclePIDFile))
}

func TestEnsureSingleInstance_InvalidContent(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "blockwatch.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("not-a-pid"), 0644))

	err := EnsureSingleInstance(pidPath)
	assert.True(t, errors.HasCode(err, errors.LifecyclePIDFile))

	assert.True(t, errors.HasCode(EnsureSingleInstance(""), errors.LifecyclePIDFile))
}

func TestShutdown_RunsHooksInReverse(t *testing.T) {
	var order []int
	ctx, cancelFn := context.WithCancel(context.Background())
	RegisterContextCanceller(cancelFn)
	RegisterShutdownHook(func() { order = append(order, 1) })
	RegisterShutdownHook(func() { order = append(order, 2) })

	Shutdown()
	Shutdown()

	assert.Equal(t, []int{2, 1}, order)
	assert.Error(t, ctx.Err())
}

func TestReload(t *testing.T) {
	calls := 0
	RegisterReloadHook(func() { calls++ })
	reload()
	assert.Equal(t, 1, calls)
}
