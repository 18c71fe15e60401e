// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesDefinition(t *testing.T) {
	err := New(DiskHotplugContextUnavailable, "socket: permission denied")

	assert.Equal(t, ErrorCode(DiskHotplugContextUnavailable), err.Code)
	assert.Equal(t, DomainHotplug, err.Domain)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
	assert.Contains(t, err.Error(), "socket: permission denied")
}

func TestNew_UnknownCode(t *testing.T) {
	err := New(ErrorCode(42), "")
	assert.Equal(t, "Unknown error", err.Message)
	assert.Equal(t, DomainMisc, err.Domain)
}

func TestWrap_KeepsCauseAndMetadata(t *testing.T) {
	base := stderrors.New("boom")
	inner := Wrap(base, DiskProbeFailed).WithMetadata("device", "/dev/sda1")
	outer := Wrap(fmt.Errorf("enumerate: %w", inner), DiskDiscoveryFailed)

	assert.True(t, stderrors.Is(outer, base))
	assert.Equal(t, "/dev/sda1", outer.Metadata["device"])
	assert.Equal(t, ErrorCode(DiskDiscoveryFailed), GetCode(outer))
	assert.True(t, HasCode(outer, DiskProbeFailed))
	assert.False(t, HasCode(outer, DiskToolNotFound))
}

func TestIs_ComparesCode(t *testing.T) {
	err := Wrap(stderrors.New("x"), DiskHotplugMonitorUnavailable)
	assert.True(t, stderrors.Is(err, New(DiskHotplugMonitorUnavailable, "")))
	assert.False(t, stderrors.Is(err, New(DiskHotplugContextUnavailable, "")))
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(New(DiskNotFound, "")))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(stderrors.New("plain")))
}

func TestNewCommandError(t *testing.T) {
	err := NewCommandError("blkid -p /dev/sda1", 2, "  nothing found \n")
	require.NotNil(t, err)
	assert.Equal(t, "nothing found", err.Details)
	assert.Equal(t, "2", err.Metadata["exit_code"])
	assert.Equal(t, "blkid -p /dev/sda1", err.Metadata["command"])
}
