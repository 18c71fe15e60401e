// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	rterrors "github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		args    []string
		wantErr bool
	}{
		{"plain tool", "blkid", []string{"-p", "-o", "export", "/dev/sda1"}, false},
		{"absolute path", "/usr/sbin/blkid", []string{"/dev/sda1"}, false},
		{"empty", "", nil, true},
		{"relative path", "bin/blkid", nil, true},
		{"injection in arg", "blkid", []string{"/dev/sda1;reboot"}, true},
		{"traversal", "blkid", []string{"/dev/../etc/shadow"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCommand(tt.cmd, tt.args)
			if tt.wantErr {
				assert.True(t, rterrors.HasCode(err, rterrors.CommandInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildCommandArgs(t *testing.T) {
	e := NewCommandExecutor(true)
	assert.Equal(t, []string{"sudo", "-n", "blkid", "/dev/sda1"}, e.buildCommandArgs("blkid", "/dev/sda1"))

	e = NewCommandExecutor(false)
	assert.Equal(t, []string{"blkid", "/dev/sda1"}, e.buildCommandArgs("blkid", "/dev/sda1"))
}

func TestExecuteWithCombinedOutput_RejectsInvalidInput(t *testing.T) {
	e := NewCommandExecutor(false)
	out, err := e.ExecuteWithCombinedOutput(context.Background(), "blkid", "$(id)")
	assert.Nil(t, out)
	assert.True(t, rterrors.HasCode(err, rterrors.CommandInvalidInput))
}

// TestHelperProcess is not a real test. The executor tests re-run the test
// binary with a mode after "--" to get a child that writes to both streams.
func TestHelperProcess(t *testing.T) {
	mode := ""
	for i, arg := range os.Args {
		if arg == "--" && i+1 < len(os.Args) {
			mode = os.Args[i+1]
		}
	}
	switch mode {
	case "warn-ok":
		fmt.Fprintln(os.Stderr, "blkid: warning something")
		fmt.Fprintln(os.Stdout, "TYPE=ext4")
		os.Exit(0)
	case "warn-fail":
		fmt.Fprintln(os.Stderr, "blkid: cannot open device")
		os.Exit(4)
	}
}

func helperCommand(t *testing.T, mode string) (string, []string) {
	t.Helper()
	bin, err := filepath.Abs(os.Args[0])
	require.NoError(t, err)
	return bin, []string{"-test.run=TestHelperProcess", "--", mode}
}

func TestExecute_StdoutOnly(t *testing.T) {
	bin, args := helperCommand(t, "warn-ok")
	e := NewCommandExecutor(false)

	out, err := e.Execute(context.Background(), bin, args...)
	require.NoError(t, err)
	assert.Equal(t, "TYPE=ext4\n", string(out))

	out, err = e.ExecuteWithCombinedOutput(context.Background(), bin, args...)
	require.NoError(t, err)
	assert.Contains(t, string(out), "blkid: warning something")
	assert.Contains(t, string(out), "TYPE=ext4")
}

func TestExecute_StderrInErrorMetadata(t *testing.T) {
	bin, args := helperCommand(t, "warn-fail")
	e := NewCommandExecutor(false)

	out, err := e.Execute(context.Background(), bin, args...)
	assert.Nil(t, out)
	require.True(t, rterrors.HasCode(err, rterrors.CommandExecution))

	var re *rterrors.RodentError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Metadata["stderr"], "blkid: cannot open device")
	assert.Equal(t, "4", re.Metadata["exit_code"])
}
