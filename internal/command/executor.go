// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	rterrors "github.com/stratastor/blockwatch/pkg/errors"
)

// Dangerous characters that could enable command injection
var dangerousChars = "&|><$`\\[];{}"

// Command execution timeout
const defaultCommandTimeout = 30 * time.Second

// CommandExecutor runs external tools with validation, an optional sudo
// prefix and a per-call timeout.
type CommandExecutor struct {
	UseSudo bool
	Timeout time.Duration
}

// NewCommandExecutor creates an executor with the default timeout
func NewCommandExecutor(useSudo bool) *CommandExecutor {
	return &CommandExecutor{
		UseSudo: useSudo,
		Timeout: defaultCommandTimeout,
	}
}

// ExecuteWithCombinedOutput runs name with args and returns stdout and stderr
// combined. A non-zero exit returns the output together with a command error
// that wraps the *exec.ExitError.
func (e *CommandExecutor) ExecuteWithCombinedOutput(
	ctx context.Context,
	name string,
	args ...string,
) ([]byte, error) {
	var out bytes.Buffer
	err := e.run(ctx, &out, &out, name, args...)
	if err != nil && out.Len() == 0 {
		return nil, err
	}
	return out.Bytes(), err
}

// Execute runs name with args and returns stdout only. Stderr never reaches
// the returned output; on failure it is attached to the error as "stderr".
func (e *CommandExecutor) Execute(
	ctx context.Context,
	name string,
	args ...string,
) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	err := e.run(ctx, &stdout, &stderr, name, args...)
	if err != nil {
		var re *rterrors.RodentError
		if errors.As(err, &re) && stderr.Len() > 0 {
			re.WithMetadata("stderr", strings.TrimSpace(stderr.String()))
		}
		if stdout.Len() == 0 {
			return nil, err
		}
	}
	return stdout.Bytes(), err
}

func (e *CommandExecutor) run(
	ctx context.Context,
	stdout, stderr *bytes.Buffer,
	name string,
	args ...string,
) error {
	if err := validateCommand(name, args); err != nil {
		return err
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmdArgs := e.buildCommandArgs(name, args...)
	cmdString := strings.Join(cmdArgs, " ")

	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)

	// Prevent shell expansion
	cmd.Env = []string{}

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return rterrors.New(rterrors.CommandTimeout, "command execution timed out").
			WithMetadata("command", cmdString).
			WithMetadata("timeout", timeout.String())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			re := rterrors.Wrap(err, rterrors.CommandExecution).
				WithMetadata("command", cmdString).
				WithMetadata("output", strings.TrimSpace(stdout.String()))
			re.Metadata["exit_code"] = strconv.Itoa(exitErr.ExitCode())
			return re
		}
		return rterrors.Wrap(err, rterrors.CommandExecution).
			WithMetadata("command", cmdString)
	}

	return nil
}

func (e *CommandExecutor) buildCommandArgs(name string, args ...string) []string {
	cmdArgs := make([]string, 0, len(args)+3)
	if e.UseSudo {
		cmdArgs = append(cmdArgs, "sudo", "-n")
	}
	cmdArgs = append(cmdArgs, name)
	return append(cmdArgs, args...)
}

// validateCommand performs security checks on the command and arguments
func validateCommand(name string, args []string) error {
	if name == "" {
		return rterrors.New(rterrors.CommandInvalidInput, "empty command")
	}

	// Check for absolute path or valid command name
	if !strings.HasPrefix(name, "/") && strings.ContainsAny(name, "/\\") {
		return rterrors.New(
			rterrors.CommandInvalidInput,
			"relative paths are not allowed for commands",
		)
	}

	if strings.ContainsAny(name, dangerousChars) {
		return rterrors.New(rterrors.CommandInvalidInput, "command contains invalid characters")
	}

	for _, arg := range args {
		if strings.ContainsAny(arg, dangerousChars) {
			return rterrors.New(
				rterrors.CommandInvalidInput,
				"argument contains invalid characters",
			).WithMetadata("argument", arg)
		}

		if strings.Contains(arg, "..") {
			return rterrors.New(rterrors.CommandInvalidInput, "path traversal not allowed")
		}
	}

	if len(args) > 64 {
		return rterrors.New(rterrors.CommandInvalidInput, "too many arguments")
	}

	return nil
}
