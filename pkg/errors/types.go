// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	DomainConfig    Domain = "CONFIG"
	DomainServer    Domain = "SERVER"
	DomainCommand   Domain = "CMD"
	DomainLifecycle Domain = "LIFECYCLE"
	DomainScheduler Domain = "SCHEDULER"
	DomainMisc      Domain = "MISC"
	DomainSystem    Domain = "SYSTEM"
	DomainDisk      Domain = "DISK"
	DomainHotplug   Domain = "HOTPLUG"
)

// ErrorCode represents unique error identifiers
type ErrorCode int

// Domain represents the subsystem where the error originated
type Domain string

type RodentError struct {
	Code       ErrorCode `json:"code"`
	Domain     Domain    `json:"domain"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`

	// Metadata carries contextual key/value pairs (operation, device, tool)
	// that are logged alongside the error and returned by the API.
	Metadata map[string]string `json:"metadata,omitempty"`

	cause error
}

// Error code ranges:
// 1000-1099: Configuration errors
// 1100-1199: Server errors
// 1300-1399: Command execution
// 1500-1599: Lifecycle management
// 1600-1649: Job scheduling
// 1750-1799: Generic system errors
// 2300-2399: Disk discovery, probing and hotplug
const (
	// Configuration Errors (1000-1099)
	ConfigNotFound         = 1000 + iota // Config file not found
	ConfigInvalid                        // Invalid config format
	ConfigLoadFailed                     // Failed to load config
	ConfigWriteFailed                    // Failed to write config
	ConfigValidationFailed               // Config validation failed
	ConfigMarshalFailed                  // Config serialization failed
)

const (
	// Server Errors (1100-1199)
	ServerStart         = 1100 + iota // Failed to start server
	ServerShutdown                    // Error during shutdown
	ServerBadRequest                  // Bad request error
	ServerInternalError               // Internal server error
)

const (
	// Command Execution Errors (1300-1399)
	CommandNotFound     = 1300 + iota // Command not found
	CommandExecution                  // Command execution failed
	CommandTimeout                    // Command timed out
	CommandInvalidInput               // Invalid command input
	CommandOutputParse                // Failed to parse command output
)

const (
	// Lifecycle Errors (1500-1599)
	LifecyclePIDFile         = 1500 + iota // PID file handling failed
	LifecycleAlreadyRunning                // Another instance is running
	LifecycleDaemonizeFailed               // Failed to daemonize
)

const (
	// Scheduler Errors (1600-1649)
	SchedulerCreateFailed   = 1600 + iota // Failed to create scheduler
	SchedulerJobFailed                    // Failed to register job
	SchedulerJobNotFound                  // Job not registered
	SchedulerShutdownFailed               // Failed to shut down scheduler
)

const (
	// System Errors (1750-1799)
	OperationFailed  = 1750 + iota // Generic operation failed
	PermissionDenied               // Permission denied
)

type errorDefinition struct {
	message    string
	domain     Domain
	httpStatus int
}

var errorDefinitions = map[ErrorCode]errorDefinition{
	ConfigNotFound:         {"Configuration file not found", DomainConfig, http.StatusNotFound},
	ConfigInvalid:          {"Invalid configuration format", DomainConfig, http.StatusBadRequest},
	ConfigLoadFailed:       {"Failed to load configuration", DomainConfig, http.StatusInternalServerError},
	ConfigWriteFailed:      {"Failed to write configuration", DomainConfig, http.StatusInternalServerError},
	ConfigValidationFailed: {"Configuration validation failed", DomainConfig, http.StatusBadRequest},
	ConfigMarshalFailed:    {"Failed to serialize configuration", DomainConfig, http.StatusInternalServerError},

	ServerStart:         {"Failed to start the server", DomainServer, http.StatusInternalServerError},
	ServerShutdown:      {"Error during server shutdown", DomainServer, http.StatusInternalServerError},
	ServerBadRequest:    {"Bad request", DomainServer, http.StatusBadRequest},
	ServerInternalError: {"Internal server error", DomainServer, http.StatusInternalServerError},

	CommandNotFound:     {"Command not found", DomainCommand, http.StatusNotFound},
	CommandExecution:    {"Command execution failed", DomainCommand, http.StatusInternalServerError},
	CommandTimeout:      {"Command execution timed out", DomainCommand, http.StatusGatewayTimeout},
	CommandInvalidInput: {"Invalid command input", DomainCommand, http.StatusBadRequest},
	CommandOutputParse:  {"Failed to parse command output", DomainCommand, http.StatusInternalServerError},

	LifecyclePIDFile:         {"PID file operation failed", DomainLifecycle, http.StatusInternalServerError},
	LifecycleAlreadyRunning:  {"Another instance is already running", DomainLifecycle, http.StatusConflict},
	LifecycleDaemonizeFailed: {"Failed to start daemon", DomainLifecycle, http.StatusInternalServerError},

	SchedulerCreateFailed:   {"Failed to create scheduler", DomainScheduler, http.StatusInternalServerError},
	SchedulerJobFailed:      {"Failed to register scheduled job", DomainScheduler, http.StatusInternalServerError},
	SchedulerJobNotFound:    {"Scheduled job not found", DomainScheduler, http.StatusNotFound},
	SchedulerShutdownFailed: {"Failed to shut down scheduler", DomainScheduler, http.StatusInternalServerError},

	OperationFailed:  {"Operation failed", DomainSystem, http.StatusInternalServerError},
	PermissionDenied: {"Permission denied", DomainSystem, http.StatusForbidden},
}

// New creates a RodentError for code with optional details.
func New(code ErrorCode, details string) *RodentError {
	def, ok := errorDefinitions[code]
	if !ok {
		def = errorDefinition{"Unknown error", DomainMisc, http.StatusInternalServerError}
	}
	return &RodentError{
		Code:       code,
		Domain:     def.domain,
		Message:    def.message,
		Details:    details,
		HTTPStatus: def.httpStatus,
		Metadata:   make(map[string]string),
	}
}

// Wrap wraps err under code. The original error text becomes the details and
// stays reachable through errors.Unwrap.
func Wrap(err error, code ErrorCode) *RodentError {
	if err == nil {
		return New(code, "")
	}
	re := New(code, err.Error())
	re.cause = err

	// Carry over metadata of a wrapped RodentError so context is not lost
	// as the error crosses package boundaries.
	var inner *RodentError
	if stderrors.As(err, &inner) {
		for k, v := range inner.Metadata {
			re.Metadata[k] = v
		}
	}
	return re
}

// NewCommandError creates an error describing a failed external command.
func NewCommandError(cmd string, exitCode int, stderr string) *RodentError {
	return New(CommandExecution, strings.TrimSpace(stderr)).
		WithMetadata("command", cmd).
		WithMetadata("exit_code", fmt.Sprintf("%d", exitCode))
}

// WithMetadata attaches a key/value pair and returns the error for chaining.
func (e *RodentError) WithMetadata(key, value string) *RodentError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

func (e *RodentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s-%d] %s", e.Domain, e.Code, e.Message)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+e.Metadata[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(pairs, ", "))
	}
	return b.String()
}

func (e *RodentError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a RodentError carrying the same code.
func (e *RodentError) Is(target error) bool {
	t, ok := target.(*RodentError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// GetCode returns the code of the outermost RodentError in err's chain, or 0.
func GetCode(err error) ErrorCode {
	var re *RodentError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return 0
}

// HasCode reports whether any RodentError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if re, ok := err.(*RodentError); ok && re.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// GetHTTPStatus maps err to an HTTP status code.
func GetHTTPStatus(err error) int {
	var re *RodentError
	if stderrors.As(err, &re) && re.HTTPStatus != 0 {
		return re.HTTPStatus
	}
	return http.StatusInternalServerError
}
