// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package hotplug

import (
	"time"

	"github.com/google/uuid"
)

// Scheduler is the host loop the watcher hooks its periodic tick into.
// Implementations must not run two invocations of the same fn concurrently.
type Scheduler interface {
	Register(name string, period time.Duration, fn func()) (uuid.UUID, error)
	// Deregister removes the job. An invocation already in flight may still
	// complete after it returns.
	Deregister(id uuid.UUID) error
}
