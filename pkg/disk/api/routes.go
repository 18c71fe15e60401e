// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the blockwatch API routes under router, which is
// expected to be mounted at the API base path.
func (h *BlockwatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/devices", h.ListDevices)
	router.GET("/events", h.ListEvents)
	router.GET("/stats", h.GetStats)
}
