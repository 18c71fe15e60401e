// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/internal/constants"
	"github.com/stratastor/blockwatch/pkg/disk/api"
	"github.com/stratastor/blockwatch/pkg/disk/hotplug"
)

func registerRoutes(engine *gin.Engine, cfg *config.Config, l logger.Logger, deps Dependencies) {
	endpoint := cfg.Health.Endpoint
	if endpoint == "" {
		endpoint = "/health"
	}
	engine.GET(endpoint, healthHandler(deps.Watcher))

	handler := api.NewBlockwatchHandler(deps.Enumerator, deps.Watcher, deps.Buffer, l)
	handler.RegisterRoutes(engine.Group(constants.APIBase))
}

// healthHandler reports unhealthy once the watcher has been cancelled; a
// server without a watcher only serves enumeration and is always healthy.
func healthHandler(w api.WatcherStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"version": constants.Version,
		}
		if w == nil {
			c.JSON(http.StatusOK, body)
			return
		}

		state := w.State()
		body["watcher"] = state.String()
		if state == hotplug.StateCancelled {
			body["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}
