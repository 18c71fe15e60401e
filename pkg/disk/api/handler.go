// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/disk/enumeration"
	"github.com/stratastor/blockwatch/pkg/disk/events"
	"github.com/stratastor/blockwatch/pkg/disk/hotplug"
	"github.com/stratastor/blockwatch/pkg/errors"
)

// APIResponse represents a standardized API response format
type APIResponse struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError represents error information in API responses
type APIError struct {
	Code    int                    `json:"code"`
	Domain  string                 `json:"domain"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// Enumerator lists devices present right now.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]enumeration.Volume, error)
}

// WatcherStatus exposes the running watcher's state.
type WatcherStatus interface {
	ID() uuid.UUID
	State() hotplug.State
	Stats() hotplug.MonitorStats
}

// StatsResponse is the body of the stats endpoint.
type StatsResponse struct {
	WatcherID string               `json:"watcher_id"`
	State     string               `json:"state"`
	Stats     hotplug.MonitorStats `json:"stats"`
	Buffered  int                  `json:"buffered_events"`
	LastSeq   uint64               `json:"last_seq"`
	Uptime    string               `json:"uptime,omitempty"`
}

// BlockwatchHandler serves device, event and watcher status requests
type BlockwatchHandler struct {
	enumerator Enumerator
	watcher    WatcherStatus
	buffer     *events.Buffer
	logger     logger.Logger
}

// NewBlockwatchHandler creates a new API handler
func NewBlockwatchHandler(
	enumerator Enumerator,
	watcher WatcherStatus,
	buffer *events.Buffer,
	logger logger.Logger,
) *BlockwatchHandler {
	return &BlockwatchHandler{
		enumerator: enumerator,
		watcher:    watcher,
		buffer:     buffer,
		logger:     logger,
	}
}

// sendSuccess sends a successful response with the standardized format
func (h *BlockwatchHandler) sendSuccess(c *gin.Context, statusCode int, result interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Result:  result,
	})
}

// sendError sends an error response with the standardized format
func (h *BlockwatchHandler) sendError(c *gin.Context, err error) {
	_ = c.Error(err)
	response := APIResponse{
		Success: false,
	}

	if rodentErr, ok := err.(*errors.RodentError); ok {
		response.Error = &APIError{
			Code:    int(rodentErr.Code),
			Domain:  string(rodentErr.Domain),
			Message: rodentErr.Message,
			Details: rodentErr.Details,
			Meta:    make(map[string]interface{}),
		}
		for k, v := range rodentErr.Metadata {
			response.Error.Meta[k] = v
		}
		c.JSON(rodentErr.HTTPStatus, response)
		return
	}

	response.Error = &APIError{
		Code:    http.StatusInternalServerError,
		Domain:  string(errors.DomainServer),
		Message: "Internal server error",
		Details: err.Error(),
	}
	c.JSON(http.StatusInternalServerError, response)
}

// ListDevices runs an enumeration and returns the volumes found.
func (h *BlockwatchHandler) ListDevices(c *gin.Context) {
	if h.enumerator == nil {
		h.sendError(c, errors.New(errors.DiskDiscoveryFailed, "enumeration is not configured"))
		return
	}

	volumes, err := h.enumerator.Enumerate(c.Request.Context())
	if err != nil {
		h.sendError(c, err)
		return
	}

	h.sendSuccess(c, http.StatusOK, map[string]interface{}{
		"devices": volumes,
		"count":   len(volumes),
	})
}

// ListEvents returns buffered events newer than the optional since query.
func (h *BlockwatchHandler) ListEvents(c *gin.Context) {
	var since uint64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.sendError(c, errors.New(errors.ServerBadRequest, "since must be a non-negative integer").
				WithMetadata("since", raw))
			return
		}
		since = v
	}

	records := h.buffer.Since(since)
	h.sendSuccess(c, http.StatusOK, map[string]interface{}{
		"events":   records,
		"count":    len(records),
		"last_seq": h.buffer.LastSeq(),
	})
}

// GetStats returns watcher state and counters.
func (h *BlockwatchHandler) GetStats(c *gin.Context) {
	resp := StatsResponse{
		State:    hotplug.StateUninitialized.String(),
		Buffered: h.buffer.Len(),
		LastSeq:  h.buffer.LastSeq(),
	}

	if h.watcher != nil {
		stats := h.watcher.Stats()
		resp.WatcherID = h.watcher.ID().String()
		resp.State = h.watcher.State().String()
		resp.Stats = stats
		if !stats.StartTime.IsZero() {
			resp.Uptime = time.Since(stats.StartTime).Round(time.Second).String()
		}
	}

	h.sendSuccess(c, http.StatusOK, resp)
}
