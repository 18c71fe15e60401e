// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/disk/enumeration"
	"github.com/stratastor/blockwatch/pkg/disk/events"
	"github.com/stratastor/blockwatch/pkg/disk/hotplug"
	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnumerator struct {
	volumes []enumeration.Volume
	err     error
}

func (s *stubEnumerator) Enumerate(context.Context) ([]enumeration.Volume, error) {
	return s.volumes, s.err
}

type stubWatcher struct {
	id    uuid.UUID
	state hotplug.State
	stats hotplug.MonitorStats
}

func (s *stubWatcher) ID() uuid.UUID                { return s.id }
func (s *stubWatcher) State() hotplug.State         { return s.state }
func (s *stubWatcher) Stats() hotplug.MonitorStats { return s.stats }

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error"`
}

func setupRouter(t *testing.T, enum Enumerator, w WatcherStatus) (*gin.Engine, *events.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l, err := logger.New(logger.Config{LogLevel: "debug"})
	require.NoError(t, err)

	buffer := events.NewBuffer(l, 16)
	h := NewBlockwatchHandler(enum, w, buffer, l)

	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1/blockwatch"))
	return router, buffer
}

func doGet(t *testing.T, router *gin.Engine, path string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestListDevices(t *testing.T) {
	router, _ := setupRouter(t, &stubEnumerator{volumes: []enumeration.Volume{
		{Path: "/dev/sda1", FSType: "ext4", UUID: "u-1"},
	}}, nil)

	code, body := doGet(t, router, "/api/v1/blockwatch/devices")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)

	var result struct {
		Devices []enumeration.Volume `json:"devices"`
		Count   int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body.Result, &result))
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, "/dev/sda1", result.Devices[0].Path)
}

func TestListDevices_Error(t *testing.T) {
	router, _ := setupRouter(t, &stubEnumerator{
		err: errors.New(errors.DiskDiscoveryFailed, "glob failed"),
	}, nil)

	code, body := doGet(t, router, "/api/v1/blockwatch/devices")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, errors.DiskDiscoveryFailed, body.Error.Code)
	assert.Equal(t, string(errors.DomainDisk), body.Error.Domain)
}

func TestListEvents(t *testing.T) {
	router, buffer := setupRouter(t, &stubEnumerator{}, nil)
	buffer.Add(hotplug.Event{Kind: hotplug.KindAdded, DevicePath: "/dev/sdb1"}, events.SourceHotplug)
	buffer.Add(hotplug.Event{Kind: hotplug.KindRemoved, DevicePath: "/dev/sdb1"}, events.SourceHotplug)

	code, body := doGet(t, router, "/api/v1/blockwatch/events?since=1")
	assert.Equal(t, http.StatusOK, code)

	var result struct {
		Events  []map[string]interface{} `json:"events"`
		Count   int                      `json:"count"`
		LastSeq uint64                   `json:"last_seq"`
	}
	require.NoError(t, json.Unmarshal(body.Result, &result))
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, uint64(2), result.LastSeq)
	assert.Equal(t, "removed", result.Events[0]["kind"])
}

func TestListEvents_BadSince(t *testing.T) {
	router, _ := setupRouter(t, &stubEnumerator{}, nil)

	code, body := doGet(t, router, "/api/v1/blockwatch/events?since=-3")
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, body.Error)
	assert.Equal(t, errors.ServerBadRequest, body.Error.Code)
}

func TestGetStats(t *testing.T) {
	w := &stubWatcher{
		id:    uuid.New(),
		state: hotplug.StatePolling,
		stats: hotplug.MonitorStats{Ticks: 10, EventsDelivered: 2, StartTime: time.Now().Add(-time.Minute)},
	}
	router, _ := setupRouter(t, &stubEnumerator{}, w)

	code, body := doGet(t, router, "/api/v1/blockwatch/stats")
	assert.Equal(t, http.StatusOK, code)

	var result StatsResponse
	require.NoError(t, json.Unmarshal(body.Result, &result))
	assert.Equal(t, w.id.String(), result.WatcherID)
	assert.Equal(t, "polling", result.State)
	assert.Equal(t, uint64(10), result.Stats.Ticks)
	assert.NotEmpty(t, result.Uptime)
}

func TestGetStats_NoWatcher(t *testing.T) {
	router, _ := setupRouter(t, &stubEnumerator{}, nil)

	_, body := doGet(t, router, "/api/v1/blockwatch/stats")
	var result StatsResponse
	require.NoError(t, json.Unmarshal(body.Result, &result))
	assert.Equal(t, "uninitialized", result.State)
}
