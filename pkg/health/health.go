// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/internal/constants"
	"github.com/stratastor/blockwatch/pkg/disk/api"
	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stratastor/blockwatch/pkg/httpclient"
)

// HealthChecker queries a running blockwatch server.
type HealthChecker struct {
	Client   *httpclient.Client
	Logger   logger.Logger
	endpoint string
}

// NewHealthChecker creates a checker for the server configured in cfg.
func NewHealthChecker(l logger.Logger, cfg *config.Config) *HealthChecker {
	clientConfig := httpclient.NewClientConfig()
	clientConfig.Timeout = 5 * time.Second
	clientConfig.RetryCount = 3
	clientConfig.RetryWaitTime = 2 * time.Second
	clientConfig.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	endpoint := cfg.Health.Endpoint
	if endpoint == "" {
		endpoint = "/health"
	}

	return &HealthChecker{
		Client:   httpclient.NewClient(clientConfig),
		Logger:   l,
		endpoint: endpoint,
	}
}

// HealthReport is the health endpoint body.
type HealthReport struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Watcher string `json:"watcher,omitempty"`
}

// CheckHealth returns the server's health report. An unhealthy server yields
// an error together with whatever report it sent.
func (hc *HealthChecker) CheckHealth(ctx context.Context) (*HealthReport, error) {
	var report HealthReport
	resp, err := hc.Client.R().
		SetContext(ctx).
		SetResult(&report).
		SetError(&report).
		Get(hc.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, errors.ServerInternalError).
			WithMetadata("endpoint", hc.endpoint)
	}

	if !resp.IsSuccess() {
		return &report, errors.New(errors.ServerInternalError, "unhealthy").
			WithMetadata("status", resp.Status()).
			WithMetadata("watcher", report.Watcher)
	}

	hc.Logger.Debug("health check passed", "watcher", report.Watcher)
	return &report, nil
}

type statsEnvelope struct {
	Success bool              `json:"success"`
	Result  api.StatsResponse `json:"result"`
}

// Stats fetches watcher statistics from the running server.
func (hc *HealthChecker) Stats(ctx context.Context) (*api.StatsResponse, error) {
	var env statsEnvelope
	if err := hc.Client.GetJSON(ctx, constants.APIStats, nil, &env); err != nil {
		return nil, err
	}
	return &env.Result, nil
}
