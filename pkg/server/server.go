// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Gist of what's happening:
//
// gin.New() provides the router, middleware chain and ServeHTTP. It is
// mounted as the Handler of a plain http.Server so that shutdown is driven
// by the lifecycle package's context instead of gin.Run(), which blocks and
// cannot be stopped gracefully.

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/internal/constants"
	"github.com/stratastor/blockwatch/pkg/disk/events"
	"github.com/stratastor/blockwatch/pkg/disk/api"
	"github.com/stratastor/blockwatch/pkg/errors"
)

var (
	srvMu sync.Mutex
	srv   *http.Server
)

// Dependencies are the components the HTTP API reports on.
type Dependencies struct {
	Enumerator api.Enumerator
	Watcher    api.WatcherStatus // nil when the watcher is not running
	Buffer     *events.Buffer
}

// NewEngine builds the gin engine with middleware and all routes.
func NewEngine(l logger.Logger, cfg *config.Config, deps Dependencies) *gin.Engine {
	// Switch to debug mode for non-production environments
	switch cfg.Environment {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	// Create engine without middleware
	engine := gin.New()
	engine.Use(gin.Recovery())
	healthEndpoint := cfg.Health.Endpoint
	if healthEndpoint == "" {
		healthEndpoint = "/health"
	}
	engine.Use(LoggerMiddleware(l,
		[]string{healthEndpoint},
		[]string{constants.APIEvents, constants.APIStats},
	))

	registerRoutes(engine, cfg, l, deps)
	return engine
}

// Start serves the API on port until ctx is cancelled.
func Start(ctx context.Context, l logger.Logger, deps Dependencies) error {
	cfg := config.GetConfig()
	engine := NewEngine(l, cfg, deps)

	srvMu.Lock()
	srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s := srv
	srvMu.Unlock()

	// Channel to catch server startup errors
	errChan := make(chan error, 1)

	go func() {
		l.Info("HTTP API listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for either server error or context cancellation
	select {
	case err := <-errChan:
		return errors.Wrap(err, errors.ServerStart).
			WithMetadata("addr", s.Addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully stops the running server, if any.
func Shutdown(ctx context.Context) error {
	srvMu.Lock()
	s := srv
	srv = nil
	srvMu.Unlock()

	if s == nil {
		return nil
	}
	if err := s.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ServerShutdown)
	}
	return nil
}
