// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package httpclient

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stratastor/blockwatch/internal/constants"
	"github.com/stratastor/blockwatch/pkg/errors"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultRetryCount      = 3
	defaultRetryWaitTime   = 2 * time.Second
	defaultRetryMaxWait    = 10 * time.Second
	defaultMaxIdleConns    = 10
	defaultIdleConnTimeout = 90 * time.Second
	defaultUserAgent       = "Blockwatch-CLI"
)

// Client wraps resty.Client with additional functionality
type Client struct {
	*resty.Client
	config ClientConfig
}

// ClientConfig holds configuration values for the HTTP client
type ClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	RetryConditions  []resty.RetryConditionFunc
	UserAgent        string
	Headers          map[string]string
	AllowInsecure    bool

	MaxIdleConns    int
	IdleConnTimeout time.Duration

	Debug bool
}

// NewClientConfig returns a ClientConfig with sensible defaults
func NewClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:          defaultTimeout,
		RetryCount:       defaultRetryCount,
		RetryWaitTime:    defaultRetryWaitTime,
		RetryMaxWaitTime: defaultRetryMaxWait,
		UserAgent:        defaultUserAgent + "/" + constants.BlockwatchVersion,
		Headers:          make(map[string]string),
		MaxIdleConns:     defaultMaxIdleConns,
		IdleConnTimeout:  defaultIdleConnTimeout,
	}
}

// NewClient creates a new Resty client with provided configuration
func NewClient(config ClientConfig) *Client {
	client := &Client{
		Client: resty.New(),
		config: config,
	}
	client.applyConfig()
	return client
}

// applyConfig applies the client configuration
func (c *Client) applyConfig() {
	if c.config.Timeout > 0 {
		c.Client.SetTimeout(c.config.Timeout)
	}
	if c.config.RetryCount > 0 {
		c.Client.SetRetryCount(c.config.RetryCount)
	}
	if c.config.RetryWaitTime > 0 {
		c.Client.SetRetryWaitTime(c.config.RetryWaitTime)
	}
	if c.config.RetryMaxWaitTime > 0 {
		c.Client.SetRetryMaxWaitTime(c.config.RetryMaxWaitTime)
	}
	if c.config.UserAgent != "" {
		c.Client.SetHeader("User-Agent", c.config.UserAgent)
	}
	if c.config.BaseURL != "" {
		c.Client.SetBaseURL(c.config.BaseURL)
	}
	if c.config.Headers != nil {
		c.Client.SetHeaders(c.config.Headers)
	}
	for _, condition := range c.config.RetryConditions {
		c.Client.AddRetryCondition(condition)
	}

	c.Client.SetDebug(c.config.Debug)
	if !c.config.Debug {
		// Suppress Resty logs by setting a no-op logger
		c.Client.SetLogger(NoOpLogger{})
	}

	transport := &http.Transport{
		MaxIdleConns:    c.config.MaxIdleConns,
		IdleConnTimeout: c.config.IdleConnTimeout,
	}
	if c.config.AllowInsecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	c.Client.SetTransport(transport)
}

// NoOpLogger suppresses all logs
type NoOpLogger struct{}

func (NoOpLogger) Errorf(format string, v ...interface{}) {}
func (NoOpLogger) Warnf(format string, v ...interface{})  {}
func (NoOpLogger) Debugf(format string, v ...interface{}) {}

// ValidateConfig checks if the configuration is valid
func ValidateConfig(config ClientConfig) error {
	if config.BaseURL != "" {
		u, err := url.Parse(config.BaseURL)
		if err != nil {
			return errors.Wrap(err, errors.ConfigInvalid).
				WithMetadata("base_url", config.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New(errors.ConfigInvalid, "base URL must use http or https").
				WithMetadata("base_url", config.BaseURL)
		}
	}
	if config.RetryCount < 0 {
		return errors.New(errors.ConfigInvalid, "retry count must not be negative")
	}
	if config.Timeout < 0 {
		return errors.New(errors.ConfigInvalid, "timeout must not be negative")
	}
	return nil
}

// GetJSON issues a GET for path and decodes a 2xx JSON body into result.
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, result interface{}) error {
	resp, err := c.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(result).
		Get(path)
	if err != nil {
		return errors.Wrap(err, errors.ServerInternalError).
			WithMetadata("path", path)
	}
	if !resp.IsSuccess() {
		return errors.New(errors.ServerInternalError, resp.String()).
			WithMetadata("path", path).
			WithMetadata("status", resp.Status())
	}
	return nil
}
