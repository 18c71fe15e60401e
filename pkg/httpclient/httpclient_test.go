// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	cfg := NewClientConfig()
	assert.NoError(t, ValidateConfig(cfg))

	cfg.BaseURL = "ftp://localhost"
	assert.True(t, errors.HasCode(ValidateConfig(cfg), errors.ConfigInvalid))

	cfg = NewClientConfig()
	cfg.RetryCount = -1
	assert.Error(t, ValidateConfig(cfg))
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("since"))
		assert.Contains(t, r.UserAgent(), "Blockwatch-CLI/")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":{"count":3}}`))
	}))
	defer srv.Close()

	cfg := NewClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RetryCount = 0
	client := NewClient(cfg)

	var out struct {
		Success bool `json:"success"`
		Result  struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "/events", map[string]string{"since": "7"}, &out))
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.Result.Count)
}

func TestGetJSON_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := NewClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RetryCount = 0
	client := NewClient(cfg)

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), "/health", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ServerInternalError))
}
