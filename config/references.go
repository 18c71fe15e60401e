// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"

	"github.com/stratastor/blockwatch/internal/constants"
	"github.com/stratastor/blockwatch/pkg/errors"
)

var (
	configDir string // Directory for configuration files
	runDir    string // Directory for the PID file
)

func init() {
	if os.Geteuid() == 0 {
		configDir = constants.SystemConfigDir
		runDir = "/run/" + constants.AppName
		return
	}

	// Otherwise, use user config directory
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		homeDir = os.TempDir()
	}

	configDir = filepath.Join(homeDir, constants.UserConfigDirName)
	runDir = configDir
}

// GetConfigDir returns the appropriate configuration directory
// If running as root, it returns the system config directory
// Otherwise, it returns the user config directory
func GetConfigDir() string {
	return configDir
}

// GetRunDir returns the directory holding runtime files such as the PID file
func GetRunDir() string {
	return runDir
}

// GetPIDFilePath returns the single-instance PID file path
func GetPIDFilePath() string {
	return filepath.Join(runDir, constants.PIDFileName)
}

// EnsureDirectories creates necessary directories if they do not exist
func EnsureDirectories() error {
	for _, dir := range []string{configDir, runDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, errors.ConfigWriteFailed).
				WithMetadata("dir", dir)
		}
	}
	return nil
}
