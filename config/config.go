// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/internal/constants"
	"github.com/stratastor/blockwatch/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	instance   *Config
	once       sync.Once
	mu         sync.RWMutex
	configPath string // Tracks where the config was loaded from
)

type Config struct {
	Server struct {
		Port      int    `mapstructure:"port" yaml:"port"`
		LogLevel  string `mapstructure:"logLevel" yaml:"logLevel"`
		Daemonize bool   `mapstructure:"daemonize" yaml:"daemonize"`
	} `mapstructure:"server" yaml:"server"`

	Health struct {
		Interval string `mapstructure:"interval" yaml:"interval"`
		Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	} `mapstructure:"health" yaml:"health"`

	Logs struct {
		Path      string `mapstructure:"path" yaml:"path"`
		Retention string `mapstructure:"retention" yaml:"retention"`
		Output    string `mapstructure:"output" yaml:"output"` // stdout or file
	} `mapstructure:"logs" yaml:"logs"`

	Logger struct {
		LogLevel     string `mapstructure:"logLevel" yaml:"logLevel"`
		EnableSentry bool   `mapstructure:"enableSentry" yaml:"enableSentry"`
		SentryDSN    string `mapstructure:"sentryDSN" yaml:"sentryDSN"`
	} `mapstructure:"logger" yaml:"logger"`

	Watcher struct {
		Subsystem        string `mapstructure:"subsystem" yaml:"subsystem"`
		TickInterval     string `mapstructure:"tickInterval" yaml:"tickInterval"`
		ReadyTimeout     string `mapstructure:"readyTimeout" yaml:"readyTimeout"`
		EnumerateOnStart bool   `mapstructure:"enumerateOnStart" yaml:"enumerateOnStart"`
	} `mapstructure:"watcher" yaml:"watcher"`

	Enumeration struct {
		DeviceRoot   string `mapstructure:"deviceRoot" yaml:"deviceRoot"`
		Pattern      string `mapstructure:"pattern" yaml:"pattern"`
		Prober       string `mapstructure:"prober" yaml:"prober"` // blkid or udevadm
		BlkidPath    string `mapstructure:"blkidPath" yaml:"blkidPath"`
		UdevadmPath  string `mapstructure:"udevadmPath" yaml:"udevadmPath"`
		UseSudo      bool   `mapstructure:"useSudo" yaml:"useSudo"`
		ProbeTimeout string `mapstructure:"probeTimeout" yaml:"probeTimeout"`
	} `mapstructure:"enumeration" yaml:"enumeration"`

	Events struct {
		BufferSize int `mapstructure:"bufferSize" yaml:"bufferSize"`
	} `mapstructure:"events" yaml:"events"`

	Environment string `mapstructure:"environment" yaml:"environment"`
}

func setDefaults() {
	viper.SetDefault("environment", "dev")
	viper.SetDefault("server.port", 8052)
	viper.SetDefault("server.logLevel", "info")
	viper.SetDefault("server.daemonize", false)
	viper.SetDefault("health.interval", "30s")
	viper.SetDefault("health.endpoint", "/health")
	viper.SetDefault("logs.path", constants.DefaultLogFilePath)
	viper.SetDefault("logs.retention", "7d")
	viper.SetDefault("logs.output", "stdout")
	viper.SetDefault("logger.logLevel", "info")
	viper.SetDefault("logger.enableSentry", false)
	viper.SetDefault("logger.sentryDSN", "")

	// Hotplug watcher
	viper.SetDefault("watcher.subsystem", "block")
	viper.SetDefault("watcher.tickInterval", "100ms")
	viper.SetDefault("watcher.readyTimeout", "5ms")
	viper.SetDefault("watcher.enumerateOnStart", true)

	// Enumeration of devices present at startup
	viper.SetDefault("enumeration.deviceRoot", "/dev")
	viper.SetDefault("enumeration.pattern", "sd*[0-9]")
	viper.SetDefault("enumeration.prober", "blkid")
	viper.SetDefault("enumeration.blkidPath", "/usr/sbin/blkid")
	viper.SetDefault("enumeration.udevadmPath", "/usr/bin/udevadm")
	viper.SetDefault("enumeration.useSudo", false)
	viper.SetDefault("enumeration.probeTimeout", "10s")

	viper.SetDefault("events.bufferSize", 256)
}

// LoadConfig loads the configuration with precedence rules.
func LoadConfig(configFilePath string) *Config {
	once.Do(func() {
		// Setup basic logger for initialization
		logConfig := logger.Config{
			LogLevel:     "info",
			EnableSentry: false,
			SentryDSN:    "",
		}
		l, err := logger.NewTag(logConfig, "config")
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}

		// Reset viper to avoid any potential carryover
		viper.Reset()
		viper.SetConfigType("yaml")

		// Determine which config file to use with clear priorities
		systemConfigPath := filepath.Join(GetConfigDir(), constants.ConfigFileName)

		var path string
		if configFilePath != "" {
			// 1. Priority: Explicit path from command line
			path = configFilePath
		} else if envPath := os.Getenv(constants.ConfigEnvVar); envPath != "" {
			// 2. Priority: Environment variable
			path = envPath
		} else {
			// 3. Priority: Always default to system-wide config
			path = systemConfigPath
		}

		// Convert to absolute path if possible for consistency
		if absPath, err := filepath.Abs(path); err == nil {
			path = absPath
		}
		l.Info("Using config file", "path", path)

		viper.SetConfigFile(path)
		setDefaults()

		// Bind environment variables
		viper.AutomaticEnv()
		viper.SetEnvPrefix(constants.EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		var cfg Config
		err = viper.ReadInConfig()
		if err != nil {
			// Unmarshal whatever we have: defaults plus environment
			if uerr := viper.Unmarshal(&cfg); uerr != nil {
				l.Error("Failed to unmarshal default configuration", "err", uerr)
			}
			setInstance(&cfg, path)

			var notFound viper.ConfigFileNotFoundError
			if stderrors.As(err, &notFound) || stderrors.Is(err, fs.ErrNotExist) {
				// File doesn't exist, create a default one
				l.Info("Config file not found, creating default", "path", path)
				if err := SaveConfig(path); err != nil {
					l.Error("Failed to save default configuration", "err", err)
				}
			} else {
				// Some other error (parse error, etc.)
				l.Error("Error reading config file", "err", err)
			}
		} else {
			// Successfully loaded config
			l.Info("Config file loaded successfully", "path", viper.ConfigFileUsed())
			if err := viper.Unmarshal(&cfg); err != nil {
				l.Error("Failed to parse configuration", "err", err)
			}
			setInstance(&cfg, viper.ConfigFileUsed())
		}

		if err := cfg.Validate(); err != nil {
			l.Warn("Configuration has invalid values, defaults will be used where possible", "err", err)
		}

		l.Debug("Loaded configuration", "config", fmt.Sprintf("%+v", cfg))
	})

	mu.RLock()
	defer mu.RUnlock()
	return instance
}

func setInstance(cfg *Config, path string) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
	configPath = path
}

// WatchConfig reloads the configuration whenever the loaded file changes and
// passes the new values to onChange. Only settings read after the change pick
// up new values; the running watcher keeps its tick and prober.
func WatchConfig(l logger.Logger, onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		var cfg Config
		if err := viper.Unmarshal(&cfg); err != nil {
			l.Error("Failed to reload configuration", "path", e.Name, "err", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			l.Error("Ignoring invalid configuration change", "path", e.Name, "err", err)
			return
		}

		mu.Lock()
		instance = &cfg
		mu.Unlock()

		l.Info("Configuration reloaded", "path", e.Name, "op", e.Op.String())
		if onChange != nil {
			onChange(&cfg)
		}
	})
	viper.WatchConfig()
}

// SaveConfig persists the current configuration to a specified path.
func SaveConfig(path string) error {
	if path == "" {
		path = filepath.Join(GetConfigDir(), constants.ConfigFileName)
	}

	// Create parent directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).
			WithMetadata("path", path)
	}

	mu.RLock()
	configYAML, err := yaml.Marshal(instance)
	mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, errors.ConfigMarshalFailed)
	}

	if err := os.WriteFile(path, configYAML, 0644); err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).
			WithMetadata("path", path)
	}

	// Update the tracked config path
	mu.Lock()
	configPath = path
	mu.Unlock()

	return nil
}

// GetLoadedConfigPath returns the path of the currently loaded configuration file.
func GetLoadedConfigPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return configPath
}

// GetConfig returns the current configuration instance.
func GetConfig() *Config {
	mu.RLock()
	cfg := instance
	mu.RUnlock()
	if cfg == nil {
		return LoadConfig("")
	}
	return cfg
}

// Validate checks values the watcher and enumerator cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if _, err := parseDuration(c.Watcher.TickInterval); err != nil {
		problems = append(problems, "watcher.tickInterval: "+err.Error())
	}
	if _, err := parseDuration(c.Watcher.ReadyTimeout); err != nil {
		problems = append(problems, "watcher.readyTimeout: "+err.Error())
	}
	if _, err := parseDuration(c.Enumeration.ProbeTimeout); err != nil {
		problems = append(problems, "enumeration.probeTimeout: "+err.Error())
	}
	switch c.Enumeration.Prober {
	case "", "blkid", "udevadm":
	default:
		problems = append(problems, "enumeration.prober: must be blkid or udevadm")
	}
	if c.Enumeration.DeviceRoot != "" && !filepath.IsAbs(c.Enumeration.DeviceRoot) {
		problems = append(problems, "enumeration.deviceRoot: must be an absolute path")
	}
	if _, err := filepath.Match(c.Enumeration.Pattern, ""); err != nil {
		problems = append(problems, "enumeration.pattern: "+err.Error())
	}
	if c.Events.BufferSize < 0 {
		problems = append(problems, "events.bufferSize: must not be negative")
	}
	switch c.Logs.Output {
	case "", "stdout", "file":
	default:
		problems = append(problems, "logs.output: must be stdout or file")
	}

	if len(problems) > 0 {
		return errors.New(errors.ConfigValidationFailed, strings.Join(problems, "; "))
	}
	return nil
}

// TickInterval returns the watcher tick period, or 0 for the default.
func (c *Config) TickInterval() time.Duration {
	d, _ := parseDuration(c.Watcher.TickInterval)
	return d
}

// ReadyTimeout returns the readiness check bound, or 0 for the default.
func (c *Config) ReadyTimeout() time.Duration {
	d, _ := parseDuration(c.Watcher.ReadyTimeout)
	return d
}

// ProbeTimeout returns the per-device probe timeout, or 0 for the default.
func (c *Config) ProbeTimeout() time.Duration {
	d, _ := parseDuration(c.Enumeration.ProbeTimeout)
	return d
}

// HealthInterval returns the health check interval, or 0 for the default.
func (c *Config) HealthInterval() time.Duration {
	d, _ := parseDuration(c.Health.Interval)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

func NewLoggerConfig(cfg *Config) logger.Config {
	if cfg == nil {
		return logger.Config{
			LogLevel:     "info",
			EnableSentry: false,
			SentryDSN:    "",
		}
	}

	return logger.Config{
		LogLevel:     cfg.Logger.LogLevel,
		EnableSentry: cfg.Logger.EnableSentry,
		SentryDSN:    cfg.Logger.SentryDSN,
	}
}
