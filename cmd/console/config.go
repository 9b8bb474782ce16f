package main

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"

	configtypes "github.com/veles-markets/console/internal/config"
)

type config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	Backend  struct {
		APIURL string `yaml:"api_url"`
		WSURL  string `yaml:"ws_url"`
	} `yaml:"backend"`
	StateFile         string               `yaml:"state_file"`
	PollInterval      configtypes.Duration `yaml:"poll_interval"`
	HealthInterval    configtypes.Duration `yaml:"health_interval"`
	ReconnectInterval configtypes.Duration `yaml:"reconnect_interval"`
}

func readConfig(configPath *string) (*config, error) {
	rawConfig, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't read file %s: %w", *configPath, err)
	}

	cfg := &config{}
	if err = yaml.Unmarshal(rawConfig, cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	err = validateConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't validate config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides lets deployment environments point the console at a
// different backend without editing the config file.
func applyEnvOverrides(cfg *config) {
	if v := os.Getenv("CONSOLE_API_URL"); v != "" {
		cfg.Backend.APIURL = v
	}
	if v := os.Getenv("CONSOLE_WS_URL"); v != "" {
		cfg.Backend.WSURL = v
	}
	if v := os.Getenv("CONSOLE_STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
}

func validateConfig(cfg *config) error {
	if cfg.Backend.APIURL == "" {
		return fmt.Errorf("backend.api_url is required")
	}
	if cfg.Backend.WSURL == "" {
		return fmt.Errorf("backend.ws_url is required")
	}
	if cfg.StateFile == "" {
		return fmt.Errorf("state_file is required")
	}
	if cfg.PollInterval.Duration() < 0 {
		return fmt.Errorf("poll_interval must not be negative")
	}
	if cfg.HealthInterval.Duration() < 0 {
		return fmt.Errorf("health_interval must not be negative")
	}
	if cfg.ReconnectInterval.Duration() < 0 {
		return fmt.Errorf("reconnect_interval must not be negative")
	}

	return nil
}
