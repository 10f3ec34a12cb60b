package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML tuning file. Connection and credential settings
// come from the environment; this file only carries knobs.
type Config struct {
	Scheduler struct {
		BatchSize int `yaml:"batch_size"`
	} `yaml:"scheduler"`
	Outbox struct {
		PollIntervalMS int `yaml:"poll_interval_ms"`
		BatchSize      int `yaml:"batch_size"`
	} `yaml:"outbox"`
	Gateway struct {
		PingIntervalSec int `yaml:"ping_interval_sec"`
		MaxMessageSize  int `yaml:"max_message_size"`
	} `yaml:"gateway"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

func (c *Config) schedulerBatchSize() int32 {
	if c.Scheduler.BatchSize > 0 {
		return int32(c.Scheduler.BatchSize)
	}
	return 100
}

func (c *Config) outboxPollInterval() time.Duration {
	if c.Outbox.PollIntervalMS > 0 {
		return time.Duration(c.Outbox.PollIntervalMS) * time.Millisecond
	}
	return time.Second
}
