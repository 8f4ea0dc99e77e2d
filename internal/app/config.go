package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/startgrid/internal/monitor"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // .hcl, .yaml and .yml descriptors

	// ProcessName identifies this process to graphs declared for a
	// specific process.
	ProcessName string
	// PrimaryProcess selects graphs declared for the primary scope.
	PrimaryProcess bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// WorkerCount bounds the worker pool. 0 means one worker per CPU.
	WorkerCount int
	// WarnThreshold is the node duration that raises an alert.
	WarnThreshold time.Duration
	// WaitTimeout bounds how long Run waits for the startup graph. 0 waits
	// until it completes.
	WaitTimeout time.Duration
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("WorkerCount must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.WarnThreshold < 0 {
		return nil, fmt.Errorf("WarnThreshold must not be negative, got %s", cfg.WarnThreshold)
	}
	if cfg.WarnThreshold == 0 {
		cfg.WarnThreshold = monitor.DefaultWarnThreshold
	}
	if cfg.WaitTimeout < 0 {
		return nil, fmt.Errorf("WaitTimeout must not be negative, got %s", cfg.WaitTimeout)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort must be between 0 and 65535, got %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
