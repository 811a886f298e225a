package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Acquisition.Workers < 1 || c.Acquisition.Workers > maxWorkers {
		return fmt.Errorf("acquisition.workers must be between 1 and %d", maxWorkers)
	}
	if c.Analysis.Workers < 1 || c.Analysis.Workers > maxWorkers {
		return fmt.Errorf("analysis.workers must be between 1 and %d", maxWorkers)
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.TimeoutSeconds <= 0 {
		return errors.New("analysis.timeout_seconds must be positive")
	}
	if c.Analysis.QuotaExitCode < 0 || c.Analysis.QuotaExitCode > 255 {
		return errors.New("analysis.quota_exit_code must be between 0 and 255")
	}
	if c.Analysis.QuotaExitCode == 0 {
		return errors.New("analysis.quota_exit_code cannot be 0 (reserved for success)")
	}
	if c.Analysis.QuotaBackoffMinutes < 0 {
		return errors.New("analysis.quota_backoff_minutes must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
