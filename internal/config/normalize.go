package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := loadEnvFile(c.Paths.EnvFile); err != nil {
		return err
	}
	if err := c.applyEnvOverrides(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeAnalysis()
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = defaultEventBuffer
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SessionsDir) == "" {
		c.Paths.SessionsDir = defaultSessionsDir
	}
	if c.Paths.SessionsDir, err = expandPath(c.Paths.SessionsDir); err != nil {
		return fmt.Errorf("paths.sessions_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.EnvFile, err = expandPath(strings.TrimSpace(c.Paths.EnvFile)); err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if value, ok := os.LookupEnv("ISCHOOL_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = strings.TrimSpace(value)
	}
	for _, override := range []struct {
		env    string
		target *int
	}{
		{"ISCHOOL_ACQUISITION_WORKERS", &c.Acquisition.Workers},
		{"ISCHOOL_ANALYSIS_WORKERS", &c.Analysis.Workers},
	} {
		value, ok := os.LookupEnv(override.env)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", override.env, err)
		}
		*override.target = n
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	c.Acquisition.FolderHelper = trimCommand(c.Acquisition.FolderHelper)
	if len(c.Acquisition.FolderHelper) == 0 {
		c.Acquisition.FolderHelper = append([]string(nil), defaultFolderHelper...)
	}
	if c.Acquisition.SuspiciousSizeBytes <= 0 {
		c.Acquisition.SuspiciousSizeBytes = defaultSuspiciousSizeBytes
	}
	if c.Acquisition.ProgressStep <= 0 {
		c.Acquisition.ProgressStep = defaultProgressStep
	}
	c.Acquisition.UserAgent = strings.TrimSpace(c.Acquisition.UserAgent)
	if c.Acquisition.UserAgent == "" {
		c.Acquisition.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.Command = trimCommand(c.Analysis.Command)
	if len(c.Analysis.Command) == 0 {
		c.Analysis.Command = append([]string(nil), defaultAnalysisCommand...)
	}
	c.Analysis.ReportSuffix = strings.TrimSpace(c.Analysis.ReportSuffix)
	if c.Analysis.ReportSuffix == "" {
		c.Analysis.ReportSuffix = defaultReportSuffix
	}
	if c.Analysis.QuotaMaxRetries < 0 {
		c.Analysis.QuotaMaxRetries = 0
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func trimCommand(argv []string) []string {
	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
