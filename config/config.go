// config/config.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package config assembles the profiler's settings from built-in defaults,
// an optional .env file and VKPROF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mmp/vkprof/control"
	"github.com/mmp/vkprof/profile"
	"github.com/mmp/vkprof/sink"

	"github.com/joho/godotenv"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	DisplayRate     int    `json:"display_rate"`
	WindowSize      int    `json:"window_size"`
	TopN            int    `json:"top_n"`
	FIFOPath        string `json:"fifo_path"`
	ReportPath      string `json:"report_path"`
	ReportMaxSizeMB int    `json:"report_max_size_mb"`
	LogDir          string `json:"log_dir"`
	LogLevel        string `json:"log_level"`
	ArchivePath     string `json:"archive_path"`
	Tag             string `json:"tag"`
	Stdout          bool   `json:"stdout"`

	Options []profile.Option `json:"options"`
}

func Default() *Config {
	return &Config{
		DisplayRate:     profile.DefaultDisplayRate,
		WindowSize:      profile.DefaultWindowSize,
		TopN:            profile.DefaultTopN,
		FIFOPath:        control.DefaultFIFOPath,
		ReportPath:      sink.DefaultReportPath(),
		ReportMaxSizeMB: 16,
		LogLevel:        "info",
		Tag:             sink.DefaultTag,
		Stdout:          true,
		Options:         append([]profile.Option(nil), profile.DefaultOptions...),
	}
}

// Load returns the default configuration overridden by the first .env file
// found and then by the process environment.
func Load() (*Config, error) {
	for _, path := range envPaths() {
		if _, err := os.Stat(path); err == nil {
			// Variables already in the environment take precedence.
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			break
		}
	}

	c := Default()
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// envPaths returns the .env files to consider, in order of preference.
func envPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "vkprof", ".env"))
	}
	return paths
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	getInt := func(key string, v *int) {
		if s, ok := lookup(key); ok && s != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, s))
			} else {
				*v = n
			}
		}
	}
	getString := func(key string, v *string) {
		if s, ok := lookup(key); ok {
			*v = s
		}
	}

	getInt("VKPROF_DISPLAY_RATE", &c.DisplayRate)
	getInt("VKPROF_WINDOW_SIZE", &c.WindowSize)
	getInt("VKPROF_TOP_N", &c.TopN)
	getInt("VKPROF_REPORT_MAX_MB", &c.ReportMaxSizeMB)
	getString("VKPROF_FIFO", &c.FIFOPath)
	getString("VKPROF_REPORT_PATH", &c.ReportPath)
	getString("VKPROF_LOG_DIR", &c.LogDir)
	getString("VKPROF_LOG_LEVEL", &c.LogLevel)
	getString("VKPROF_ARCHIVE", &c.ArchivePath)
	getString("VKPROF_TAG", &c.Tag)

	if s, ok := lookup("VKPROF_STDOUT"); ok && s != "" {
		if b, err := strconv.ParseBool(s); err != nil {
			errs = append(errs, fmt.Errorf("VKPROF_STDOUT: %q is not a boolean", s))
		} else {
			c.Stdout = b
		}
	}
	if s, ok := lookup("VKPROF_OPTIONS"); ok {
		if opts, err := ParseOptions(s); err != nil {
			errs = append(errs, err)
		} else {
			c.Options = opts
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ParseOptions parses a comma-separated list of option names such as
// "fps,profile". An empty string enables nothing.
func ParseOptions(s string) ([]profile.Option, error) {
	opts := []profile.Option{}
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		opt, ok := profile.ParseOption(f)
		if !ok {
			return nil, fmt.Errorf("%s: unknown option", f)
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DisplayRate <= 0 {
		errs = append(errs, fmt.Errorf("display rate must be positive, got %d", c.DisplayRate))
	}
	if c.WindowSize <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %d", c.WindowSize))
	}
	if c.TopN < 0 {
		errs = append(errs, fmt.Errorf("top N must not be negative, got %d", c.TopN))
	}
	if c.ReportMaxSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("report file size must be positive, got %d", c.ReportMaxSizeMB))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ProfileSettings returns the profiler settings derived from c; the
// caller fills in the clock, sinks and control source.
func (c *Config) ProfileSettings() profile.Settings {
	return profile.Settings{
		DisplayRate: c.DisplayRate,
		WindowSize:  c.WindowSize,
		TopN:        c.TopN,
		Options:     append([]profile.Option{}, c.Options...),
	}
}
