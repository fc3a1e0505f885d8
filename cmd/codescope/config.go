// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the serve command's configuration. Every field has a
// working default so the binary runs with no config file at all.
type Config struct {
	Server struct {
		// Port the HTTP and websocket server listens on.
		Port string `yaml:"port"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	Tracing struct {
		// Endpoint of the OTLP gRPC collector. Empty disables
		// tracing entirely.
		Endpoint string `yaml:"endpoint"`
	} `yaml:"tracing"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() Config {
	var cfg Config
	cfg.Server.Port = "8000"
	cfg.Logging.Level = "info"
	cfg.Logging.JSON = true
	return cfg
}

// loadConfig reads the YAML file at path, if any, then applies
// environment overrides. Env vars win over the file so containers can
// tweak a baked-in config.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if port := os.Getenv("CODESCOPE_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if level := os.Getenv("CODESCOPE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Endpoint = endpoint
	}
	return cfg, nil
}
