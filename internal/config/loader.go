// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/matchengine/config.yaml",
	"/etc/matchengine/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "MATCH_CONFIG_PATH"

// envPrefix namespaces the service's environment variables:
// MATCH_SERVER_PORT -> server.port, MATCH_CACHE_BACKEND -> cache.backend.
const envPrefix = "MATCH_"

// Load builds the configuration from layered sources: built-in defaults,
// then an optional YAML file, then MATCH_-prefixed environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := coerceSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps MATCH_MATCH_WEIGHTS_NICHE_OVERLAP style variable names
// to dotted koanf paths. Single underscores separate path segments; field
// names containing underscores (niche_overlap, max_pool_size) resolve
// because koanf matches the longest known key per segment.
func envTransform(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)

	// Two-segment split keeps multi-word leaf names intact:
	// SERVER_RATE_LIMIT_REQS -> server.rate_limit_reqs
	parts := strings.SplitN(key, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	head, rest := parts[0], parts[1]

	// Nested sections get one more level of splitting.
	switch head {
	case "match", "events":
		sub := strings.SplitN(rest, "_", 2)
		if len(sub) == 2 && isSection(head, sub[0]) {
			return head + "." + sub[0] + "." + sub[1]
		}
	}
	return head + "." + rest
}

func isSection(head, name string) bool {
	switch head {
	case "match":
		switch name {
		case "weights", "scoring", "candidates", "limits", "cache":
			return true
		}
	case "events":
		return name == "nats"
	}
	return false
}

// sliceConfigPaths lists fields parsed as comma-separated when they arrive
// as env var strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func coerceSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}
