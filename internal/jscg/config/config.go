// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads jscg's project-level configuration file and layers
// CLI flag overrides on top of it, the same zero-config-friendly pattern
// the rest of the Aleutian stack uses for its own *.config.yaml files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project-relative config file name jscg looks for.
const FileName = "jscg.config.yaml"

// FileConfig holds user-provided overrides for file discovery and
// analysis behavior, loaded from <projectRoot>/jscg.config.yaml. All
// fields are optional; a missing file is not an error.
type FileConfig struct {
	// Include lists "+pattern" file-discovery regexes (in addition to the
	// built-in .js/.mjs/.cjs/.jsx/.ts/.tsx/.vue set).
	Include []string `yaml:"include"`
	// Exclude lists "-pattern" file-discovery regexes (e.g. vendor/,
	// node_modules/, *.min.js).
	Exclude []string `yaml:"exclude"`
	// Strategy is the default inter-procedural propagation strategy:
	// "none", "oneshot" (default), or "demand".
	Strategy string `yaml:"strategy"`
	// MaxFileSize overrides the parser's per-file byte ceiling.
	MaxFileSize int `yaml:"max_file_size"`
	// CacheDir, if set, enables the BadgerDB snapshot cache at this path.
	CacheDir string `yaml:"cache_dir"`
}

// Load reads jscg.config.yaml from projectRoot. A missing file yields a
// zero-value FileConfig and no error; an existing-but-invalid file is an
// error.
func Load(projectRoot string) (FileConfig, error) {
	if projectRoot == "" {
		return FileConfig{}, nil
	}
	path := filepath.Join(projectRoot, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("reading %s: %w", FileName, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return fc, nil
}

// Config is the fully-resolved, layered configuration a single analysis
// run uses: FileConfig's values, with any CLI-flag override applied on
// top (flags always win when explicitly set).
type Config struct {
	Include     []string
	Exclude     []string
	Strategy    string
	MaxFileSize int
	CacheDir    string
}

// Option is a functional option used by Resolve's caller (the cmd/jscg
// front end) to apply CLI-flag overrides on top of the loaded file
// config.
type Option func(*Config)

// WithStrategy overrides the strategy, if s is non-empty.
func WithStrategy(s string) Option {
	return func(c *Config) {
		if s != "" {
			c.Strategy = s
		}
	}
}

// WithMaxFileSize overrides MaxFileSize, if n is positive.
func WithMaxFileSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxFileSize = n
		}
	}
}

// WithCacheDir overrides CacheDir, if dir is non-empty.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.CacheDir = dir
		}
	}
}

// WithExtraExclude appends additional exclude patterns on top of the file
// config's (e.g. the "-pattern" values of the repeatable -filter CLI flag).
func WithExtraExclude(patterns ...string) Option {
	return func(c *Config) {
		c.Exclude = append(c.Exclude, patterns...)
	}
}

// WithExtraInclude appends additional include patterns on top of the file
// config's (e.g. the "+pattern" values of the repeatable -filter CLI flag).
func WithExtraInclude(patterns ...string) Option {
	return func(c *Config) {
		c.Include = append(c.Include, patterns...)
	}
}

// Resolve builds the final Config from fc, applying opts in order.
func Resolve(fc FileConfig, opts ...Option) Config {
	c := Config{
		Include:     append([]string(nil), fc.Include...),
		Exclude:     append([]string(nil), fc.Exclude...),
		Strategy:    fc.Strategy,
		MaxFileSize: fc.MaxFileSize,
		CacheDir:    fc.CacheDir,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
