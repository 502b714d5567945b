// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	fc, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc != (FileConfig{}) {
		t.Errorf("expected a zero-value FileConfig, got %+v", fc)
	}
}

func TestLoadEmptyRootIsNotAnError(t *testing.T) {
	fc, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc != (FileConfig{}) {
		t.Errorf("expected a zero-value FileConfig, got %+v", fc)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	body := `
include:
  - "+src/.*"
exclude:
  - "-vendor/"
strategy: demand
max_file_size: 500000
cache_dir: .jscg-cache
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	fc, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc.Strategy != "demand" {
		t.Errorf("Strategy = %q, want demand", fc.Strategy)
	}
	if fc.MaxFileSize != 500000 {
		t.Errorf("MaxFileSize = %d, want 500000", fc.MaxFileSize)
	}
	if fc.CacheDir != ".jscg-cache" {
		t.Errorf("CacheDir = %q, want .jscg-cache", fc.CacheDir)
	}
	if len(fc.Include) != 1 || fc.Include[0] != "+src/.*" {
		t.Errorf("Include = %v, want [+src/.*]", fc.Include)
	}
	if len(fc.Exclude) != 1 || fc.Exclude[0] != "-vendor/" {
		t.Errorf("Exclude = %v, want [-vendor/]", fc.Exclude)
	}
}

func TestLoadInvalidYAMLIsAnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("strategy: [this is not valid"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected an error for invalid YAML")
	}
}

func TestResolveFlagsOverrideFileConfig(t *testing.T) {
	fc := FileConfig{Strategy: "none", MaxFileSize: 100, CacheDir: "from-file"}
	c := Resolve(fc, WithStrategy("demand"), WithMaxFileSize(200), WithCacheDir("from-flag"))
	if c.Strategy != "demand" {
		t.Errorf("Strategy = %q, want demand", c.Strategy)
	}
	if c.MaxFileSize != 200 {
		t.Errorf("MaxFileSize = %d, want 200", c.MaxFileSize)
	}
	if c.CacheDir != "from-flag" {
		t.Errorf("CacheDir = %q, want from-flag", c.CacheDir)
	}
}

func TestResolveEmptyOrZeroOverridesAreIgnored(t *testing.T) {
	fc := FileConfig{Strategy: "none", MaxFileSize: 100, CacheDir: "from-file"}
	c := Resolve(fc, WithStrategy(""), WithMaxFileSize(0), WithCacheDir(""))
	if c.Strategy != "none" {
		t.Errorf("Strategy = %q, want none (unchanged)", c.Strategy)
	}
	if c.MaxFileSize != 100 {
		t.Errorf("MaxFileSize = %d, want 100 (unchanged)", c.MaxFileSize)
	}
	if c.CacheDir != "from-file" {
		t.Errorf("CacheDir = %q, want from-file (unchanged)", c.CacheDir)
	}
}

func TestResolveExtraIncludeExcludeAppend(t *testing.T) {
	fc := FileConfig{Include: []string{"+a"}, Exclude: []string{"-b"}}
	c := Resolve(fc, WithExtraInclude("+c"), WithExtraExclude("-d"))
	if len(c.Include) != 2 || c.Include[0] != "+a" || c.Include[1] != "+c" {
		t.Errorf("Include = %v, want [+a +c]", c.Include)
	}
	if len(c.Exclude) != 2 || c.Exclude[0] != "-b" || c.Exclude[1] != "-d" {
		t.Errorf("Exclude = %v, want [-b -d]", c.Exclude)
	}
}

func TestResolveDoesNotMutateFileConfigSlices(t *testing.T) {
	fc := FileConfig{Include: []string{"+a"}}
	_ = Resolve(fc, WithExtraInclude("+b"))
	if len(fc.Include) != 1 {
		t.Errorf("FileConfig.Include was mutated: %v", fc.Include)
	}
}
