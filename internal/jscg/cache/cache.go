// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache implements the optional snapshot cache: a gzip-compressed
// JSON extract.Result keyed by a SHA-256 digest of the sorted file set's
// contents plus the analyzer's strategy and version, stored in BadgerDB,
// the same persistence shape graph.SnapshotManager uses for Trace's graph
// snapshots.
package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/jscg/internal/jscg/extract"
)

// keyPrefix namespaces every key this package writes into a shared
// BadgerDB instance.
const keyPrefix = "jscg:snap:"

// schemaVersion is bumped whenever Result's shape or the edge-construction
// rules change in a way that would make an old cache entry misleading.
const schemaVersion = "v1"

// Cache wraps a BadgerDB instance opened by the caller.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (creating if absent) a BadgerDB instance at dir.
func Open(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger at %s: %w", dir, err)
	}
	return &Cache{db: db, logger: logger}, nil
}

// Close releases the underlying BadgerDB handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// FileDigest is one (path, content) pair contributing to a cache Key.
type FileDigest struct {
	Path    string
	Content []byte
}

// Key computes the cache key for a set of files analyzed under strategy.
// Files are sorted by path first, so the key is independent of discovery
// order.
func Key(files []FileDigest, strategy, analyzerType string) string {
	sorted := append([]FileDigest(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	for _, f := range sorted {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write(f.Content)
		h.Write([]byte{0})
	}
	h.Write([]byte(strategy))
	h.Write([]byte(analyzerType))
	h.Write([]byte(schemaVersion))
	return hex.EncodeToString(h.Sum(nil))
}

// Load returns the cached Result for key, and whether it was present.
func (c *Cache) Load(ctx context.Context, key string) (extract.Result, bool, error) {
	if err := ctx.Err(); err != nil {
		return extract.Result{}, false, err
	}
	var compressed []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			compressed = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return extract.Result{}, false, nil
	}
	if err != nil {
		return extract.Result{}, false, fmt.Errorf("cache: load %s: %w", key, err)
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return extract.Result{}, false, fmt.Errorf("cache: decompress %s: %w", key, err)
	}
	defer gr.Close()
	raw, err := io.ReadAll(gr)
	if err != nil {
		return extract.Result{}, false, fmt.Errorf("cache: decompress %s: %w", key, err)
	}

	var result extract.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return extract.Result{}, false, fmt.Errorf("cache: unmarshal %s: %w", key, err)
	}
	c.logger.Debug("cache hit", slog.String("key", key))
	return result, true, nil
}

// Save persists result under key, gzip-compressing the JSON payload.
func (c *Cache) Save(ctx context.Context, key string, result extract.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}

	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("cache: gzip writer: %w", err)
	}
	if _, err := gw.Write(raw); err != nil {
		return fmt.Errorf("cache: compress %s: %w", key, err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("cache: compress %s: %w", key, err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("cache: save %s: %w", key, err)
	}
	c.logger.Debug("cache saved", slog.String("key", key), slog.Int("compressed_bytes", buf.Len()))
	return nil
}
