// Copyright 2025 Keel Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// SPDX-License-Identifier: Apache-2.0

package objstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/keel-vcs/keel/pkg/keel/types"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is the content-addressed object store. Objects are immutable:
// a digest always names the same bytes, so overwriting with identical
// content is permitted and idempotent.
type Store interface {
	// Put writes content under its digest. The store does not verify
	// that the digest matches the content; the caller owns that
	// invariant.
	Put(d types.Digest, content []byte) error

	// Get retrieves content by digest. Returns types.ErrNotFound when
	// the object is absent.
	Get(d types.Digest) ([]byte, error)

	// Exists checks whether an object with the given digest is present.
	Exists(d types.Digest) bool

	// Close releases resources.
	Close() error
}

// Config contains configuration options for FileStore
type Config struct {
	// CacheSize is the maximum number of objects held in the LRU read
	// cache (default: 4096)
	CacheSize int

	// Logger is an optional structured logger (nil uses default stderr logging)
	Logger *slog.Logger
}

// Option is a functional option for configuring FileStore
type Option func(*Config)

// WithLogger sets a custom structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// WithCacheSize sets the LRU read-cache size
func WithCacheSize(size int) Option {
	return func(cfg *Config) {
		cfg.CacheSize = size
	}
}

func defaultConfig() *Config {
	return &Config{
		CacheSize: 4096,
		Logger:    nil,
	}
}

// FileStore keeps objects as loose files under root, sharded by the
// first two hex characters of the digest: root/<d[0:2]>/<d[2:]>.
// Bytes are stored raw, no framing or compression.
type FileStore struct {
	root   string
	cache  *lru.Cache[types.Digest, []byte]
	logger *slog.Logger
}

// New creates a FileStore rooted at the given objects directory,
// creating it if missing.
func New(root string, opts ...Option) (*FileStore, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}

	cache, err := lru.New[types.Digest, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create object cache: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	}

	return &FileStore{
		root:   root,
		cache:  cache,
		logger: logger,
	}, nil
}

// objectPath returns the sharded on-disk path for a digest.
func (s *FileStore) objectPath(d types.Digest) string {
	return filepath.Join(s.root, string(d[:2]), string(d[2:]))
}

// Put writes content under its digest using write-to-temp-then-rename
// so a crash never leaves a truncated object behind.
func (s *FileStore) Put(d types.Digest, content []byte) error {
	if !d.Valid() {
		return fmt.Errorf("put %q: %w", d, types.ErrMalformedObject)
	}

	path := s.objectPath(d)
	if _, err := os.Stat(path); err == nil {
		// Objects are immutable; an existing file already holds these bytes.
		return nil
	}

	shard := filepath.Dir(path)
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return fmt.Errorf("create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(shard, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write object %s: %w", d, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync object %s: %w", d, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close object %s: %w", d, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename object %s: %w", d, err)
	}

	cp := make([]byte, len(content))
	copy(cp, content)
	s.cache.Add(d, cp)
	return nil
}

// Get retrieves content by digest, consulting the LRU cache first.
// A copy is returned so callers cannot mutate cached bytes.
func (s *FileStore) Get(d types.Digest) ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("get %q: %w", d, types.ErrNotFound)
	}

	if content, ok := s.cache.Get(d); ok {
		cp := make([]byte, len(content))
		copy(cp, content)
		return cp, nil
	}

	content, err := os.ReadFile(s.objectPath(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("get %s: %w", d, types.ErrNotFound)
		}
		return nil, fmt.Errorf("read object %s: %w", d, err)
	}

	cp := make([]byte, len(content))
	copy(cp, content)
	s.cache.Add(d, cp)
	return content, nil
}

// Exists checks whether an object is present, cache first.
func (s *FileStore) Exists(d types.Digest) bool {
	if !d.Valid() {
		return false
	}
	if _, ok := s.cache.Get(d); ok {
		return true
	}
	_, err := os.Stat(s.objectPath(d))
	return err == nil
}

// Close purges the read cache. The store holds no open files between
// operations, so there is nothing else to release.
func (s *FileStore) Close() error {
	s.cache.Purge()
	return nil
}
