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

package repo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/keel-vcs/keel/internal/metrics"
	"github.com/keel-vcs/keel/pkg/keel/commit"
	"github.com/keel-vcs/keel/pkg/keel/index"
	"github.com/keel-vcs/keel/pkg/keel/l1cache"
	"github.com/keel-vcs/keel/pkg/keel/objstore"
	"github.com/keel-vcs/keel/pkg/keel/refs"
	"github.com/keel-vcs/keel/pkg/keel/tree"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

const (
	// MetaDirName is the repository metadata directory at the
	// working-tree root. The reconciliation step never traverses into
	// it.
	MetaDirName = ".keel"

	// DefaultBranch is the branch HEAD names after Init.
	DefaultBranch = "main"

	indexFileName = "index"
)

// Repository is the handle every operation threads through: it owns
// the staging map and the current-branch name for the span of one
// command, loaded from disk on Open and persisted before the command
// exits. Concurrent commands on the same repository need external
// mutual exclusion; the handle itself is not re-entrant.
type Repository struct {
	RootDir string // working tree root
	MetaDir string // RootDir/.keel

	store  objstore.Store
	l1     l1cache.Cache
	refsMgr *refs.Manager
	walker *commit.Walker

	staging types.FileSet // path -> blob digest, the next commit's content
	branch  string        // current branch name, from HEAD

	logger *slog.Logger
	rm     *metrics.RepoMetrics
}

// Config carries optional dependencies for Open and Init.
type Config struct {
	// Logger is an optional structured logger (nil uses a stderr text
	// handler at warn level).
	Logger *slog.Logger

	// CacheBytes bounds the in-memory object cache; ≤0 disables it.
	CacheBytes int64
}

// Option is a functional option for configuring a Repository.
type Option func(*Config)

// WithLogger sets a custom structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// WithCacheBytes sets the in-memory object cache capacity.
func WithCacheBytes(n int64) Option {
	return func(cfg *Config) {
		cfg.CacheBytes = n
	}
}

func defaultConfig() *Config {
	return &Config{
		CacheBytes: 8 << 20,
	}
}

// Init scaffolds a new repository at root: the metadata directory,
// the objects directory, refs/heads, and HEAD naming the default
// branch. It fails if root already holds a repository.
func Init(root string, opts ...Option) (*Repository, error) {
	metaDir := filepath.Join(root, MetaDirName)
	if _, err := os.Stat(metaDir); err == nil {
		return nil, fmt.Errorf("%s already exists", metaDir)
	}

	if err := os.MkdirAll(filepath.Join(metaDir, "refs", "heads"), 0o755); err != nil {
		return nil, fmt.Errorf("scaffold repository: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(metaDir, "objects"), 0o755); err != nil {
		return nil, fmt.Errorf("scaffold repository: %w", err)
	}

	rm := refs.NewManager(metaDir)
	if err := rm.SetHead(DefaultBranch); err != nil {
		return nil, err
	}

	return Open(root, opts...)
}

// Open loads the repository rooted at root: the staging map from the
// index file (absent file means empty) and the current branch from
// HEAD.
func Open(root string, opts ...Option) (*Repository, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	}

	metaDir := filepath.Join(root, MetaDirName)
	if _, err := os.Stat(metaDir); err != nil {
		return nil, fmt.Errorf("not a keel repository: %s: %w", root, err)
	}

	store, err := objstore.New(filepath.Join(metaDir, "objects"), objstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	l1, err := l1cache.New(l1cache.Config{
		CapacityBytes:        cfg.CacheBytes,
		CompressionThreshold: 256,
	})
	if err != nil {
		return nil, err
	}

	r := &Repository{
		RootDir: root,
		MetaDir: metaDir,
		store:   store,
		l1:      l1,
		refsMgr: refs.NewManager(metaDir),
		logger:  logger,
		rm:      metrics.NewRepoMetrics(),
	}

	r.walker, err = commit.NewWalker(objectReader{r})
	if err != nil {
		return nil, err
	}

	r.staging, err = index.Load(r.indexPath())
	if err != nil {
		return nil, err
	}

	r.branch, err = r.refsMgr.Head()
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Close releases the underlying object store.
func (r *Repository) Close() error {
	return r.store.Close()
}

func (r *Repository) indexPath() string {
	return filepath.Join(r.MetaDir, indexFileName)
}

// CurrentBranch returns the branch HEAD names.
func (r *Repository) CurrentBranch() string {
	return r.branch
}

// Head returns the current branch's commit digest, or "" when the
// branch has no commits yet.
func (r *Repository) Head() types.Digest {
	d, err := r.refsMgr.Resolve(r.branch)
	if err != nil {
		return ""
	}
	return d
}

// Staging returns the live staging map. Callers treat it as read-only;
// Add and the reconciliation step are the only mutators.
func (r *Repository) Staging() types.FileSet {
	return r.staging
}

// objectReader adapts the repository's cached read path to the
// Getter interface of the codecs: cache first, store on a miss,
// promote what the store returns.
type objectReader struct {
	r *Repository
}

func (o objectReader) Get(d types.Digest) ([]byte, error) {
	if data, ok := o.r.l1.Get(d); ok {
		return data, nil
	}
	data, err := o.r.store.Get(d)
	if err != nil {
		return nil, err
	}
	o.r.l1.Put(d, data)
	return data, nil
}

// reader returns the cached object read path.
func (r *Repository) reader() commit.Getter {
	return objectReader{r}
}

// commitFiles flattens the tree of the commit named by d into a flat
// path→digest map. The empty digest flattens to an empty map.
func (r *Repository) commitFiles(d types.Digest) (types.FileSet, error) {
	if d == "" {
		return types.FileSet{}, nil
	}
	c, err := r.walker.Parse(d)
	if err != nil {
		return nil, err
	}
	return tree.List(objectReader{r}, c.Tree, "")
}

// Stats bundles cache statistics and operation metrics for the CLI.
type Stats struct {
	Cache  l1cache.CacheStats
	Engine metrics.Snapshot
}

func (r *Repository) Stats() Stats {
	return Stats{
		Cache:  r.l1.Stats(),
		Engine: r.rm.Snapshot(),
	}
}
