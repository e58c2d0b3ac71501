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
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/keel-vcs/keel/internal/util"
	"github.com/keel-vcs/keel/pkg/keel/index"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

// reconcile mutates the working directory to match the target file
// set, then replaces the staging map with it.
//
// Clean first: every regular file not in the target is removed, then
// emptied directories, deepest first. Per-file failures are logged as
// warnings and never abort the pass, so a single locked file cannot
// leave the tree half-reconciled. The metadata directory is never
// traversed into. Restore last: every target path is rewritten from
// its blob.
func (r *Repository) reconcile(target types.FileSet) error {
	var dirs []string

	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			r.logger.Warn("reconcile: walk failed", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			if d.Name() == MetaDirName {
				return fs.SkipDir
			}
			if path != r.RootDir {
				dirs = append(dirs, path)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if _, keep := target[rel]; !keep {
			if err := os.Remove(path); err != nil {
				r.logger.Warn("reconcile: remove failed", "path", rel, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clean working tree: %w", err)
	}

	// Deepest directories first, so children empty out before parents
	// are tried. Removal of a non-empty directory simply fails and is
	// ignored.
	sort.Slice(dirs, func(i, j int) bool {
		return len(dirs[i]) > len(dirs[j])
	})
	for _, dir := range dirs {
		_ = os.Remove(dir)
	}

	for path, d := range target {
		content, err := objectReader{r}.Get(d)
		if err != nil {
			return fmt.Errorf("restore %q: %w", path, err)
		}
		abs := filepath.Join(r.RootDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			r.logger.Warn("reconcile: mkdir failed", "path", path, "error", err)
			continue
		}
		if err := os.WriteFile(abs, content, 0o644); err != nil {
			r.logger.Warn("reconcile: write failed", "path", path, "error", err)
		}
	}

	r.staging = target.Clone()
	return index.Save(r.indexPath(), r.staging)
}

// FileState classifies one path in the status report.
type FileState int

const (
	StateModified FileState = iota
	StateDeleted
	StateUntracked
)

func (s FileState) String() string {
	switch s {
	case StateModified:
		return "modified"
	case StateDeleted:
		return "deleted"
	case StateUntracked:
		return "untracked"
	default:
		return "unknown"
	}
}

// StatusEntry reports one path whose working-tree state disagrees
// with the staging map.
type StatusEntry struct {
	Path  string
	State FileState
}

// Status compares the staging map against the working tree. Staged
// paths whose on-disk content hashes differently are modified; staged
// paths absent on disk are deleted; on-disk files that are neither
// staged nor ignored are untracked. Entries are sorted by path.
func (r *Repository) Status() ([]StatusEntry, error) {
	ign, err := r.loadIgnore()
	if err != nil {
		return nil, err
	}

	var entries []StatusEntry

	for path, staged := range r.staging {
		abs := filepath.Join(r.RootDir, filepath.FromSlash(path))
		content, err := os.ReadFile(abs)
		if err != nil {
			if os.IsNotExist(err) {
				entries = append(entries, StatusEntry{Path: path, State: StateDeleted})
				continue
			}
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		if util.HashObject(content) != staged {
			entries = append(entries, StatusEntry{Path: path, State: StateModified})
		}
	}

	err = filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == MetaDirName {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if _, staged := r.staging[rel]; staged {
			return nil
		}
		if rel == IgnoreFileName || ign.Match(rel) {
			return nil
		}
		entries = append(entries, StatusEntry{Path: rel, State: StateUntracked})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk working tree: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}
