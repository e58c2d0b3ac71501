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
	"strings"

	"github.com/keel-vcs/keel/internal/util"
	"github.com/keel-vcs/keel/pkg/keel/index"
)

// Add stages the named files or directories: every regular file is
// hashed, stored as a blob, and recorded in the staging map under its
// slash-separated path relative to the working-tree root. Directories
// recurse. Paths matching .keelignore patterns and anything under the
// metadata directory are skipped. Naming a staged path that no longer
// exists on disk stages its deletion.
func (r *Repository) Add(paths []string) error {
	ign, err := r.loadIgnore()
	if err != nil {
		return err
	}

	for _, p := range paths {
		rel, err := r.relPath(p)
		if err != nil {
			return err
		}

		abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				if _, staged := r.staging[rel]; staged {
					delete(r.staging, rel)
					continue
				}
				return fmt.Errorf("pathspec %q did not match any files", p)
			}
			return fmt.Errorf("stat %q: %w", p, err)
		}

		if info.IsDir() {
			if err := r.addDir(abs, ign); err != nil {
				return err
			}
			continue
		}
		if rel == MetaDirName || strings.HasPrefix(rel, MetaDirName+"/") || ign.Match(rel) {
			continue
		}
		if err := r.addFile(rel, abs); err != nil {
			return err
		}
	}

	return index.Save(r.indexPath(), r.staging)
}

func (r *Repository) addDir(absDir string, ign *ignoreRules) error {
	return filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
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
		if ign.Match(rel) {
			return nil
		}
		return r.addFile(rel, path)
	})
}

func (r *Repository) addFile(rel, abs string) error {
	if err := index.ValidatePath(rel); err != nil {
		return err
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %q: %w", rel, err)
	}

	d := util.HashObject(content)
	if err := r.store.Put(d, content); err != nil {
		return err
	}
	r.staging[rel] = d
	r.rm.AddNewObjects(1)
	r.rm.AddNewBytes(uint64(len(content)))
	return nil
}

// relPath normalizes a caller-supplied path to slash form relative to
// the working-tree root, rejecting anything that escapes it.
func (r *Repository) relPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.RootDir, p)
	}
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return "", fmt.Errorf("path %q is outside the working tree", p)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || len(rel) > 2 && rel[:3] == "../" {
		return "", fmt.Errorf("path %q is outside the working tree", p)
	}
	return rel, nil
}
