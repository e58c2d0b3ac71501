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

package refs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/keel-vcs/keel/pkg/keel/types"
)

// Manager reads and writes branch references. A branch is a file
// refs/heads/<name> under the metadata directory holding one 40-hex
// commit digest; HEAD is a file naming the current branch.
type Manager struct {
	dir string // metadata directory
}

func NewManager(metaDir string) *Manager {
	return &Manager{dir: metaDir}
}

func (m *Manager) branchPath(name string) string {
	return filepath.Join(m.dir, "refs", "heads", name)
}

// Head returns the name of the current branch.
func (m *Manager) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetHead repoints HEAD at the named branch.
func (m *Manager) SetHead(branch string) error {
	if err := os.WriteFile(filepath.Join(m.dir, "HEAD"), []byte(branch+"\n"), 0o644); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}
	return nil
}

// Exists reports whether the named branch has a reference file.
func (m *Manager) Exists(branch string) bool {
	_, err := os.Stat(m.branchPath(branch))
	return err == nil
}

// Resolve returns the commit digest the named branch points at.
// A branch without a reference file yields types.ErrUnknownBranch.
func (m *Manager) Resolve(branch string) (types.Digest, error) {
	data, err := os.ReadFile(m.branchPath(branch))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("branch %q: %w", branch, types.ErrUnknownBranch)
		}
		return "", fmt.Errorf("read branch %q: %w", branch, err)
	}
	return types.Digest(strings.TrimSpace(string(data))), nil
}

// Set points the named branch at the given commit digest, creating
// the branch if needed.
func (m *Manager) Set(branch string, d types.Digest) error {
	path := m.branchPath(branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create refs directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(string(d)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write branch %q: %w", branch, err)
	}
	return nil
}

// List returns all branch names in lexicographic order.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.dir, "refs", "heads"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branches: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
