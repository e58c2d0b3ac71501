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
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFileName holds doublestar patterns, one per line, matched
// against slash-separated working-tree paths during Add. Blank lines
// and lines starting with '#' are skipped.
const IgnoreFileName = ".keelignore"

type ignoreRules struct {
	patterns []string
}

func (r *Repository) loadIgnore() (*ignoreRules, error) {
	data, err := os.ReadFile(filepath.Join(r.RootDir, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &ignoreRules{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", IgnoreFileName, err)
	}

	var rules ignoreRules
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules.patterns = append(rules.patterns, line)
	}
	return &rules, nil
}

// Match reports whether the slash-separated path matches any ignore
// pattern. A bare directory pattern like "vendor" also covers
// everything beneath it.
func (ig *ignoreRules) Match(path string) bool {
	for _, pat := range ig.patterns {
		if matchGlob(path, pat) || matchGlob(path, pat+"/**") {
			return true
		}
	}
	return false
}

func matchGlob(path, pattern string) bool {
	path = strings.ReplaceAll(path, "\\", "/")
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	matched, err := doublestar.PathMatch(pattern, path)
	if err != nil {
		return false
	}
	return matched
}
