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

package index

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/keel-vcs/keel/pkg/keel/types"
)

// The index persists the staging map as one "path<SP>digest\n" line
// per entry. Line parsing splits on the first space only, so paths may
// not contain spaces; ValidatePath enforces that before a path is
// ever staged.

// ValidatePath rejects paths the flat index format cannot represent.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if strings.ContainsAny(path, " \n") {
		return fmt.Errorf("path %q contains a space or newline, which the index format cannot represent", path)
	}
	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("path %q ends in a separator", path)
	}
	return nil
}

// Load populates the staging map from the index file at path.
// An absent file yields an empty map, not an error.
func Load(path string) (types.FileSet, error) {
	files := make(types.FileSet)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			continue
		}
		files[line[:sp]] = types.Digest(line[sp+1:])
	}
	return files, nil
}

// Save truncates and rewrites the index file from the staging map.
// Entries are written in lexicographic path order so a given map
// always serializes to the same bytes.
func Save(path string, files types.FileSet) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte(' ')
		b.WriteString(string(files[p]))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
