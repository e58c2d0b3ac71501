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

package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveRoot locates the working-tree root for a command run in cwd:
// the KEEL_ROOT environment variable wins, otherwise the nearest
// ancestor directory (cwd included) containing a .keel directory.
func ResolveRoot(cwd string) (string, error) {
	if p := os.Getenv("KEEL_ROOT"); p != "" {
		return p, nil
	}

	dir := cwd
	for {
		if fi, err := os.Stat(filepath.Join(dir, ".keel")); err == nil && fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a keel repository (or any parent up to filesystem root): %s", cwd)
		}
		dir = parent
	}
}
