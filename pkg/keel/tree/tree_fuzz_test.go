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

package tree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/keel-vcs/keel/internal/util"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

// FuzzBuildListRoundTrip derives a small file map from fuzz input and
// checks list(build(M)) == M.
func FuzzBuildListRoundTrip(f *testing.F) {
	f.Add("a.txt\nsrc/b.txt\nsrc/lib/c.txt")
	f.Add("one")
	f.Add("deep/er/most/f\ndeep/er/g\ndeep/h")

	f.Fuzz(func(t *testing.T, raw string) {
		files := make(types.FileSet)
		for i, line := range strings.Split(raw, "\n") {
			p := sanitizePath(line)
			if p == "" {
				continue
			}
			files[p] = util.HashObject([]byte(fmt.Sprintf("content-%d", i)))
		}

		s := memStore{}
		root, err := Build(s, files)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		got, err := List(s, root, "")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != len(files) {
			t.Fatalf("round trip %d entries, want %d", len(got), len(files))
		}
		for p, d := range files {
			if got[p] != d {
				t.Fatalf("round trip lost %q", p)
			}
		}
	})
}

// sanitizePath normalizes fuzz input into the path shape the codec is
// specified for: slash-separated, non-empty components, no control
// characters or spaces.
func sanitizePath(raw string) string {
	var parts []string
	for _, comp := range strings.Split(raw, "/") {
		var b strings.Builder
		for _, r := range comp {
			if r > ' ' && r != '/' && r < 0x7f {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	return strings.Join(parts, "/")
}
