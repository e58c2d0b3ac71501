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

package merge

import (
	"sort"

	"github.com/keel-vcs/keel/pkg/keel/types"
)

// Resolve performs a three-way merge of the ancestor, current and
// incoming file sets. For every path in the union the per-path digests
// decide the outcome:
//
//   - both sides agree (current == incoming): keep that state, be it a
//     shared content, a converged change, or a deletion on both sides
//   - only the incoming side diverged from the ancestor: take the
//     incoming digest, or delete when incoming removed the path
//   - only the current side diverged: keep the current digest, or stay
//     deleted when current removed the path
//   - both sides diverged differently: conflict; the current state is
//     kept as a fallback and the path reported
//
// The returned conflict list is sorted. An empty list means the merged
// set is final; otherwise the caller must not create a merge commit.
func Resolve(ancestor, current, incoming types.FileSet) (types.FileSet, []string) {
	union := make(map[string]struct{}, len(ancestor)+len(current)+len(incoming))
	for p := range ancestor {
		union[p] = struct{}{}
	}
	for p := range current {
		union[p] = struct{}{}
	}
	for p := range incoming {
		union[p] = struct{}{}
	}

	merged := make(types.FileSet, len(union))
	var conflicts []string

	keep := func(p string, d types.Digest) {
		if d != "" {
			merged[p] = d
		}
	}

	for p := range union {
		a := ancestor[p]
		c := current[p]
		i := incoming[p]

		switch {
		case c == i:
			keep(p, c)
		case a == c:
			keep(p, i)
		case a == i:
			keep(p, c)
		default:
			keep(p, c)
			conflicts = append(conflicts, p)
		}
	}

	sort.Strings(conflicts)
	return merged, conflicts
}
