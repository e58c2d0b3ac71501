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

package commit

import (
	"fmt"

	"github.com/keel-vcs/keel/pkg/keel/types"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Walker traverses the commit DAG. Parse results are memoized by
// digest so a BFS never re-reads an object; commits are immutable, so
// a cached entry can never go stale.
type Walker struct {
	g     Getter
	cache *lru.Cache[types.Digest, *types.Commit]
}

// defaultWalkerCacheSize bounds memoized commits during a DAG walk.
const defaultWalkerCacheSize = 8192

func NewWalker(g Getter) (*Walker, error) {
	cache, err := lru.New[types.Digest, *types.Commit](defaultWalkerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create commit cache: %w", err)
	}
	return &Walker{g: g, cache: cache}, nil
}

// Parse returns the decoded commit for d, from cache when possible.
func (w *Walker) Parse(d types.Digest) (*types.Commit, error) {
	if c, ok := w.cache.Get(d); ok {
		return c, nil
	}
	c, err := Parse(w.g, d)
	if err != nil {
		return nil, err
	}
	w.cache.Add(d, c)
	return c, nil
}

// Ancestor finds a common ancestor of a and b, or "" when the
// histories are unrelated. Mark-and-sweep: every ancestor of a
// (including a itself) is marked, then a breadth-first walk from b
// returns the first marked commit it reaches. Ancestor(x, x) == x.
//
// The result is a common ancestor, not necessarily the lowest one;
// the merge engine tolerates any.
func (w *Walker) Ancestor(a, b types.Digest) (types.Digest, error) {
	if a == "" || b == "" {
		return "", nil
	}

	marked := make(map[types.Digest]bool)
	queue := []types.Digest{a}
	marked[a] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		c, err := w.Parse(cur)
		if err != nil {
			return "", err
		}
		for _, p := range c.Parents {
			if !marked[p] {
				marked[p] = true
				queue = append(queue, p)
			}
		}
	}

	seen := map[types.Digest]bool{b: true}
	queue = []types.Digest{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if marked[cur] {
			return cur, nil
		}
		c, err := w.Parse(cur)
		if err != nil {
			return "", err
		}
		for _, p := range c.Parents {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return "", nil
}
