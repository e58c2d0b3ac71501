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
	"time"

	"github.com/keel-vcs/keel/pkg/keel/commit"
	"github.com/keel-vcs/keel/pkg/keel/tree"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

// Commit records the staging map as a tree, wraps it in a commit
// whose parent is the current branch head (none for a root commit),
// and advances the branch reference. The identity string is supplied
// by the caller and used for both author and committer.
func (r *Repository) Commit(message, identity string) (types.Digest, error) {
	start := time.Now()

	root, err := tree.Build(r.store, r.staging)
	if err != nil {
		return "", err
	}

	var parents []types.Digest
	if head := r.Head(); head != "" {
		parents = append(parents, head)
	}

	c := &types.Commit{
		Tree:      root,
		Parents:   parents,
		Author:    identity,
		Committer: identity,
		Message:   message,
	}
	d, err := commit.Save(r.store, c)
	if err != nil {
		return "", err
	}

	if err := r.refsMgr.Set(r.branch, d); err != nil {
		return "", err
	}

	r.rm.ObserveCommitLatency(time.Since(start))
	return d, nil
}

// LogEntry pairs a commit with its digest for display by the caller.
type LogEntry struct {
	Digest types.Digest
	Commit *types.Commit
}

// Log walks first parents from the current head, newest first, up to
// limit entries (limit ≤ 0 means unbounded). An unborn branch yields
// an empty log.
func (r *Repository) Log(limit int) ([]LogEntry, error) {
	var entries []LogEntry
	cur := r.Head()
	for cur != "" {
		if limit > 0 && len(entries) >= limit {
			break
		}
		c, err := r.walker.Parse(cur)
		if err != nil {
			return nil, err
		}
		entries = append(entries, LogEntry{Digest: cur, Commit: c})
		if len(c.Parents) == 0 {
			break
		}
		cur = c.Parents[0]
	}
	return entries, nil
}
