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
	"errors"
	"fmt"
	"time"

	"github.com/keel-vcs/keel/pkg/keel/commit"
	"github.com/keel-vcs/keel/pkg/keel/merge"
	"github.com/keel-vcs/keel/pkg/keel/tree"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

// Merge reconciles the named branch into the current one with a
// three-way merge against their common ancestor.
//
// Outcomes, in the order they are checked:
//   - the named branch does not exist: ErrUnknownBranch
//   - the current branch has no commits: ErrEmptyHead
//   - both heads are equal: ErrAlreadyUpToDate, no mutation
//   - the histories are unrelated: ErrNoCommonAncestor, no mutation
//   - irreconcilable paths: working tree and index are set to the
//     fallback merged set and a *ConflictError is returned; no commit
//     is created
//   - otherwise a merge commit with parents (current, incoming) is
//     created, the current branch advanced, and the working tree and
//     index reconciled to the merged set.
func (r *Repository) Merge(branchName, identity string) (types.Digest, error) {
	start := time.Now()

	incoming, err := r.refsMgr.Resolve(branchName)
	if err != nil {
		return "", err
	}

	current, err := r.refsMgr.Resolve(r.branch)
	if err != nil {
		if errors.Is(err, types.ErrUnknownBranch) {
			return "", types.ErrEmptyHead
		}
		return "", err
	}

	if current == incoming {
		return "", types.ErrAlreadyUpToDate
	}

	base, err := r.walker.Ancestor(current, incoming)
	if err != nil {
		return "", err
	}
	if base == "" {
		return "", types.ErrNoCommonAncestor
	}

	ancestorFiles, err := r.commitFiles(base)
	if err != nil {
		return "", err
	}
	currentFiles, err := r.commitFiles(current)
	if err != nil {
		return "", err
	}
	incomingFiles, err := r.commitFiles(incoming)
	if err != nil {
		return "", err
	}

	merged, conflicts := merge.Resolve(ancestorFiles, currentFiles, incomingFiles)

	if len(conflicts) > 0 {
		// Leave the tree in the fallback state for the user to resolve.
		if err := r.reconcile(merged); err != nil {
			return "", err
		}
		return "", &types.ConflictError{Paths: conflicts}
	}

	root, err := tree.Build(r.store, merged)
	if err != nil {
		return "", err
	}

	c := &types.Commit{
		Tree:      root,
		Parents:   []types.Digest{current, incoming},
		Author:    identity,
		Committer: identity,
		Message:   fmt.Sprintf("Merge branch '%s' into %s", branchName, r.branch),
	}
	d, err := commit.Save(r.store, c)
	if err != nil {
		return "", err
	}

	if err := r.refsMgr.Set(r.branch, d); err != nil {
		return "", err
	}
	if err := r.reconcile(merged); err != nil {
		return "", err
	}

	r.rm.ObserveMergeLatency(time.Since(start))
	return d, nil
}
