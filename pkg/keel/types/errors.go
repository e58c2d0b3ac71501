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

package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the core. Filesystem failures are wrapped
// operating-system errors and carry no sentinel of their own.
var (
	// ErrNotFound means a requested object or reference is absent.
	ErrNotFound = errors.New("object not found")

	// ErrMalformedObject means a parsed object violates its format.
	// Unknown header lines are tolerated; a commit without a tree
	// line is not.
	ErrMalformedObject = errors.New("malformed object")

	// ErrUnknownBranch means the named branch reference does not exist.
	ErrUnknownBranch = errors.New("unknown branch")

	// ErrEmptyHead means the current branch has no commits.
	ErrEmptyHead = errors.New("current branch has no commits")

	// ErrAlreadyUpToDate means current and incoming heads are equal.
	ErrAlreadyUpToDate = errors.New("already up to date")

	// ErrNoCommonAncestor means the two histories share no commit.
	ErrNoCommonAncestor = errors.New("no common ancestor")
)

// ConflictError reports the paths a three-way merge could not
// reconcile. The working tree and index hold the fallback merged set
// when this error is returned; no merge commit was created.
type ConflictError struct {
	Paths []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merge conflict in %d path(s): %s", len(e.Paths), strings.Join(e.Paths, ", "))
}
