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

	"github.com/keel-vcs/keel/pkg/keel/types"
)

// CreateBranch points a new branch at the current head.
func (r *Repository) CreateBranch(name string) error {
	if name == "" {
		return fmt.Errorf("empty branch name")
	}
	head := r.Head()
	if head == "" {
		return types.ErrEmptyHead
	}
	if r.refsMgr.Exists(name) {
		return fmt.Errorf("branch %q already exists", name)
	}
	return r.refsMgr.Set(name, head)
}

// Branches lists all branch names.
func (r *Repository) Branches() ([]string, error) {
	return r.refsMgr.List()
}

// Checkout reconciles the working directory to the named branch's
// head and repoints HEAD at it.
func (r *Repository) Checkout(name string) error {
	target, err := r.refsMgr.Resolve(name)
	if err != nil {
		return err
	}

	files, err := r.commitFiles(target)
	if err != nil {
		return err
	}

	if err := r.reconcile(files); err != nil {
		return err
	}

	if err := r.refsMgr.SetHead(name); err != nil {
		return err
	}
	r.branch = name
	return nil
}
