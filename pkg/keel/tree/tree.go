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
	"sort"
	"strings"

	"github.com/keel-vcs/keel/internal/util"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

// Tree objects are line-oriented text. Each entry is
//
//	<mode> <kind> <digest> <name>\n
//
// with mode 100644/kind blob for files and mode 40000/kind tree for
// subtrees. Within one tree object all blob entries precede all
// subtree entries; inside each group entries are ordered by name.
// The digest of the serialized text is the tree's identity.

const (
	ModeBlob = "100644"
	ModeTree = "40000"

	KindBlob = "blob"
	KindTree = "tree"
)

// Putter stores a serialized object under its digest.
type Putter interface {
	Put(d types.Digest, content []byte) error
}

// Getter retrieves a serialized object by digest.
type Getter interface {
	Get(d types.Digest) ([]byte, error)
}

// Build serializes a flat path→blob-digest map into a hierarchy of
// tree objects, writing each to the store, and returns the root tree
// digest. An empty map yields the empty digest and writes nothing.
//
// Paths use forward slashes, are non-empty and never end in a
// separator; intermediate directories implied by deeper files get
// tree objects of their own.
func Build(s Putter, files types.FileSet) (types.Digest, error) {
	if len(files) == 0 {
		return "", nil
	}
	return buildDir(s, files, "")
}

// buildDir serializes the tree object for one directory prefix,
// recursing into child directories first so every subtree digest is
// known before its parent is written.
func buildDir(s Putter, files types.FileSet, prefix string) (types.Digest, error) {
	blobs := make(map[string]types.Digest) // name -> blob digest
	subdirs := make(map[string]struct{})   // immediate child dir names

	for p, d := range files {
		var rel string
		if prefix == "" {
			rel = p
		} else {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		if slash := strings.IndexByte(rel, '/'); slash < 0 {
			blobs[rel] = d
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	var b strings.Builder

	names := make([]string, 0, len(blobs))
	for name := range blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s %s %s %s\n", ModeBlob, KindBlob, blobs[name], name)
	}

	names = names[:0]
	for name := range subdirs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child := name
		if prefix != "" {
			child = prefix + "/" + name
		}
		sub, err := buildDir(s, files, child)
		if err != nil {
			return "", fmt.Errorf("build tree %q: %w", child, err)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n", ModeTree, KindTree, sub, name)
	}

	text := []byte(b.String())
	d := util.HashObject(text)
	if err := s.Put(d, text); err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return d, nil
}

// List walks the tree named by d recursively and returns the flat
// path→blob-digest map rooted at base. Listing the digest returned by
// Build yields the original input map.
func List(g Getter, d types.Digest, base string) (types.FileSet, error) {
	files := make(types.FileSet)
	if d == "" {
		return files, nil
	}
	if err := listInto(g, d, base, files); err != nil {
		return nil, err
	}
	return files, nil
}

func listInto(g Getter, d types.Digest, base string, out types.FileSet) error {
	data, err := g.Get(d)
	if err != nil {
		return fmt.Errorf("list tree %s: %w", d, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		_, kind, child, name, ok := parseEntry(line)
		if !ok {
			continue
		}

		path := name
		if base != "" {
			path = base + "/" + name
		}

		switch kind {
		case KindBlob:
			out[path] = child
		case KindTree:
			if err := listInto(g, child, path, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseEntry splits one tree line into its fields: two space-delimited
// tokens for mode and kind, exactly 40 characters of digest, one
// space, then the rest of the line as the name. Names may contain
// spaces. Lines not conforming are skipped by the caller.
func parseEntry(line string) (mode, kind string, d types.Digest, name string, ok bool) {
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return "", "", "", "", false
	}
	mode, rest := line[:i], line[i+1:]

	i = strings.IndexByte(rest, ' ')
	if i < 0 {
		return "", "", "", "", false
	}
	kind, rest = rest[:i], rest[i+1:]

	if len(rest) < types.DigestLen+2 || rest[types.DigestLen] != ' ' {
		return "", "", "", "", false
	}
	d = types.Digest(rest[:types.DigestLen])
	name = rest[types.DigestLen+1:]

	if !d.Valid() || (kind != KindBlob && kind != KindTree) {
		return "", "", "", "", false
	}
	return mode, kind, d, name, true
}
