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
	"reflect"
	"strings"
	"testing"

	"github.com/keel-vcs/keel/internal/util"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

// memStore is an in-memory object store for codec tests.
type memStore map[types.Digest][]byte

func (m memStore) Put(d types.Digest, content []byte) error {
	m[d] = content
	return nil
}

func (m memStore) Get(d types.Digest) ([]byte, error) {
	content, ok := m[d]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", d, types.ErrNotFound)
	}
	return content, nil
}

const (
	h1 = types.Digest("1111111111111111111111111111111111111111")
	h2 = types.Digest("2222222222222222222222222222222222222222")
	h3 = types.Digest("3333333333333333333333333333333333333333")
)

func TestBuild_Empty(t *testing.T) {
	s := memStore{}
	root, err := Build(s, types.FileSet{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root != "" {
		t.Fatalf("empty input built tree %s, want empty digest", root)
	}
	if len(s) != 0 {
		t.Fatalf("empty input wrote %d objects", len(s))
	}
}

func TestBuild_Nested(t *testing.T) {
	s := memStore{}
	files := types.FileSet{
		"a.txt":         h1,
		"src/b.txt":     h2,
		"src/lib/c.txt": h3,
	}

	root, err := Build(s, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Root: one blob, one subtree, blobs first.
	rootText, err := s.Get(root)
	if err != nil {
		t.Fatalf("root tree missing: %v", err)
	}
	rootLines := strings.Split(strings.TrimSuffix(string(rootText), "\n"), "\n")
	if len(rootLines) != 2 {
		t.Fatalf("root tree has %d entries, want 2:\n%s", len(rootLines), rootText)
	}
	if want := "100644 blob " + string(h1) + " a.txt"; rootLines[0] != want {
		t.Errorf("root line 0 = %q, want %q", rootLines[0], want)
	}
	if !strings.HasPrefix(rootLines[1], "40000 tree ") || !strings.HasSuffix(rootLines[1], " src") {
		t.Errorf("root line 1 = %q, want subtree entry for src", rootLines[1])
	}

	// src: blob b.txt then subtree lib.
	srcDigest := types.Digest(rootLines[1][len("40000 tree ") : len("40000 tree ")+types.DigestLen])
	srcText, err := s.Get(srcDigest)
	if err != nil {
		t.Fatalf("src tree missing: %v", err)
	}
	srcLines := strings.Split(strings.TrimSuffix(string(srcText), "\n"), "\n")
	if len(srcLines) != 2 {
		t.Fatalf("src tree has %d entries, want 2:\n%s", len(srcLines), srcText)
	}
	if want := "100644 blob " + string(h2) + " b.txt"; srcLines[0] != want {
		t.Errorf("src line 0 = %q, want %q", srcLines[0], want)
	}
	if !strings.HasSuffix(srcLines[1], " lib") {
		t.Errorf("src line 1 = %q, want subtree entry for lib", srcLines[1])
	}

	// lib: single blob.
	libDigest := types.Digest(srcLines[1][len("40000 tree ") : len("40000 tree ")+types.DigestLen])
	libText, err := s.Get(libDigest)
	if err != nil {
		t.Fatalf("lib tree missing: %v", err)
	}
	if want := "100644 blob " + string(h3) + " c.txt\n"; string(libText) != want {
		t.Errorf("lib tree = %q, want %q", libText, want)
	}
}

func TestBuild_IdentityIsDigestOfText(t *testing.T) {
	s := memStore{}
	root, err := Build(s, types.FileSet{"a.txt": h1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	text, err := s.Get(root)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if util.HashObject(text) != root {
		t.Fatalf("stored name %s does not match digest of bytes %s", root, util.HashObject(text))
	}
}

func TestBuildList_RoundTrip(t *testing.T) {
	cases := []types.FileSet{
		{"a.txt": h1},
		{"a.txt": h1, "src/b.txt": h2, "src/lib/c.txt": h3},
		{"deep/er/and/deeper/f": h1},
		{"x": h1, "y": h2, "z": h3},
		{},
	}
	for i, files := range cases {
		s := memStore{}
		root, err := Build(s, files)
		if err != nil {
			t.Fatalf("case %d: Build: %v", i, err)
		}
		got, err := List(s, root, "")
		if err != nil {
			t.Fatalf("case %d: List: %v", i, err)
		}
		if len(got) != len(files) {
			t.Fatalf("case %d: round trip %d entries, want %d", i, len(got), len(files))
		}
		if len(files) > 0 && !reflect.DeepEqual(got, files) {
			t.Fatalf("case %d: round trip = %v, want %v", i, got, files)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	files := types.FileSet{"a.txt": h1, "src/b.txt": h2, "src/lib/c.txt": h3}

	r1, err := Build(memStore{}, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	r2, err := Build(memStore{}, files.Clone())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r1 != r2 {
		t.Fatalf("same input built different roots: %s vs %s", r1, r2)
	}
}

func TestList_MissingObject(t *testing.T) {
	if _, err := List(memStore{}, h1, ""); err == nil {
		t.Fatal("expected error listing a missing tree")
	}
}

func TestList_TolerantParser(t *testing.T) {
	s := memStore{}
	text := []byte(strings.Join([]string{
		"100644 blob " + string(h1) + " good.txt",
		"garbage line",
		"100644 blob short bad.txt",
		"100644 blob " + string(h2) + " name with spaces.txt",
		"",
	}, "\n"))
	d := util.HashObject(text)
	_ = s.Put(d, text)

	got, err := List(s, d, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := types.FileSet{
		"good.txt":             h1,
		"name with spaces.txt": h2,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}

func TestList_WithBase(t *testing.T) {
	s := memStore{}
	root, err := Build(s, types.FileSet{"a.txt": h1, "sub/b.txt": h2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := List(s, root, "prefix")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := types.FileSet{"prefix/a.txt": h1, "prefix/sub/b.txt": h2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
	}{
		{"100644 blob " + string(h1) + " a.txt", true},
		{"40000 tree " + string(h1) + " dir", true},
		{"100644 blob " + string(h1) + " two words.txt", true},
		{"", false},
		{"oneword", false},
		{"100644 blob tooshort a.txt", false},
		{"100644 link " + string(h1) + " a.txt", false},
		{"100644 blob " + string(h1) + "", false}, // no name field
	}
	for _, tt := range tests {
		_, _, _, _, ok := parseEntry(tt.line)
		if ok != tt.ok {
			t.Errorf("parseEntry(%q) ok = %v, want %v", tt.line, ok, tt.ok)
		}
	}
}
