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

package l1cache

import (
	"bytes"
	"strings"
	"testing"

	"github.com/keel-vcs/keel/pkg/keel/types"
)

func d(s string) types.Digest {
	return types.Digest(s)
}

func TestCache_PutGet(t *testing.T) {
	c, err := New(Config{CapacityBytes: 1 << 20, CompressionThreshold: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw := []byte("small entry")
	c.Put(d("k1"), raw)

	got, ok := c.Get(d("k1"))
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("got %q, want %q", got, raw)
	}

	if _, ok := c.Get(d("missing")); ok {
		t.Fatal("expected miss for unknown key")
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit 1 miss", st)
	}
}

func TestCache_CompressionRoundTrip(t *testing.T) {
	c, err := New(Config{CapacityBytes: 1 << 20, CompressionThreshold: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Highly repetitive content compresses well below its raw size.
	raw := []byte(strings.Repeat("abcdefgh", 4096))
	stored, compressed := c.Put(d("big"), raw)
	if !compressed {
		t.Fatal("expected compressed entry")
	}
	if stored >= len(raw) {
		t.Fatalf("stored %d bytes, raw %d; compression gained nothing", stored, len(raw))
	}

	got, ok := c.Get(d("big"))
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(got, raw) {
		t.Fatal("decompressed bytes differ from original")
	}
}

func TestCache_Disabled(t *testing.T) {
	c, err := New(Config{CapacityBytes: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if stored, _ := c.Put(d("k"), []byte("x")); stored != 0 {
		t.Fatalf("disabled cache stored %d bytes", stored)
	}
	if _, ok := c.Get(d("k")); ok {
		t.Fatal("disabled cache returned a hit")
	}
}

func TestCache_Eviction(t *testing.T) {
	c, err := New(Config{CapacityBytes: 64, CompressionThreshold: 1 << 20})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Put(d("a"), make([]byte, 40))
	c.Put(d("b"), make([]byte, 40)) // evicts a

	if _, ok := c.Get(d("a")); ok {
		t.Fatal("coldest entry survived eviction")
	}
	if _, ok := c.Get(d("b")); !ok {
		t.Fatal("newest entry missing")
	}
	if st := c.Stats(); st.Evictions != 1 {
		t.Fatalf("evictions = %d, want 1", st.Evictions)
	}
}

func TestCache_EvictionIsLRU(t *testing.T) {
	c, err := New(Config{CapacityBytes: 100, CompressionThreshold: 1 << 20})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Put(d("a"), make([]byte, 40))
	c.Put(d("b"), make([]byte, 40))

	// Touch a so b becomes the coldest entry.
	if _, ok := c.Get(d("a")); !ok {
		t.Fatal("expected hit on a")
	}

	c.Put(d("c"), make([]byte, 40)) // evicts b, not a

	if _, ok := c.Get(d("b")); ok {
		t.Fatal("least recently used entry survived eviction")
	}
	if _, ok := c.Get(d("a")); !ok {
		t.Fatal("recently touched entry was evicted")
	}
	if _, ok := c.Get(d("c")); !ok {
		t.Fatal("newest entry missing")
	}
}

func TestCache_OversizedEntrySkipped(t *testing.T) {
	c, err := New(Config{CapacityBytes: 16, CompressionThreshold: 1 << 20})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if stored, _ := c.Put(d("huge"), make([]byte, 1024)); stored != 0 {
		t.Fatalf("oversized entry stored %d bytes", stored)
	}
}

func TestCache_PutExistingKeepsEntry(t *testing.T) {
	c, err := New(Config{CapacityBytes: 1 << 20})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A digest names immutable bytes, so re-putting the same key is a
	// recency refresh, not a replacement.
	c.Put(d("k"), []byte("bytes"))
	c.Put(d("k"), []byte("bytes"))

	got, ok := c.Get(d("k"))
	if !ok || string(got) != "bytes" {
		t.Fatalf("got %q ok=%v, want bytes", got, ok)
	}
	if st := c.Stats(); st.Items != 1 {
		t.Fatalf("items = %d, want 1", st.Items)
	}
}
