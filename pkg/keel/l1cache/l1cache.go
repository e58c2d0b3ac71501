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
	"container/list"
	"sync"

	"github.com/keel-vcs/keel/pkg/keel/types"
	"github.com/klauspost/compress/zstd"
)

// Cache is a bounded in-memory object cache keyed by digest, sitting
// in front of the loose-file object store. Entries at or above the
// compression threshold are held zstd-compressed when the frame is
// smaller than the raw bytes, and raw otherwise; on-disk object bytes
// are never compressed. Eviction is least-recently-used.
type Cache interface {
	Put(d types.Digest, raw []byte) (storedBytes int, compressed bool)
	Get(d types.Digest) (data []byte, ok bool)
	Stats() CacheStats
}

type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	SizeBytes uint64
	Items     uint64
}

type Config struct {
	CapacityBytes        int64 // ≤0 means cache is disabled
	CompressionThreshold int   // below threshold: do not compress; ≤0 means always try compress
}

// entry is the value stored per digest. The digest rides along so an
// evicted list element can be unlinked from the map without a search.
type entry struct {
	digest     types.Digest
	data       []byte // zstd frame when compressed
	compressed bool
}

type cache struct {
	mu        sync.Mutex
	capBytes  int64
	sizeBytes int64

	// recency.Front() is the most recently touched entry; eviction
	// pops from the back. byDigest indexes the same elements.
	recency  *list.List
	byDigest map[types.Digest]*list.Element

	enc       *zstd.Encoder
	dec       *zstd.Decoder
	threshold int

	stats CacheStats
}

func New(cfg Config) (Cache, error) {
	if cfg.CapacityBytes < 0 {
		cfg.CapacityBytes = 0
	}
	// Note: capacity=0 is valid for a "disabled cache" that never stores anything
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &cache{
		capBytes:  cfg.CapacityBytes,
		recency:   list.New(),
		byDigest:  make(map[types.Digest]*list.Element),
		enc:       enc,
		dec:       dec,
		threshold: cfg.Threshold(),
	}, nil
}

// Threshold normalizes the configured compression threshold.
func (cfg Config) Threshold() int {
	if cfg.CompressionThreshold < 0 {
		return 0
	}
	return cfg.CompressionThreshold
}

// Put stores raw under d, compressing when the frame is actually
// smaller, and evicts from the cold end until the entry fits. Objects
// are immutable, so a digest already present keeps its bytes and is
// only refreshed in the recency order.
func (c *cache) Put(d types.Digest, raw []byte) (int, bool) {
	if c.capBytes == 0 {
		return 0, false
	}

	// Encode outside the lock; the encoder serializes itself via
	// WithEncoderConcurrency(1).
	store := raw
	compressed := false
	if c.threshold == 0 || len(raw) >= c.threshold {
		if frame := c.enc.EncodeAll(raw, nil); len(frame) < len(raw) {
			store = frame
			compressed = true
		}
	}
	if int64(len(store)) > c.capBytes {
		return 0, false // would evict everything and still not fit
	}
	if !compressed {
		// Detach from the caller's slice.
		store = append([]byte(nil), raw...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byDigest[d]; ok {
		c.recency.MoveToFront(el)
		ent := el.Value.(*entry)
		return len(ent.data), ent.compressed
	}

	for c.sizeBytes+int64(len(store)) > c.capBytes && c.recency.Len() > 0 {
		c.evictColdest()
	}

	el := c.recency.PushFront(&entry{digest: d, data: store, compressed: compressed})
	c.byDigest[d] = el
	c.sizeBytes += int64(len(store))
	c.stats.Items++
	c.stats.SizeBytes = uint64(c.sizeBytes)

	return len(store), compressed
}

// Get returns the cached bytes for d, decompressing if needed, and
// refreshes the entry's recency. A frame that fails to decode is
// dropped and reported as a miss so the caller falls through to the
// object store.
func (c *cache) Get(d types.Digest) ([]byte, bool) {
	if c.capBytes == 0 {
		return nil, false
	}

	c.mu.Lock()
	el, ok := c.byDigest[d]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}
	c.recency.MoveToFront(el)
	ent := el.Value.(*entry)
	frame := append([]byte(nil), ent.data...)
	compressed := ent.compressed
	c.mu.Unlock()

	if !compressed {
		c.mu.Lock()
		c.stats.Hits++
		c.mu.Unlock()
		return frame, true
	}

	raw, err := c.dec.DecodeAll(frame, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if cur, ok := c.byDigest[d]; ok {
			c.unlink(cur)
		}
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return raw, true
}

func (c *cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	out.SizeBytes = uint64(c.sizeBytes)
	return out
}

// evictColdest removes the least recently used entry. Caller holds mu.
func (c *cache) evictColdest() {
	back := c.recency.Back()
	if back == nil {
		return
	}
	c.unlink(back)
	c.stats.Evictions++
}

// unlink removes an element from both the recency list and the index.
func (c *cache) unlink(el *list.Element) {
	ent := c.recency.Remove(el).(*entry)
	delete(c.byDigest, ent.digest)
	c.sizeBytes -= int64(len(ent.data))
	c.stats.Items--
	c.stats.SizeBytes = uint64(c.sizeBytes)
}
