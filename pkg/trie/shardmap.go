// pkg/trie/shardmap.go
package trie

import (
	"sync"
	"sync/atomic"
)

// childMap is the concurrent hash map a node uses to hold its
// segment -> child-node entries. It is sharded into independently locked
// segments keyed by the low bits of the segment's mixed hash, following the
// classic striped-lock design of Java's ConcurrentHashMap as ported in
// this repository's retrieval set (listr0ng's ConcurrentMap: segmentFor,
// per-segment RWMutex-guarded maps). Each slot's child pointer is itself
// an atomic.Pointer so a reader can load it without taking the shard
// lock at all; the shard lock only serializes structural changes
// (insert of a new segment, conditional removal of a dead one).
type childMap[S comparable, V any] struct {
	shards []*mapShard[S, V]
	mask   uint64
}

type mapShard[S comparable, V any] struct {
	mu      sync.RWMutex
	entries map[S]*slot[S, V]
}

// slot holds one child-map entry: a segment's atomic pointer to its child
// node. A slot whose pointer reads nil is transient: either a tombstone
// left by a removal in progress, or a slot just created by getOrCreate
// whose child has not been published yet; readers treat it as absent
// without deleting the map entry themselves (the pruner removes a
// tombstone under the shard lock).
type slot[S comparable, V any] struct {
	child atomic.Pointer[node[S, V]]
}

func newChildMap[S comparable, V any](shardCount int, hasher Hasher[S]) *childMap[S, V] {
	shards := make([]*mapShard[S, V], shardCount)
	for i := range shards {
		shards[i] = &mapShard[S, V]{entries: make(map[S]*slot[S, V])}
	}
	return &childMap[S, V]{
		shards: shards,
		mask:   uint64(shardCount - 1),
	}
}

func (m *childMap[S, V]) shardFor(seg S, hasher Hasher[S]) *mapShard[S, V] {
	h := hasher(seg)
	// spread bits the way segmentFor mixes the hash before masking,
	// so sequential small integers don't all land in shard 0.
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return m.shards[h&m.mask]
}

// get returns the slot for seg, or nil if no entry exists.
func (m *childMap[S, V]) get(seg S, hasher Hasher[S]) *slot[S, V] {
	sh := m.shardFor(seg, hasher)
	sh.mu.RLock()
	s := sh.entries[seg]
	sh.mu.RUnlock()
	return s
}

// getOrCreate returns the existing slot for seg, or atomically installs a
// freshly allocated one and returns it. The bool result reports whether
// this call created the entry.
func (m *childMap[S, V]) getOrCreate(seg S, hasher Hasher[S]) (*slot[S, V], bool) {
	sh := m.shardFor(seg, hasher)

	sh.mu.RLock()
	if s, ok := sh.entries[seg]; ok {
		sh.mu.RUnlock()
		return s, false
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.entries[seg]; ok {
		return s, false
	}
	s := &slot[S, V]{}
	sh.entries[seg] = s
	return s, true
}

// removeIfDead removes the map entry for seg if, and only if, it still
// identifies the same slot s and that slot's child pointer is nil. This
// is the concurrent map's "remove-if-predicate" operation spec §6
// requires: it guards against a concurrent insert having replaced the
// tombstoned slot with a live one between the pruner's CAS and its
// attempt to delete the map entry.
func (m *childMap[S, V]) removeIfDead(seg S, hasher Hasher[S], s *slot[S, V]) bool {
	sh := m.shardFor(seg, hasher)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur, ok := sh.entries[seg]
	if !ok || cur != s {
		return false
	}
	if cur.child.Load() != nil {
		return false
	}
	delete(sh.entries, seg)
	return true
}

// isEmpty reports whether the map currently has no entries. Used by the
// remove path's self-emptiness check; it is a snapshot, not a barrier —
// a concurrent insert racing this call is resolved by the caller holding
// the node's deleted write lock.
func (m *childMap[S, V]) isEmpty() bool {
	for _, sh := range m.shards {
		sh.mu.RLock()
		n := len(sh.entries)
		sh.mu.RUnlock()
		if n > 0 {
			return false
		}
	}
	return true
}

// forEach visits every live (segment, child) pair. Iteration takes no
// global lock: each shard is snapshotted under its own RLock in turn, so
// a concurrent structural change to another shard never blocks this walk,
// and an entry added or removed during the walk may or may not be seen,
// matching the best-effort iteration contract of the trie itself.
func (m *childMap[S, V]) forEach(visit func(seg S, child *node[S, V]) bool) bool {
	for _, sh := range m.shards {
		sh.mu.RLock()
		type pair struct {
			seg S
			n   *node[S, V]
		}
		snapshot := make([]pair, 0, len(sh.entries))
		for seg, s := range sh.entries {
			if c := s.child.Load(); c != nil {
				snapshot = append(snapshot, pair{seg, c})
			}
		}
		sh.mu.RUnlock()

		for _, p := range snapshot {
			if !visit(p.seg, p.n) {
				return false
			}
		}
	}
	return true
}
