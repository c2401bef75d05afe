// pkg/trie/trie.go
package trie

import (
	"sync/atomic"
)

// Trie is a concurrent, thread-safe prefix trie mapping sequences of
// segments of type S to values of type V. The zero value is not usable;
// construct one with New or NewWithHasher.
//
// Modeled on this repository's CoW B+ tree handle (pkg/cowbtree.go,
// CowBTree): a root slot, an embedded reclamation domain, and atomically
// counted operation stats, but with the tree-wide write mutex replaced
// by per-node locking (see node.go) since this design's writers never
// need to serialize against each other except at the single node they
// share.
type Trie[S comparable, V any] struct {
	root   atomic.Pointer[node[S, V]]
	domain *domain
	cfg    Config[S]
	closed atomic.Bool
	stats  Stats
	logger logger
}

// Stats is a snapshot of a Trie's lifetime operation counters, following
// the convention established by cowbtree.CowBTreeStats.Stats().
type Stats struct {
	Gets      int64
	Inserts   int64
	Removes   int64
	Retries   int64
	Reclaimed int64
}

type statCounters struct {
	gets, inserts, removes, retries int64
}

// New returns an empty Trie using DefaultConfig, suitable for segment
// types with a built-in default Hasher (see defaultHasher).
func New[S comparable, V any]() *Trie[S, V] {
	return NewWithConfig[S, V](DefaultConfig[S]())
}

// NewWithHasher returns an empty Trie using h to pick child-map shards,
// for segment types DefaultConfig cannot hash on its own (the Rust
// original's with_hasher constructor — see SUPPLEMENTED FEATURES).
func NewWithHasher[S comparable, V any](h Hasher[S]) *Trie[S, V] {
	return NewWithConfig[S, V](Config[S]{Hasher: h, ShardCount: DefaultShardCount})
}

// NewWithConfig returns an empty Trie using the given Config.
func NewWithConfig[S comparable, V any](cfg Config[S]) *Trie[S, V] {
	t := &Trie[S, V]{
		domain: newDomain(),
		cfg:    cfg.normalized(),
		logger: discardLogger{},
	}
	return t
}

// SetLogger attaches an optional structured logger. The only events
// logged are the Retry restarts of Insert and Remove; node retirement
// and prune commits are not logged. Never required; a Trie
// without one logs nothing and the hot path never allocates for it.
func (t *Trie[S, V]) SetLogger(l logger) {
	if l == nil {
		l = discardLogger{}
	}
	t.logger = l
}

// Guard is a scoped handle pinning the reclamation epoch. References
// returned by operations performed through a Guard — directly, or via
// the convenience methods on Trie — are valid only while the Guard that
// produced them is alive. A Guard must not be retained across unbounded
// waits or outlive the Trie that produced it.
type Guard[S comparable, V any] struct {
	t      *Trie[S, V]
	handle *guardHandle
}

// Pin returns a Guard scoped to the caller. Every public operation in
// this package goes through a Guard; Trie's own Get/Insert/Remove/Iter
// pin and release one per call for convenience.
func (t *Trie[S, V]) Pin() *Guard[S, V] {
	return &Guard[S, V]{t: t, handle: t.domain.enter()}
}

// Release ends the guard's pin, allowing anything retired at or after
// its epoch to eventually be reclaimed. Safe to call more than once.
func (g *Guard[S, V]) Release() {
	g.handle.leave()
}

func (t *Trie[S, V]) ctx() *opCtx[S, V] {
	return &opCtx[S, V]{dom: t.domain, cfg: t.cfg}
}

// Get returns the value stored for key, or (zero, false) if absent.
func (t *Trie[S, V]) Get(key []S) (V, bool) {
	g := t.Pin()
	defer g.Release()
	return g.Get(key)
}

// Get performs a lookup under an explicitly pinned guard.
func (g *Guard[S, V]) Get(key []S) (V, bool) {
	atomic.AddInt64(&g.t.stats.Gets, 1)
	root := g.t.root.Load()
	if root == nil {
		return zero[V](), false
	}
	v, status := root.get(key, g.t.ctx())
	if status != StatusOK {
		return zero[V](), false
	}
	return *v, true
}

// Insert stores value for key, overwriting any prior value, and returns
// the stored value and true. It loops on Retry internally, restarting
// from the root each time a descent races a concurrent prune or a
// concurrent insert that has not yet published a new child, and returns
// (zero, false) only if TryInsert reports NotFound — see TryInsert to
// observe Retry directly instead of having it looped away.
func (t *Trie[S, V]) Insert(key []S, value V) (V, bool) {
	g := t.Pin()
	defer g.Release()
	return g.Insert(key, value)
}

// Insert is Trie.Insert's explicit-guard form.
func (g *Guard[S, V]) Insert(key []S, value V) (V, bool) {
	for {
		v, status := g.TryInsert(key, value)
		switch status {
		case StatusOK:
			return v, true
		case StatusNotFound:
			return zero[V](), false
		case StatusRetry:
			atomic.AddInt64(&g.t.stats.Retries, 1)
			g.t.logger.Debugf("trie: insert retry on key len=%d", len(key))
			continue
		}
	}
}

// TryInsert makes a single attempt to insert value at key from the
// root, returning the status visibly instead of looping on it — spec
// §6's "Retry is caller-visible" row for try_insert. Callers that want
// Insert's usual retry-until-success behavior should use Insert or loop
// on StatusRetry themselves.
func (g *Guard[S, V]) TryInsert(key []S, value V) (V, Status) {
	atomic.AddInt64(&g.t.stats.Inserts, 1)
	root := g.t.getOrCreateRoot()
	v, status := root.insert(key, value, g.t.ctx())
	if status != StatusOK {
		return zero[V](), status
	}
	return *v, StatusOK
}

// getOrCreateRoot lazily installs a root node on the first insert,
// following spec §4.6's get_or_create_root; readers never call this —
// they treat a nil root as an empty trie.
func (t *Trie[S, V]) getOrCreateRoot() *node[S, V] {
	root := t.root.Load()
	if root != nil {
		return root
	}
	fresh := newNode[S, V]()
	if t.root.CompareAndSwap(nil, fresh) {
		return fresh
	}
	return t.root.Load()
}

// Remove deletes key and returns the removed value, or (zero, false) if
// absent. It loops on Retry internally and translates NotFound to
// absent — see TryRemove to observe Retry directly instead of having it
// looped away.
func (t *Trie[S, V]) Remove(key []S) (V, bool) {
	g := t.Pin()
	defer g.Release()
	return g.Remove(key)
}

// Remove is Trie.Remove's explicit-guard form.
func (g *Guard[S, V]) Remove(key []S) (V, bool) {
	for {
		v, status := g.TryRemove(key)
		switch status {
		case StatusOK:
			return v, true
		case StatusNotFound:
			return zero[V](), false
		case StatusRetry:
			atomic.AddInt64(&g.t.stats.Retries, 1)
			g.t.logger.Debugf("trie: remove retry on key len=%d", len(key))
			continue
		}
	}
}

// TryRemove makes a single attempt to remove key from the root,
// returning the status visibly instead of looping on it — spec §6's
// "Retry is caller-visible" row for try_remove. Callers that want
// Remove's usual retry-until-resolved behavior should use Remove or
// loop on StatusRetry themselves.
func (g *Guard[S, V]) TryRemove(key []S) (V, Status) {
	atomic.AddInt64(&g.t.stats.Removes, 1)
	root := g.t.root.Load()
	if root == nil {
		return zero[V](), StatusNotFound
	}
	v, rootBecameEmpty, status := root.remove(key, g.t.ctx())
	if status != StatusOK {
		return zero[V](), status
	}

	if rootBecameEmpty {
		if g.t.root.CompareAndSwap(root, nil) {
			g.t.domain.retire(root)
			g.t.domain.advance()
		}
		// CAS failure means a concurrent insert already replaced
		// the root; the new root stands, nothing to unlink.
	}
	return *v, StatusOK
}

// Stats returns a snapshot of this Trie's lifetime operation counters.
func (t *Trie[S, V]) Stats() Stats {
	t.domain.tryReclaim()
	return Stats{
		Gets:      atomic.LoadInt64(&t.stats.Gets),
		Inserts:   atomic.LoadInt64(&t.stats.Inserts),
		Removes:   atomic.LoadInt64(&t.stats.Removes),
		Retries:   atomic.LoadInt64(&t.stats.Retries),
		Reclaimed: t.domain.reclaimedCount(),
	}
}

// Close quiesces the reclamation domain, reclaiming every retired
// object once no guard remains pinned, and marks the Trie closed.
// Operations after Close continue to function (Close is a drain point,
// not a hard stop, matching spec §4.1's "failure mode: none
// user-visible; reclamation is opportunistic") but ErrClosed is
// returned by CloseErr for callers that want to enforce single-use
// shutdown semantics.
func (t *Trie[S, V]) Close() {
	t.closed.Store(true)
	t.domain.quiesce()
}

// CloseErr reports whether the Trie has already been Closed.
func (t *Trie[S, V]) CloseErr() error {
	if t.closed.Load() {
		return ErrClosed
	}
	return nil
}

func zero[V any]() V {
	var v V
	return v
}
