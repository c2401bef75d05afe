// pkg/trie/node.go
package trie

import (
	"sync"
	"sync/atomic"
)

// opCtx bundles the two things every node-level operation needs besides
// the node itself: the reclamation domain to retire unlinked objects
// into, and the config governing child-map sharding and hashing. Passed
// by value down the recursion instead of stashing a back-pointer to the
// owning Trie on each node, so a node never needs to know about its
// parent — removal propagates emptiness purely through return values
// (see node.remove).
type opCtx[S comparable, V any] struct {
	dom *domain
	cfg Config[S]
}

// node is a single trie node: an atomic value slot, an atomic pointer to
// a (possibly nil) concurrent child map, and a readers/writer-guarded
// deleted flag. This type, together with the reclamation domain in
// epoch.go, is the part of this package carrying essentially the whole
// of its concurrency behavior; Trie itself (trie.go) is a thin handle
// that owns the root slot and the domain and does little else.
//
// Ported from this repository's ancestor CoW B+-tree node
// (pkg/cowbtree/node.go), but unlike that design — which clones whole
// nodes copy-on-write under a tree-wide write mutex — this node mutates
// its own slots in place via CAS and serializes only against its own
// retirement, never against the rest of the tree.
type node[S comparable, V any] struct {
	value    atomic.Pointer[V]
	children atomic.Pointer[childMap[S, V]]

	deletedMu sync.RWMutex
	deleted   bool
}

func newNode[S comparable, V any]() *node[S, V] {
	return &node[S, V]{}
}

// get implements spec §4.2. The deleted read lock is held only long
// enough to check liveness and load the immediate pointers; it is
// released before recursing into a child so that lock coupling never
// reaches more than one node deep.
func (n *node[S, V]) get(key []S, ctx *opCtx[S, V]) (*V, Status) {
	n.deletedMu.RLock()
	if n.deleted {
		n.deletedMu.RUnlock()
		return nil, StatusNotFound
	}

	if len(key) == 0 {
		v := n.value.Load()
		n.deletedMu.RUnlock()
		if v == nil {
			return nil, StatusNotFound
		}
		return v, StatusOK
	}

	children := n.children.Load()
	if children == nil {
		n.deletedMu.RUnlock()
		return nil, StatusNotFound
	}
	s := children.get(key[0], ctx.cfg.Hasher)
	if s == nil {
		n.deletedMu.RUnlock()
		return nil, StatusNotFound
	}
	child := s.child.Load()
	n.deletedMu.RUnlock()
	if child == nil {
		return nil, StatusNotFound
	}
	return child.get(key[1:], ctx)
}

// insert implements spec §4.3.
func (n *node[S, V]) insert(key []S, val V, ctx *opCtx[S, V]) (*V, Status) {
	n.deletedMu.RLock()
	if n.deleted {
		n.deletedMu.RUnlock()
		return nil, StatusRetry
	}

	if len(key) == 0 {
		newVal := new(V)
		*newVal = val
		old := n.value.Swap(newVal)
		n.deletedMu.RUnlock()
		if old != nil {
			ctx.dom.retire(old)
			ctx.dom.advance()
		}
		return newVal, StatusOK
	}

	children := n.children.Load()
	if children == nil {
		children = newChildMap[S, V](ctx.cfg.ShardCount, ctx.cfg.Hasher)
		if !n.children.CompareAndSwap(nil, children) {
			children = n.children.Load()
		}
	}

	seg := key[0]
	s, created := children.getOrCreate(seg, ctx.cfg.Hasher)
	var child *node[S, V]
	if created {
		child = newNode[S, V]()
		if !s.child.CompareAndSwap(nil, child) {
			child = s.child.Load()
		}
	} else {
		child = s.child.Load()
		if child == nil {
			// A concurrent insert created this slot and has not yet
			// published its child; report Retry so the caller restarts
			// from the root, where it finds the published child.
			n.deletedMu.RUnlock()
			return nil, StatusRetry
		}
	}
	n.deletedMu.RUnlock()

	return child.insert(key[1:], val, ctx)
}

// remove implements spec §4.4. It returns the removed value (if any),
// whether this node became empty as a result (signalling the parent to
// unlink it), and a status.
func (n *node[S, V]) remove(key []S, ctx *opCtx[S, V]) (*V, bool, Status) {
	if len(key) == 0 {
		return n.removeTerminal(ctx)
	}

	n.deletedMu.RLock()
	if n.deleted {
		n.deletedMu.RUnlock()
		return nil, false, StatusRetry
	}

	children := n.children.Load()
	if children == nil {
		n.deletedMu.RUnlock()
		return nil, false, StatusNotFound
	}
	seg := key[0]
	s := children.get(seg, ctx.cfg.Hasher)
	if s == nil {
		n.deletedMu.RUnlock()
		return nil, false, StatusNotFound
	}
	childSnap := s.child.Load()
	if childSnap == nil {
		n.deletedMu.RUnlock()
		return nil, false, StatusNotFound
	}
	n.deletedMu.RUnlock()

	value, childBecameEmpty, status := childSnap.remove(key[1:], ctx)

	n.deletedMu.Lock()
	defer n.deletedMu.Unlock()

	if n.deleted {
		return value, false, status
	}

	if childBecameEmpty {
		if s.child.CompareAndSwap(childSnap, nil) {
			ctx.dom.retire(childSnap)
			ctx.dom.advance()
			children.removeIfDead(seg, ctx.cfg.Hasher, s)
		}
		// CAS failure means a concurrent insert or another pruner
		// altered the slot first; leave it untouched.
	}

	if n.isEmptyLocked() {
		n.deleted = true
		if c := n.children.Load(); c != nil {
			ctx.dom.retire(c)
			ctx.dom.advance()
		}
		return value, true, status
	}
	return value, false, status
}

func (n *node[S, V]) removeTerminal(ctx *opCtx[S, V]) (*V, bool, Status) {
	n.deletedMu.Lock()
	defer n.deletedMu.Unlock()

	if n.deleted {
		return nil, false, StatusNotFound
	}

	old := n.value.Swap(nil)
	if old == nil {
		return nil, false, StatusNotFound
	}
	ctx.dom.retire(old)
	ctx.dom.advance()

	if n.isEmptyLocked() {
		n.deleted = true
		if c := n.children.Load(); c != nil {
			ctx.dom.retire(c)
			ctx.dom.advance()
		}
		return old, true, StatusOK
	}
	return old, false, StatusOK
}

// isEmptyLocked reports whether this node has neither a value nor any
// children. Callers must hold deletedMu (read or write) already.
func (n *node[S, V]) isEmptyLocked() bool {
	if n.value.Load() != nil {
		return false
	}
	c := n.children.Load()
	return c == nil || c.isEmpty()
}

// iter implements spec §4.5: best-effort, unordered, lock-free between
// yields. visit returning false stops the walk early (and propagates the
// stop signal back up through every recursive caller).
func (n *node[S, V]) iter(visit func(v *V) bool) bool {
	if v := n.value.Load(); v != nil {
		if !visit(v) {
			return false
		}
	}
	children := n.children.Load()
	if children == nil {
		return true
	}
	return children.forEach(func(_ S, child *node[S, V]) bool {
		return child.iter(visit)
	})
}
