// pkg/trie/entry.go
package trie

// Entry is a cursor positioned at a node in the trie, obtained by
// walking a key from the root without reading any value. It supports stepping one
// segment further (Child), re-walking the remainder of a key (Find),
// reading the value at the current position (Get), inserting at the
// current position (TryInsert), and checking whether the underlying
// node has since been pruned (IsRemoved).
//
// Ported from the Rust original's Entry<'g,S,V,H> (entry.rs): get,
// try_insert, child, find, is_removed. An Entry shares its parent
// Guard's lifetime; it must not be retained past the Guard's Release.
type Entry[S comparable, V any] struct {
	g *Guard[S, V]
	n *node[S, V]
}

// Entry returns a cursor at the node reached by walking key from the
// root, or (nil, false) if any segment along the path is absent.
// Unlike Get, the cursor returned does not itself read the node's
// value — call Get on it to do that, or TryInsert to mutate it.
// The Guard pinned for the walk is released before Entry returns, so
// the cursor does not hold the epoch pinned; Guard.Entry returns a
// cursor tied to a Guard the caller controls.
func (t *Trie[S, V]) Entry(key []S) (*Entry[S, V], bool) {
	g := t.Pin()
	defer g.Release()
	e, ok := g.Entry(key)
	if !ok {
		return nil, false
	}
	return e, true
}

// Entry is Trie.Entry's explicit-guard form. The returned Entry must
// not outlive g.
func (g *Guard[S, V]) Entry(key []S) (*Entry[S, V], bool) {
	root := g.t.root.Load()
	if root == nil {
		return nil, false
	}
	return (&Entry[S, V]{g: g, n: root}).Find(key)
}

// Get returns the value stored at this cursor's position, or
// (zero, false) if the position holds no terminal value or has been
// pruned since the cursor was formed.
func (e *Entry[S, V]) Get() (V, bool) {
	e.n.deletedMu.RLock()
	defer e.n.deletedMu.RUnlock()
	if e.n.deleted {
		return zero[V](), false
	}
	v := e.n.value.Load()
	if v == nil {
		return zero[V](), false
	}
	return *v, true
}

// Child steps the cursor one segment further down, returning (nil,
// false) if no live child exists for seg. The receiver cursor is left
// unchanged; Child does not mutate in place.
func (e *Entry[S, V]) Child(seg S) (*Entry[S, V], bool) {
	e.n.deletedMu.RLock()
	if e.n.deleted {
		e.n.deletedMu.RUnlock()
		return nil, false
	}
	children := e.n.children.Load()
	if children == nil {
		e.n.deletedMu.RUnlock()
		return nil, false
	}
	s := children.get(seg, e.g.t.cfg.Hasher)
	if s == nil {
		e.n.deletedMu.RUnlock()
		return nil, false
	}
	child := s.child.Load()
	e.n.deletedMu.RUnlock()
	if child == nil {
		return nil, false
	}
	return &Entry[S, V]{g: e.g, n: child}, true
}

// Find re-walks tail from this cursor's position, returning the cursor
// at the end of the path or (nil, false) if any segment is absent.
func (e *Entry[S, V]) Find(tail []S) (*Entry[S, V], bool) {
	cur := e
	for _, seg := range tail {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// TryInsert stores value at this cursor's exact position (not below
// it), returning the stored value and StatusOK, or the zero value and
// StatusRetry if a concurrent prune retired this node first — the caller should re-obtain an Entry
// from the root and try again, the same way Trie.Insert retries a
// Retry from node.insert.
func (e *Entry[S, V]) TryInsert(value V) (V, Status) {
	e.n.deletedMu.RLock()
	if e.n.deleted {
		e.n.deletedMu.RUnlock()
		return zero[V](), StatusRetry
	}
	newVal := new(V)
	*newVal = value
	old := e.n.value.Swap(newVal)
	e.n.deletedMu.RUnlock()
	if old != nil {
		e.g.t.domain.retire(old)
		e.g.t.domain.advance()
	}
	return *newVal, StatusOK
}

// IsRemoved reports whether the node underlying this cursor has been
// pruned since the cursor was formed.
func (e *Entry[S, V]) IsRemoved() bool {
	e.n.deletedMu.RLock()
	defer e.n.deletedMu.RUnlock()
	return e.n.deleted
}
