// pkg/trie/iter.go
package trie

// Iter visits every value currently reachable in the trie, in an
// unspecified order, until visit returns false or every value has been
// visited. It takes no locks across yields and does not observe a
// consistent snapshot — concurrent mutation may cause a value to be
// seen, missed, or (for an overwritten key) seen as either the old or
// new value, matching spec §4.5. Ordered or prefix-scoped iteration is
// explicitly out of scope; see the Entry cursor for positional
// navigation instead.
func (t *Trie[S, V]) Iter(visit func(value V) bool) {
	g := t.Pin()
	defer g.Release()
	g.Iter(visit)
}

// Iter is Trie.Iter's explicit-guard form, for callers that want their
// walk to share a pinned epoch with other operations.
func (g *Guard[S, V]) Iter(visit func(value V) bool) {
	root := g.t.root.Load()
	if root == nil {
		return
	}
	root.iter(func(v *V) bool {
		return visit(*v)
	})
}
