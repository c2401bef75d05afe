// pkg/trie/doc.go

// Package trie implements a concurrent, thread-safe prefix trie mapping
// sequences of hashable segments to values.
//
// Reads take no tree-wide lock: a get walks the tree with atomic loads,
// holding each node's read lock (and a child-map shard's read lock) only
// while it checks that node's liveness and loads its immediate pointers.
// Writes serialize per node through a readers/writer lock guarding that
// node's retirement, not a tree-wide lock — operations on different keys
// meet only at the nodes their paths share. Removal prunes empty subtrees bottom-up
// and defers destruction of unlinked nodes until no active Guard could
// still observe them, using the epoch-based reclamation domain in
// epoch.go.
//
// Every public operation is performed through a Guard, obtained with
// Trie.Pin. Trie's own Get/Insert/Remove/Iter/Entry methods pin and
// release a Guard around a single call for convenience; callers that
// want to batch several operations under one pinned epoch should call
// Pin explicitly and use the returned Guard's methods.
package trie
