// pkg/trie/shardmap_test.go
package trie

import "testing"

func TestChildMapGetOrCreateIsIdempotent(t *testing.T) {
	m := newChildMap[string, int](8, defaultHasher[string]())

	s1, created1 := m.getOrCreate("a", defaultHasher[string]())
	if !created1 {
		t.Fatalf("first getOrCreate: expected created=true")
	}
	s2, created2 := m.getOrCreate("a", defaultHasher[string]())
	if created2 {
		t.Fatalf("second getOrCreate: expected created=false")
	}
	if s1 != s2 {
		t.Fatalf("getOrCreate returned different slots for the same segment")
	}
}

func TestChildMapRemoveIfDeadRequiresNilChild(t *testing.T) {
	m := newChildMap[string, int](8, defaultHasher[string]())
	hasher := defaultHasher[string]()

	s, _ := m.getOrCreate("a", hasher)
	n := newNode[string, int]()
	s.child.Store(n)

	if m.removeIfDead("a", hasher, s) {
		t.Fatalf("removeIfDead: should refuse to remove a live slot")
	}

	s.child.Store(nil)
	if !m.removeIfDead("a", hasher, s) {
		t.Fatalf("removeIfDead: should remove a dead slot")
	}
	if got := m.get("a", hasher); got != nil {
		t.Fatalf("get after removeIfDead: expected nil, got %v", got)
	}
}

func TestChildMapIsEmpty(t *testing.T) {
	m := newChildMap[string, int](4, defaultHasher[string]())
	if !m.isEmpty() {
		t.Fatalf("fresh map: expected isEmpty")
	}
	m.getOrCreate("x", defaultHasher[string]())
	if m.isEmpty() {
		t.Fatalf("map with one entry: expected not isEmpty")
	}
}

func TestChildMapForEachVisitsLiveChildrenOnly(t *testing.T) {
	m := newChildMap[string, int](4, defaultHasher[string]())
	hasher := defaultHasher[string]()

	live := newNode[string, int]()
	sLive, _ := m.getOrCreate("live", hasher)
	sLive.child.Store(live)

	m.getOrCreate("dead", hasher) // leaves a nil child, simulating a tombstone

	var visited []string
	m.forEach(func(seg string, child *node[string, int]) bool {
		visited = append(visited, seg)
		return true
	})

	if len(visited) != 1 || visited[0] != "live" {
		t.Fatalf("forEach: got %v, want [live]", visited)
	}
}
