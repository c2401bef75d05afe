// pkg/trie/epoch.go
package trie

import (
	"sync"
	"sync/atomic"
)

// domain provides epoch-based memory reclamation for the trie's node
// graph. It tracks reader epochs to determine when nodes, child maps, and
// values unlinked by a prune are safe to drop the last reference to.
//
// Adapted from this module's ancestor CoW B+ tree reclaimer
// (pkg/cowbtree/epoch.go, EpochManager): the global epoch is a
// monotonically increasing counter, readers record the epoch they
// entered at and decrement an active flag on leave, and retired objects
// are bucketed by the epoch they were retired in. A retired bucket is
// only dropped once no active reader could have been pinned at or before
// it. Unlike the B+ tree's single *CowNode payload, this domain retires
// heterogeneous objects (nodes, child maps, values), so retired entries
// are held as interface{} — Go's GC does the actual freeing once the
// domain drops its own reference.
type domain struct {
	globalEpoch uint64

	readers sync.Map // readerID -> *readerState

	retiredMu sync.Mutex
	retired   map[uint64][]any

	nextReaderID uint64

	reclaimedTotal int64
}

type readerState struct {
	epoch  uint64
	active int32
}

func newDomain() *domain {
	return &domain{
		globalEpoch: 1, // epoch 0 means "unset"
		retired:     make(map[uint64][]any),
	}
}

// guardHandle is the domain-side state behind a Guard, the stack-scoped
// handle declaring that the holder may be
// observing references into the trie; it pins the reclamation epoch for
// its entire lifetime. Every reference returned by an operation
// performed through a Guard is valid only while that Guard is alive.
//
// Guards are cheap to acquire and must not be held across blocking waits
// or long-running operations — doing so stalls reclamation for every
// other writer in the trie, not just the holder.
type guardHandle struct {
	dom      *domain
	state    *readerState
	readerID uint64
	released int32
}

// enter begins a read/write operation, recording the current epoch.
func (d *domain) enter() *guardHandle {
	readerID := atomic.AddUint64(&d.nextReaderID, 1)
	state := &readerState{}

	state.epoch = atomic.LoadUint64(&d.globalEpoch)
	atomic.StoreInt32(&state.active, 1)

	d.readers.Store(readerID, state)

	return &guardHandle{dom: d, state: state, readerID: readerID}
}

// leave ends the operation, allowing epoch advancement to eventually
// reclaim anything retired at or after the epoch this guard entered at.
// Safe to call more than once; only the first call has effect.
func (g *guardHandle) leave() {
	if g == nil || !atomic.CompareAndSwapInt32(&g.released, 0, 1) {
		return
	}
	atomic.StoreInt32(&g.state.active, 0)
	g.dom.readers.Delete(g.readerID)
}

// advance increments the global epoch. Called after a mutation has been
// made visible (a root CAS, a child-slot CAS) so that objects retired in
// the epoch just closed become eligible for reclamation once every
// reader pinned before the advance has left.
func (d *domain) advance() uint64 {
	return atomic.AddUint64(&d.globalEpoch, 1)
}

// retire enqueues obj for destruction once no guard pinned at or before
// the current epoch remains active. obj is typically a *node[S,V], a
// *childMap[S,V], or a *V unlinked by an insert-overwrite or a remove.
func (d *domain) retire(obj any) {
	if obj == nil {
		return
	}
	epoch := atomic.LoadUint64(&d.globalEpoch)
	d.retiredMu.Lock()
	d.retired[epoch] = append(d.retired[epoch], obj)
	d.retiredMu.Unlock()
}

// tryReclaim drops references to every retired object whose epoch is
// strictly before the minimum epoch pinned by any active guard,
// returning the number of objects dropped. This is opportunistic: Go's
// garbage collector performs the actual free once the domain's map no
// longer references the object.
func (d *domain) tryReclaim() int {
	minEpoch := d.minActiveEpoch()

	d.retiredMu.Lock()
	defer d.retiredMu.Unlock()

	reclaimed := 0
	for epoch, objs := range d.retired {
		if epoch < minEpoch {
			reclaimed += len(objs)
			delete(d.retired, epoch)
		}
	}
	if reclaimed > 0 {
		atomic.AddInt64(&d.reclaimedTotal, int64(reclaimed))
	}
	return reclaimed
}

func (d *domain) minActiveEpoch() uint64 {
	minEpoch := atomic.LoadUint64(&d.globalEpoch)
	d.readers.Range(func(_, v any) bool {
		st := v.(*readerState)
		if atomic.LoadInt32(&st.active) == 1 && st.epoch < minEpoch {
			minEpoch = st.epoch
		}
		return true
	})
	return minEpoch
}

// pendingCount returns the number of retired objects awaiting reclamation.
func (d *domain) pendingCount() int {
	d.retiredMu.Lock()
	defer d.retiredMu.Unlock()
	n := 0
	for _, objs := range d.retired {
		n += len(objs)
	}
	return n
}

// activeReaderCount returns the number of guards currently pinned.
func (d *domain) activeReaderCount() int {
	n := 0
	d.readers.Range(func(_, v any) bool {
		if atomic.LoadInt32(&v.(*readerState).active) == 1 {
			n++
		}
		return true
	})
	return n
}

func (d *domain) reclaimedCount() int64 {
	return atomic.LoadInt64(&d.reclaimedTotal)
}

// quiesce advances the epoch and reclaims until no guard remains active.
// Used by Trie.Close to drop every retired reference before returning.
func (d *domain) quiesce() {
	for d.activeReaderCount() > 0 {
		d.advance()
		d.tryReclaim()
	}
	d.advance()
	d.tryReclaim()
}
