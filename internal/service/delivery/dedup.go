package delivery

import "sync"

// dedupRing remembers the last capacity notification IDs seen on a
// subscription. Membership is exact; once full, the oldest entry is
// evicted FIFO.
type dedupRing struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
	ring []uint64
	next int
	full bool
}

func newDedupRing(capacity int) *dedupRing {
	if capacity <= 0 {
		capacity = 100
	}
	return &dedupRing{
		seen: make(map[uint64]struct{}, capacity),
		ring: make([]uint64, capacity),
	}
}

// observe records id and reports whether this is its first sighting.
func (r *dedupRing) observe(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[id]; ok {
		return false
	}

	if r.full {
		delete(r.seen, r.ring[r.next])
	}

	r.seen[id] = struct{}{}
	r.ring[r.next] = id
	r.next++
	if r.next == len(r.ring) {
		r.next = 0
		r.full = true
	}
	return true
}

// len returns the number of remembered IDs.
func (r *dedupRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
