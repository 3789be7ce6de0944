package wheel

import "sync"

// Ring is a bounded retention buffer for the most recent telemetry records.
// The oldest record is evicted on overflow. Only the decoder loop appends;
// other goroutines take point-in-time snapshots, so a Snapshot during a
// concurrent append is eventually consistent, not transactional.
type Ring struct {
	mu   sync.RWMutex
	recs []Record
	head int // next write position
	n    int // records retained, <= cap
}

// NewRing creates a ring retaining up to capacity records.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{recs: make([]Record, capacity)}
}

// Append retains rec, evicting the oldest record when at capacity.
func (r *Ring) Append(rec Record) {
	r.mu.Lock()
	r.recs[r.head] = rec
	r.head = (r.head + 1) % len(r.recs)
	if r.n < len(r.recs) {
		r.n++
	}
	r.mu.Unlock()
}

// Last returns the most recently appended record.
func (r *Ring) Last() (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.n == 0 {
		return Record{}, false
	}
	return r.recs[(r.head-1+len(r.recs))%len(r.recs)], true
}

// Len reports the number of retained records.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.n
}

// Snapshot copies the retained records, oldest first.
func (r *Ring) Snapshot() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, r.n)
	for i := 0; i < r.n; i++ {
		out = append(out, r.recs[(r.head-r.n+i+len(r.recs))%len(r.recs)])
	}
	return out
}
