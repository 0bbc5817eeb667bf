package offer

import "sync"

// Tracker decides whether a newly analyzed offer is new relative to the last
// accepted one. The first valid offer is always accepted; after that, only a
// fingerprint change is. Rejection leaves the tracker untouched.
type Tracker struct {
	mu   sync.Mutex
	last Fingerprint
	seen bool
}

// ShouldAccept reports whether the offer is valid and distinct from the last
// accepted one. It does not record anything; call RecordAccepted once the
// offer has actually been taken.
func (t *Tracker) ShouldAccept(o Offer) bool {
	if !o.Valid {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.seen || o.Fingerprint() != t.last
}

// RecordAccepted remembers the offer's fingerprint as the last accepted one.
func (t *Tracker) RecordAccepted(o Offer) {
	t.mu.Lock()
	t.last = o.Fingerprint()
	t.seen = true
	t.mu.Unlock()
}

// Reset forgets the last accepted fingerprint. Used on session teardown so a
// restarted session alerts on the first offer it sees.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.last = ""
	t.seen = false
	t.mu.Unlock()
}
