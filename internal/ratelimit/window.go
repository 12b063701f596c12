package ratelimit

import (
	"time"
)

// ==============================================
// SLIDING WINDOW COUNTER
// ==============================================

// Window holds the admission timestamps for one key, oldest first.
// Timestamps are inserted in non-decreasing order, so eviction is a
// FIFO trim from the front. Not safe for concurrent use on its own;
// MemoryStore guards each Window with its shard lock.
type Window struct {
	stamps []time.Time
}

// Admit evicts entries outside the trailing window, then admits the
// arrival iff fewer than limit entries remain. A rejected arrival is
// not recorded. limit <= 0 always rejects.
func (w *Window) Admit(arrival time.Time, size time.Duration, limit int) bool {
	w.evict(arrival, size)

	if len(w.stamps) >= limit {
		return false
	}

	w.stamps = append(w.stamps, arrival)
	return true
}

// Record appends the arrival unconditionally, still evicting first so
// the retained-range invariant holds after every call.
func (w *Window) Record(arrival time.Time, size time.Duration) {
	w.evict(arrival, size)
	w.stamps = append(w.stamps, arrival)
}

// Len returns the number of retained timestamps.
func (w *Window) Len() int {
	return len(w.stamps)
}

// evict drops every timestamp t with t <= arrival - size.
func (w *Window) evict(arrival time.Time, size time.Duration) {
	cutoff := arrival.Add(-size)

	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
