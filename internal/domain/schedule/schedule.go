// Package schedule provides keyed, cancellable one-shot timers driven by the
// caller's clock. Timers never fire on their own goroutine: the owner calls
// Fire from its loop, so callbacks run on the single writer.
package schedule

import (
	"sort"
	"time"
)

// Task runs when its deadline has passed. now is the time Fire was called with.
type Task func(now time.Time)

type entry struct {
	key string
	at  time.Time
	seq uint64
	run Task
}

// Scheduler holds pending timers keyed by name. Scheduling an existing key
// replaces the previous timer. Not safe for concurrent use.
type Scheduler struct {
	entries map[string]entry
	seq     uint64
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{entries: make(map[string]entry)}
}

// Schedule arms a one-shot timer for key at the given time.
func (s *Scheduler) Schedule(key string, at time.Time, run Task) {
	s.seq++
	s.entries[key] = entry{key: key, at: at, seq: s.seq, run: run}
}

// Cancel disarms the timer for key. It reports whether one was pending.
func (s *Scheduler) Cancel(key string) bool {
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// CancelAll disarms every pending timer.
func (s *Scheduler) CancelAll() {
	clear(s.entries)
}

// Pending reports whether a timer for key is armed.
func (s *Scheduler) Pending(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of armed timers.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// Fire runs every timer whose deadline is at or before now, earliest first,
// and returns how many ran. Timers armed by a running task wait for the next
// Fire call.
func (s *Scheduler) Fire(now time.Time) int {
	var due []entry
	for _, e := range s.entries {
		if !e.at.After(now) {
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return 0
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].at.Equal(due[j].at) {
			return due[i].at.Before(due[j].at)
		}
		return due[i].seq < due[j].seq
	})
	ran := 0
	for _, e := range due {
		// an earlier task may have cancelled or re-armed this key
		if cur, ok := s.entries[e.key]; !ok || cur.seq != e.seq {
			continue
		}
		delete(s.entries, e.key)
		e.run(now)
		ran++
	}
	return ran
}
