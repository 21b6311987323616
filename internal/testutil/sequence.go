package testutil

import "sync"

// Sequence is a thread-safe monotonic counter for fixture keys.
//
// The first call to Next returns 1. Reset restarts the sequence so that
// the same fixture builder produces identical data on every run.
type Sequence struct {
	mu  sync.Mutex
	seq int64
}

// Next increments and returns the next value.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Current returns the last value handed out, or 0.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset restarts the sequence at 0.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}
