package station

import "sync"

// Stats counts vehicles that paid and left.
type Stats struct {
	mu     sync.Mutex
	served int
}

// Increment records one served vehicle and returns the new count.
func (s *Stats) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.served++
	return s.served
}

// Served returns the number of served vehicles.
func (s *Stats) Served() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.served
}
