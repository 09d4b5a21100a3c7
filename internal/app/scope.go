package app

import "sync"

// scope collects cancel funcs so a group of background tasks can be torn down
// together. Funcs run in reverse order of registration.
type scope struct {
	mu      sync.Mutex
	cancels []func()
}

func (s *scope) add(cancel func()) {
	if cancel == nil {
		return
	}
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()
}

// close runs every registered func once and empties the scope.
func (s *scope) close() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()
	for i := len(cancels) - 1; i >= 0; i-- {
		cancels[i]()
	}
}

func (s *scope) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels) == 0
}
