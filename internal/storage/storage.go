package storage

import (
	"sync"
)

// ItemLocks serializes work on the same image base name. Two source files
// that share a base name (IMG_1.jpg and IMG_1.png) write to the same output
// names, so they must never be processed at the same time.
type ItemLocks struct {
	locks map[string]*itemLock
	mu    sync.Mutex
}

type itemLock struct {
	mu      sync.Mutex
	holders int
}

func New() *ItemLocks {
	return &ItemLocks{
		locks: make(map[string]*itemLock),
	}
}

// Lock blocks until baseName is free and returns the matching unlock func.
func (s *ItemLocks) Lock(baseName string) func() {
	s.mu.Lock()
	l, exists := s.locks[baseName]
	if !exists {
		l = &itemLock{}
		s.locks[baseName] = l
	}
	l.holders++
	s.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			s.mu.Lock()
			l.holders--
			if l.holders == 0 {
				delete(s.locks, baseName)
			}
			s.mu.Unlock()
		})
	}
}

// held returns the base names that are locked or waited on.
func (s *ItemLocks) held() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]string, 0, len(s.locks))
	for k := range s.locks {
		result = append(result, k)
	}
	return result
}
