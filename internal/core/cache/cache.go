package cache

import (
	"sync"
	"time"
)

// Store is an injectable key-value store with explicit TTLs. The scheduler
// uses it for enqueue-time uniqueness windows; implementations may be
// in-memory, distributed, or test doubles.
type Store interface {
	// SetNX stores value under key only if the key is absent or expired.
	// It reports whether the value was stored.
	SetNX(key string, value string, ttl time.Duration) bool
	Get(key string) (string, bool)
	Delete(key string)
}

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is the in-process Store. Expired entries are reaped by a
// janitor goroutine and also skipped on read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	done    chan struct{}
	once    sync.Once
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}
	go s.janitor(time.Minute)
	return s
}

func (s *MemoryStore) SetNX(key string, value string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	s.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
	return true
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}
