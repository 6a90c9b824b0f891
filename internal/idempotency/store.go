package idempotency

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Response is a replayable copy of a completed write.
type Response struct {
	StatusCode  int
	Headers     map[string]string
	Body        []byte
	Fingerprint string
	CachedAt    time.Time
}

// Store keeps replayable responses keyed by scoped idempotency key.
type Store interface {
	Get(ctx context.Context, key string) (*Response, bool)
	Set(ctx context.Context, key string, response *Response, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DefaultMaxEntries bounds the in-memory cache.
const DefaultMaxEntries = 10000

// MemoryStore is a size-bounded LRU with per-entry expiry. A background
// sweep drops expired entries until Close is called.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type entry struct {
	key       string
	response  *Response
	expiresAt time.Time
}

// NewMemoryStore creates a store holding at most maxSize responses. A
// non-positive size selects DefaultMaxEntries; a non-positive sweep interval
// disables the background sweep.
func NewMemoryStore(maxSize int, sweep time.Duration) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}
	s := &MemoryStore{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if sweep > 0 {
		go s.sweepLoop(sweep)
	} else {
		close(s.done)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Response, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if now.After(e.expiresAt) {
		s.removeLocked(el)
		return nil, false
	}
	s.lru.MoveToFront(el)
	return e.response, true
}

func (s *MemoryStore) Set(_ context.Context, key string, response *Response, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		e.response = response
		e.expiresAt = expiresAt
		s.lru.MoveToFront(el)
		return nil
	}

	for len(s.entries) >= s.maxSize {
		oldest := s.lru.Back()
		if oldest == nil {
			break
		}
		s.removeLocked(oldest)
	}

	s.entries[key] = s.lru.PushFront(&entry{key: key, response: response, expiresAt: expiresAt})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[key]; ok {
		s.removeLocked(el)
	}
	return nil
}

// Len reports the number of cached responses, expired ones included until
// they are swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the background sweep. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *MemoryStore) removeLocked(el *list.Element) {
	s.lru.Remove(el)
	delete(s.entries, el.Value.(*entry).key)
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry).expiresAt) {
			s.removeLocked(el)
		}
		el = prev
	}
}
