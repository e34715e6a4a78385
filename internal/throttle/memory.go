// ABOUTME: In-process Limiter with fixed cooldown windows and bounded size
// ABOUTME: Used when no Redis address is configured

package throttle

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxKeys bounds how many keys a MemoryLimiter tracks.
const DefaultMaxKeys = 10000

// window is one key's failure count since its first failure.
type window struct {
	started time.Time
	count   int
	element *list.Element
}

// MemoryLimiter keeps failure counts in memory. When full, the key whose
// window started first is evicted.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	order   *list.List // keys by window start, oldest at front
	cfg     Config
	maxKeys int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

var _ Limiter = (*MemoryLimiter)(nil)

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithMaxKeys overrides DefaultMaxKeys.
func WithMaxKeys(n int) MemoryOption {
	return func(l *MemoryLimiter) {
		if n > 0 {
			l.maxKeys = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) { l.now = now }
}

// NewMemory creates a MemoryLimiter. A background goroutine drops expired
// windows until Close is called.
func NewMemory(cfg Config, opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		order:   list.New(),
		cfg:     cfg.withDefaults(),
		maxKeys: DefaultMaxKeys,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.cleanup()
	return l
}

// Check returns ErrRateLimited while the key's count is at the maximum.
func (l *MemoryLimiter) Check(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.liveLocked(key)
	if w != nil && w.count >= l.cfg.MaxAttempts {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failure, opening a new window if none is live.
func (l *MemoryLimiter) Fail(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.liveLocked(key)
	if w == nil {
		if len(l.windows) >= l.maxKeys {
			l.evictOldest()
		}
		w = &window{started: l.now(), element: l.order.PushBack(key)}
		l.windows[key] = w
	}
	w.count++

	if w.count >= l.cfg.MaxAttempts {
		return ErrRateLimited
	}
	return nil
}

// Reset forgets the key.
func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(key)
	return nil
}

// liveLocked returns the key's window, dropping it if expired. Must be called with mu held.
func (l *MemoryLimiter) liveLocked(key string) *window {
	w, ok := l.windows[key]
	if !ok {
		return nil
	}
	if l.now().Sub(w.started) >= l.cfg.Cooldown {
		l.removeLocked(key)
		return nil
	}
	return w
}

func (l *MemoryLimiter) removeLocked(key string) {
	if w, ok := l.windows[key]; ok {
		l.order.Remove(w.element)
		delete(l.windows, key)
	}
}

// evictOldest removes the oldest window. Must be called with mu held.
func (l *MemoryLimiter) evictOldest() {
	front := l.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	l.removeLocked(key)
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.runCleanup()
		case <-l.done:
			return
		}
	}
}

// runCleanup drops expired windows. Windows are ordered by start, so it stops
// at the first live one.
func (l *MemoryLimiter) runCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for e := l.order.Front(); e != nil; {
		next := e.Next()
		key, _ := e.Value.(string)
		if now.Sub(l.windows[key].started) < l.cfg.Cooldown {
			break
		}
		l.removeLocked(key)
		e = next
	}
}

// Len returns the number of tracked keys, including expired ones not yet cleaned up.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (l *MemoryLimiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		close(l.done)
		l.closed = true
	}
	return nil
}
