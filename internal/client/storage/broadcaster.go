package storage

import (
	"log/slog"
	"sync"
)

// Broadcaster fans cache changes out to watchers.
// Callbacks run outside the lock, in the goroutine that published.
// A panicking watcher is logged and does not stop delivery to the rest.
type Broadcaster struct {
	// Logger reports panicking watchers; nil means slog.Default()
	Logger *slog.Logger
	subs   map[int]func(Change)
	mu     sync.Mutex
	next   int
}

// Subscribe registers fn and returns a function removing it.
func (b *Broadcaster) Subscribe(fn func(Change)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[int]func(Change))
	}
	id := b.next
	b.next++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers c to every current watcher.
func (b *Broadcaster) Publish(c Change) {
	b.mu.Lock()
	fns := make([]func(Change), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		b.safeCall(fn, c)
	}
}

func (b *Broadcaster) safeCall(fn func(Change), c Change) {
	defer func() {
		if r := recover(); r != nil {
			logger := b.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("Cache watcher panicked", "key", c.Key, "panic", r)
		}
	}()
	fn(c)
}
