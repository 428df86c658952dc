// Package hub fans out change signals to live collection subscriptions.
package hub

import (
	"log/slog"
	"strings"
	"sync"
)

// Subscription receives a signal on C after every committed change to its
// collection or to a document above it. Signals coalesce: a receiver that is
// busy sees one pending signal, then re-reads the collection.
type Subscription struct {
	C          <-chan struct{}
	signal     chan struct{}
	collection string
}

// Collection returns the subscribed collection path.
func (s *Subscription) Collection() string {
	return s.collection
}

func (s *Subscription) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Hub tracks subscriptions by collection path.
type Hub struct {
	subs   map[string]map[*Subscription]struct{}
	logger *slog.Logger
	mu     sync.RWMutex
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), logger: logger}
}

// Subscribe registers interest in collection. The returned function unsubscribes.
func (h *Hub) Subscribe(collection string) (*Subscription, func()) {
	signal := make(chan struct{}, 1)
	sub := &Subscription{C: signal, signal: signal, collection: collection}

	h.mu.Lock()
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[*Subscription]struct{})
	}
	h.subs[collection][sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Subscription opened", "collection", collection)

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[collection], sub)
			if len(h.subs[collection]) == 0 {
				delete(h.subs, collection)
			}
			h.mu.Unlock()
			h.logger.Debug("Subscription closed", "collection", collection)
		})
	}
}

// Publish signals subscribers of the collection that contains the written document
// and of every collection below that document, whose access may depend on it.
func (h *Hub) Publish(document string) {
	parent := document
	if i := strings.LastIndex(document, "/"); i >= 0 {
		parent = document[:i]
	}
	prefix := document + "/"

	h.mu.RLock()
	defer h.mu.RUnlock()
	for collection, subs := range h.subs {
		if collection != parent && !strings.HasPrefix(collection, prefix) {
			continue
		}
		for sub := range subs {
			sub.notify()
		}
	}
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.subs {
		n += len(subs)
	}
	return n
}
