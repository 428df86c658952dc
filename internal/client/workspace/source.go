// Package workspace tracks the active workspace the user is working in.
package workspace

import "sync"

//go:generate moq -out source_mock.go . Source

// Source reports the active workspace and its changes. "" means none selected.
type Source interface {
	Current() string
	Watch(fn func(workspace string)) (cancel func())
}

// watchers is the subscriber list shared by the sources.
type watchers struct {
	fns  map[int]func(string)
	next int
	mu   sync.Mutex
}

func (w *watchers) add(fn func(string)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fns == nil {
		w.fns = make(map[int]func(string))
	}
	id := w.next
	w.next++
	w.fns[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.fns, id)
		w.mu.Unlock()
	}
}

func (w *watchers) notify(workspace string) {
	w.mu.Lock()
	fns := make([]func(string), 0, len(w.fns))
	for _, fn := range w.fns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(workspace)
	}
}

// Static is an in-memory Source changed with Set.
type Static struct {
	subs    watchers
	current string
	mu      sync.RWMutex
}

// NewStatic returns a source starting at workspace.
func NewStatic(workspace string) *Static {
	return &Static{current: workspace}
}

func (s *Static) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set switches the active workspace and notifies watchers when it changed.
func (s *Static) Set(workspace string) {
	s.mu.Lock()
	changed := s.current != workspace
	s.current = workspace
	s.mu.Unlock()

	if changed {
		s.subs.notify(workspace)
	}
}

func (s *Static) Watch(fn func(string)) func() {
	return s.subs.add(fn)
}
