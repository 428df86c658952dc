// Package session supplies the current identity to the sync layer.
package session

import "sync"

//go:generate moq -out provider_mock.go . Provider

// Provider exposes the current identity and a signal closed once the session
// state is known (restored, logged in, or known to be absent).
type Provider interface {
	// Identity returns the user id, false when nobody is signed in
	Identity() (string, bool)

	// Ready is closed once Identity can be trusted
	Ready() <-chan struct{}
}

// Static is a Provider with a fixed identity, ready from the start.
type Static struct {
	ready chan struct{}
	id    string
}

// NewStatic returns a ready provider for id ("" means anonymous).
func NewStatic(id string) *Static {
	ready := make(chan struct{})
	close(ready)
	return &Static{id: id, ready: ready}
}

func (s *Static) Identity() (string, bool) { return s.id, s.id != "" }

func (s *Static) Ready() <-chan struct{} { return s.ready }

// readySignal closes its channel exactly once.
type readySignal struct {
	ch   chan struct{}
	once sync.Once
}

func newReadySignal() *readySignal {
	return &readySignal{ch: make(chan struct{})}
}

func (r *readySignal) fire() {
	r.once.Do(func() { close(r.ch) })
}
