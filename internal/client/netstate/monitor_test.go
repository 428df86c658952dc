package netstate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PingerMock is a mock implementation of Pinger.
type PingerMock struct {
	HealthFunc func(ctx context.Context) error
	calls      struct {
		Health []struct {
			Ctx context.Context
		}
	}
	lockHealth sync.RWMutex
}

func (mock *PingerMock) Health(ctx context.Context) error {
	if mock.HealthFunc == nil {
		panic("PingerMock.HealthFunc: method is nil but Pinger.Health was just called")
	}
	mock.lockHealth.Lock()
	mock.calls.Health = append(mock.calls.Health, struct{ Ctx context.Context }{Ctx: ctx})
	mock.lockHealth.Unlock()
	return mock.HealthFunc(ctx)
}

func (mock *PingerMock) HealthCalls() []struct{ Ctx context.Context } {
	mock.lockHealth.RLock()
	defer mock.lockHealth.RUnlock()
	return mock.calls.Health
}

// recordingSink запоминает все переходы
type recordingSink struct {
	states []bool
	mu     sync.Mutex
}

func (s *recordingSink) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, online)
}

func (s *recordingSink) States() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.states...)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func scripted(results ...error) *PingerMock {
	var mu sync.Mutex
	i := 0
	return &PingerMock{HealthFunc: func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(results) {
			return results[len(results)-1]
		}
		err := results[i]
		i++
		return err
	}}
}

func TestMonitor_Check(t *testing.T) {
	down := errors.New("connection refused")
	ctx := context.Background()

	tests := []struct {
		name    string
		results []error
		want    []bool
		final   bool
	}{
		{name: "first success reports online", results: []error{nil, nil}, want: []bool{true}, final: true},
		{name: "single failure is tolerated", results: []error{nil, down, nil}, want: []bool{true}, final: true},
		{name: "threshold reached goes offline", results: []error{nil, down, down, down}, want: []bool{true, false}, final: false},
		{name: "recovery after outage", results: []error{down, down, nil}, want: []bool{false, true}, final: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			m := New(scripted(tt.results...), sink, Config{FailureThreshold: 2}, discard)

			var got bool
			for range tt.results {
				got = m.Check(ctx)
			}
			assert.Equal(t, tt.final, got)
			assert.Equal(t, tt.want, sink.States())
			assert.Equal(t, tt.final, m.Online())
		})
	}
}

func TestMonitor_ProbeTimeout(t *testing.T) {
	pinger := &PingerMock{HealthFunc: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	sink := &recordingSink{}
	m := New(pinger, sink, Config{Timeout: 10 * time.Millisecond, FailureThreshold: 1}, discard)

	assert.False(t, m.Check(context.Background()))
	assert.Equal(t, []bool{false}, sink.States())
}

func TestMonitor_CancelledCheckKeepsState(t *testing.T) {
	sink := &recordingSink{}
	m := New(scripted(nil), sink, Config{FailureThreshold: 1}, discard)
	require.True(t, m.Check(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.pinger = &PingerMock{HealthFunc: func(ctx context.Context) error { return ctx.Err() }}

	assert.True(t, m.Check(ctx))
	assert.Equal(t, []bool{true}, sink.States())
}

func TestMonitor_Run(t *testing.T) {
	pinger := scripted(nil, errors.New("down"))
	sink := &recordingSink{}
	m := New(pinger, sink, Config{Interval: 5 * time.Millisecond, FailureThreshold: 1}, discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		states := sink.States()
		return len(states) == 2 && states[0] && !states[1]
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.GreaterOrEqual(t, len(pinger.HealthCalls()), 2)
}
