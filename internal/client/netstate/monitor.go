// Package netstate turns periodic server health probes into connectivity transitions.
package netstate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultInterval  = 15 * time.Second
	defaultTimeout   = 5 * time.Second
	defaultThreshold = 2
)

//go:generate moq -out pinger_mock.go . Pinger

// Pinger probes the server. api.Client implements it.
type Pinger interface {
	Health(ctx context.Context) error
}

// Sink receives connectivity transitions. sync.Orchestrator implements it.
type Sink interface {
	SetOnline(online bool)
}

// Config tunes the probe loop.
type Config struct {
	// Interval between probes
	Interval time.Duration
	// Timeout of a single probe
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failed probes before going offline
	FailureThreshold int
}

// Monitor probes a Pinger and reports online/offline transitions to a Sink.
// A single success brings the sink back online.
type Monitor struct {
	pinger   Pinger
	sink     Sink
	logger   *slog.Logger
	cfg      Config
	failures int
	online   bool
	known    bool
	mu       sync.Mutex
}

// New creates a monitor. Zero config values fall back to defaults.
func New(pinger Pinger, sink Sink, cfg Config, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{pinger: pinger, sink: sink, cfg: cfg, logger: logger}
}

// Run probes immediately and then every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one probe and returns the resulting connectivity state.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	err := m.pinger.Health(probeCtx)
	cancel()

	if ctx.Err() != nil {
		// отмена снаружи ничего не говорит о сети
		return m.Online()
	}

	m.mu.Lock()
	var changed bool
	if err == nil {
		m.failures = 0
		changed = !m.known || !m.online
		m.online = true
	} else {
		m.failures++
		if m.failures >= m.cfg.FailureThreshold {
			changed = !m.known || m.online
			m.online = false
		}
	}
	if changed {
		m.known = true
	}
	online := m.online
	failures := m.failures
	m.mu.Unlock()

	if err != nil {
		m.logger.Debug("Health probe failed", "failures", failures, "error", err)
	}
	if changed {
		m.logger.Info("Connectivity changed", "online", online)
		m.sink.SetOnline(online)
	}
	return online
}

// Online returns the last reported state (false before the first transition).
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}
