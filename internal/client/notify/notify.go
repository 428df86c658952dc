// Package notify keeps the list of live user-facing notifications,
// including conflict alerts about concurrent edits by other users.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification.
type Kind string

const (
	KindInfo     Kind = "info"
	KindSuccess  Kind = "success"
	KindWarning  Kind = "warning"
	KindError    Kind = "error"
	KindConflict Kind = "conflict"
)

// Infinite keeps a notification until it is dismissed.
const Infinite time.Duration = -1

const (
	defaultMaxLive  = 5
	defaultDuration = 5 * time.Second
)

// Action is an optional button attached to a notification.
type Action struct {
	Handler func()
	Label   string
}

// Event is a single notification.
type Event struct {
	CreatedAt time.Time
	Action    *Action
	ID        string
	Kind      Kind
	Title     string
	Message   string
	User      string // кто внес конфликтующее изменение
	Duration  time.Duration
}

// Timer is the part of *time.Timer the service needs.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for auto-dismissal.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Options configures a Service.
type Options struct {
	Clock           Clock
	Logger          *slog.Logger
	MaxLive         int
	DefaultDuration time.Duration
}

// Service holds live notifications, newest first.
type Service struct {
	clock    Clock
	logger   *slog.Logger
	timers   map[string]Timer
	subs     map[int]func([]Event)
	live     []Event
	maxLive  int
	duration time.Duration
	nextSub  int
	mu       sync.Mutex
}

// New creates a notification service.
func New(opts Options) *Service {
	s := &Service{
		clock:    opts.Clock,
		logger:   opts.Logger,
		timers:   make(map[string]Timer),
		subs:     make(map[int]func([]Event)),
		maxLive:  opts.MaxLive,
		duration: opts.DefaultDuration,
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxLive <= 0 {
		s.maxLive = defaultMaxLive
	}
	if s.duration <= 0 {
		s.duration = defaultDuration
	}
	return s
}

// Post adds ev and returns its id. The oldest finite entries are evicted first
// when the list is over capacity.
func (s *Service) Post(ev Event) string {
	ev.ID = uuid.New().String()
	if ev.Duration == 0 {
		ev.Duration = s.duration
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.clock.Now()
	}

	s.mu.Lock()
	s.live = append([]Event{ev}, s.live...)
	for len(s.live) > s.maxLive {
		s.evictLocked()
	}
	if ev.Duration != Infinite && s.indexLocked(ev.ID) >= 0 {
		id := ev.ID
		s.timers[id] = s.clock.AfterFunc(ev.Duration, func() { s.Dismiss(id) })
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snapshot)
	return ev.ID
}

// evictLocked drops the oldest finite entry, or the oldest entry when all are infinite.
// A finite entry just posted loses to live infinite ones.
func (s *Service) evictLocked() {
	victim := len(s.live) - 1
	for i := len(s.live) - 1; i >= 0; i-- {
		if s.live[i].Duration != Infinite {
			victim = i
			break
		}
	}
	s.removeLocked(victim)
}

func (s *Service) indexLocked(id string) int {
	for i, ev := range s.live {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) removeLocked(i int) {
	id := s.live[i].ID
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.live = append(s.live[:i], s.live[i+1:]...)
}

// Dismiss removes the notification; false when it is not live.
func (s *Service) Dismiss(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.removeLocked(idx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snapshot)
	return true
}

// DismissAll clears every notification.
func (s *Service) DismissAll() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.live = nil
	s.mu.Unlock()

	s.emit(nil)
}

// Live returns the live notifications, newest first.
func (s *Service) Live() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe calls fn with the full list after every change.
func (s *Service) Subscribe(fn func([]Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) snapshotLocked() []Event {
	return append([]Event(nil), s.live...)
}

func (s *Service) emit(events []Event) {
	s.mu.Lock()
	fns := make([]func([]Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		s.safeCall(fn, events)
	}
}

// safeCall isolates the service from panicking observers.
func (s *Service) safeCall(fn func([]Event), events []Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Notification observer panicked", "panic", r)
		}
	}()
	fn(events)
}
