package notify

import "time"

// Option adjusts a preset notification.
type Option func(*Event)

// WithTitle sets the title.
func WithTitle(title string) Option {
	return func(e *Event) { e.Title = title }
}

// WithDuration overrides the display time; Infinite keeps it until dismissed.
func WithDuration(d time.Duration) Option {
	return func(e *Event) { e.Duration = d }
}

// WithAction attaches a button.
func WithAction(label string, handler func()) Option {
	return func(e *Event) { e.Action = &Action{Label: label, Handler: handler} }
}

// WithUser records who made the change being reported.
func WithUser(user string) Option {
	return func(e *Event) { e.User = user }
}

func (s *Service) post(kind Kind, message string, defaults time.Duration, opts []Option) string {
	ev := Event{Kind: kind, Message: message, Duration: defaults}
	for _, opt := range opts {
		opt(&ev)
	}
	return s.Post(ev)
}

// Success posts a success notification.
func (s *Service) Success(message string, opts ...Option) string {
	return s.post(KindSuccess, message, 0, opts)
}

// Error posts an error notification.
func (s *Service) Error(message string, opts ...Option) string {
	return s.post(KindError, message, 0, opts)
}

// Warning posts a warning notification.
func (s *Service) Warning(message string, opts ...Option) string {
	return s.post(KindWarning, message, 0, opts)
}

// Info posts an informational notification.
func (s *Service) Info(message string, opts ...Option) string {
	return s.post(KindInfo, message, 0, opts)
}

// Conflict reports a concurrent edit by another user. It stays until dismissed
// unless a duration is given.
func (s *Service) Conflict(message string, opts ...Option) string {
	return s.post(KindConflict, message, Infinite, append([]Option{WithTitle("Conflict detected")}, opts...))
}

// Notify is the sink used by the sync layer.
func (s *Service) Notify(message string, kind Kind) {
	switch kind {
	case KindConflict:
		s.Conflict(message)
	default:
		s.post(kind, message, 0, nil)
	}
}
