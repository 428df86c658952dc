package cli

import (
	"sync"

	"github.com/iudanet/plansync/internal/client/notify"
)

// Notifications is the part of notify.Service the CLI follows.
type Notifications interface {
	Subscribe(fn func([]notify.Event)) func()
}

// FollowNotifications prints every new notification once. Call the result to stop.
func (c *Cli) FollowNotifications(n Notifications) func() {
	var mu sync.Mutex
	seen := make(map[string]bool)

	return n.Subscribe(func(events []notify.Event) {
		mu.Lock()
		defer mu.Unlock()
		// список идет от новых к старым, печатаем в хронологическом порядке
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			c.io.Printf("[%s] %s\n", ev.Kind, ev.Message)
		}
	})
}
