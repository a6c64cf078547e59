package output

import "signup-agent/internal/domain/entity"

// EventBus fans StatusEvents out to every subscriber present at publish
// time. No buffering, no replay: a late subscriber never sees earlier
// events. Implementations must be safe for concurrent publish/subscribe.
type EventBus interface {
	Publish(event entity.StatusEvent)
	Subscribe(handler func(entity.StatusEvent)) (unsubscribe func())
}
