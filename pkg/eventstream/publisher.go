package eventstream

import "context"

// Publisher publishes pipeline events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
