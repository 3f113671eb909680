package interfaces

import "context"

// EventPublisher emits domain events after a commit.
type EventPublisher interface {
	Publish(ctx context.Context, name string, key string, event any) error
}
