package services

import (
	"context"

	"github.com/confly-app/apiserver/types"
)

// EventPublisher pushes state-change events to connected clients. Delivery
// is at-most-once: publishing never fails from the caller's point of view,
// and services emit events only after the database commit succeeded.
type EventPublisher interface {
	PublishSession(ctx context.Context, sessionID string, event types.Event)
	PublishAll(ctx context.Context, event types.Event)
}
