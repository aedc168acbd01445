package realtime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/confly-app/apiserver/internal/mq"
	"github.com/confly-app/apiserver/types"
)

const (
	attrOrigin  = "origin"
	attrSession = "session"
	attrScope   = "scope"

	scopeSession = "session"
	scopeAll     = "all"
)

// Broadcaster serialises events, delivers them to the local hub, and, when a
// broker backend is configured, mirrors them through the broker so the hubs
// of other server instances replay them. Broker delivery inherits the same
// at-most-once contract as the hub itself.
type Broadcaster struct {
	hub        *Hub
	broker     mq.Backend
	channel    string
	instanceID string
	logger     *slog.Logger
}

// NewBroadcaster constructs a Broadcaster. broker may be nil for
// single-instance deployments; events then stay in-process.
func NewBroadcaster(hub *Hub, broker mq.Backend, channel string, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:        hub,
		broker:     broker,
		channel:    channel,
		instanceID: newInstanceID(),
		logger:     logger,
	}
}

// PublishSession fans an event out to the session's subscribers.
func (b *Broadcaster) PublishSession(ctx context.Context, sessionID string, event types.Event) {
	frame, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("marshal event", "type", event.Type, "error", err)
		return
	}
	b.hub.Publish(sessionID, frame)
	b.mirror(ctx, frame, map[string]string{
		attrOrigin:  b.instanceID,
		attrScope:   scopeSession,
		attrSession: sessionID,
	})
}

// PublishAll fans an event out to every session's subscribers. Used for
// user-scoped events (display-name changes) that clients filter by author id.
func (b *Broadcaster) PublishAll(ctx context.Context, event types.Event) {
	frame, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("marshal event", "type", event.Type, "error", err)
		return
	}
	b.hub.Broadcast(frame)
	b.mirror(ctx, frame, map[string]string{
		attrOrigin: b.instanceID,
		attrScope:  scopeAll,
	})
}

func (b *Broadcaster) mirror(ctx context.Context, frame []byte, attrs map[string]string) {
	if b.broker == nil {
		return
	}
	if _, err := b.broker.Publish(ctx, b.channel, frame, attrs); err != nil {
		// Best effort: local clients already got the event, remote hubs
		// reconcile on the next full fetch.
		b.logger.Warn("broker publish failed", "error", err)
	}
}

// Run consumes mirrored events from the broker and replays them into the
// local hub, skipping the ones this instance published itself. Blocks until
// ctx is cancelled; no-op without a broker.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.broker == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return b.broker.Subscribe(ctx, b.channel, func(ctx context.Context, msg mq.Message) error {
		if msg.Attributes[attrOrigin] == b.instanceID {
			return nil
		}
		switch msg.Attributes[attrScope] {
		case scopeAll:
			b.hub.Broadcast(msg.Data)
		default:
			if sessionID := msg.Attributes[attrSession]; sessionID != "" {
				b.hub.Publish(sessionID, msg.Data)
			}
		}
		return nil
	})
}

func newInstanceID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "local"
	}
	return hex.EncodeToString(buf[:])
}
