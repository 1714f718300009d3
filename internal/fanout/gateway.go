// Package fanout pushes persisted messages to the live subscribers of a room.
// It is not the system of record: a subscriber that misses a push reads the
// message from history.
package fanout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultPublishTimeout = 2 * time.Second

type Gateway struct {
	transport Transport
	timeout   time.Duration
	logger    *zap.Logger
}

func NewGateway(transport Transport, timeout time.Duration, logger *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Gateway{transport: transport, timeout: timeout, logger: logger}
}

// Publish makes one delivery attempt of ev to room, bounded by the publish
// timeout.
func (g *Gateway) Publish(ctx context.Context, room string, ev event.WsEvent) error {
	if _, err := ParseRoom(room); err != nil {
		return err
	}
	ev.Room = room

	data, err := json.Marshal(ev)
	if err != nil {
		return pkgerrors.Wrap(err, "fanout: encode event")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.transport.Publish(ctx, room, data); err != nil {
		return pkgerrors.Wrapf(err, "fanout: publish to %s", room)
	}
	return nil
}

// Subscribe calls handler for every event published to room until the
// returned subscription is cancelled. Undecodable payloads and events whose
// room is not the subscribed one are dropped.
func (g *Gateway) Subscribe(room string, handler func(event.WsEvent)) (Subscription, error) {
	if _, err := ParseRoom(room); err != nil {
		return nil, err
	}

	return g.transport.Subscribe(room, func(data []byte) {
		var ev event.WsEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			g.logger.Warn("dropping undecodable fan-out payload",
				zap.String("room", room),
				zap.Error(err),
			)
			return
		}
		if ev.Room != room {
			g.logger.Warn("dropping fan-out event addressed to another room",
				zap.String("room", room),
				zap.String("event_room", ev.Room),
			)
			return
		}
		handler(ev)
	})
}

func (g *Gateway) Close() error {
	return g.transport.Close()
}
