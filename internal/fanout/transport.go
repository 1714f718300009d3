package fanout

import "context"

// Transport moves opaque payloads between publishers and the subscribers of
// a room. Delivery is best effort.
type Transport interface {
	Publish(ctx context.Context, room string, data []byte) error
	Subscribe(room string, handler func(data []byte)) (Subscription, error)
	Close() error
}

type Subscription interface {
	Unsubscribe() error
}
