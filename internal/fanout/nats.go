package fanout

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSTransport maps each room onto the subject "<prefix>.<token>", token
// being the base64url form of the room key. The client
// reconnects forever and resubscribes on its own after a reconnect.
type NATSTransport struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

func NewNATSTransport(url, name, prefix string, logger *zap.Logger) (*NATSTransport, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			logger.Error("nats async error", fields...)
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSTransport{nc: nc, prefix: prefix, logger: logger}, nil
}

func (t *NATSTransport) Subject(room string) string {
	return t.prefix + "." + subjectToken(room)
}

// Publish hands data to the client and flushes so a dead connection is
// reported within ctx rather than buffered silently.
func (t *NATSTransport) Publish(ctx context.Context, room string, data []byte) error {
	if err := t.nc.Publish(t.Subject(room), data); err != nil {
		return err
	}
	return t.nc.FlushWithContext(ctx)
}

func (t *NATSTransport) Subscribe(room string, handler func([]byte)) (Subscription, error) {
	sub, err := t.nc.Subscribe(t.Subject(room), func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (t *NATSTransport) Close() error {
	return t.nc.Drain()
}

// subjectToken encodes a room key as one subject token. Distinct rooms get
// distinct tokens, and the base64url alphabet has no subject separators or
// wildcards.
func subjectToken(room string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(room))
}
