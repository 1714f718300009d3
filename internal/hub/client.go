package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one socket joined to one room.
type Client struct {
	ID          string
	Room        string
	identity    model.Identity
	connectedAt time.Time
	conn        *websocket.Conn
	manager     *Hub
	egress      chan event.WsEvent

	// cancel or stop goroutine
	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool         // tracks if client is closed
	closedMu       sync.RWMutex // protects closed flag
}

var (
	// tuning parameters
	writeWait            = 10 * time.Second       // time allowed to write a message to the peer
	pongWait             = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval         = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize       = 64 * 1024              // max inbound message size (64KB)
	sendBufSize          = 256                    // per-connection outbound buffer size
	workerPoolSize       = 16                     // number of workers to process inbound messages
	sendTimeout          = 2 * time.Second        // timeout for enqueuing outbound messages
	kickOnFull           = true                   // when true, disconnect client when egress is full
	registerTimeout      = 5 * time.Second        // timeout for client registration
	unregisterTimeout    = 5 * time.Second        // timeout for client unregistration
	inboundSendTimeout   = 500 * time.Millisecond // timeout for sending to inbound channel
	inboundHandleTimeout = 10 * time.Second       // budget for persisting one inbound send
)

// RegisterClient creates a new client with a single WebSocket connection
func RegisterClient(identity model.Identity, roomKey string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	client := &Client{
		ID:          uuid.New().String(),
		Room:        roomKey,
		identity:    identity,
		connectedAt: time.Now().UTC(),
		conn:        conn,
		manager:     h,
		egress:      make(chan event.WsEvent, sendBufSize),
		cancel:      cancel,
		ctx:         ctx,
		connClosed:  make(chan struct{}),
	}

	select {
	case h.register <- client:
		go client.ReadMessages()
		go client.WriteMessage()
		h.logger.Info("socket joined room",
			zap.String("client_id", client.ID),
			zap.String("user_id", identity.ID),
			zap.String("room", roomKey),
		)
		return client
	case <-time.After(registerTimeout):
		h.logger.Warn("failed to register client: timeout", zap.String("client_id", client.ID))
		cancel()
		conn.Close()
		return nil
	}
}

func (c *Client) ReadMessages() {
	log := c.manager.logger
	defer func() {
		select {
		case c.manager.unregister <- c:
			// unregistered successfully
		case <-time.After(unregisterTimeout):
			log.Warn("failed to unregister client: timeout", zap.String("client_id", c.ID))
		}
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent

			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					log.Debug("client disconnected", zap.String("client_id", c.ID))
					return
				}

				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseInternalServerErr,
					websocket.CloseProtocolError,
				) {
					log.Info("unexpected close", zap.String("client_id", c.ID), zap.Error(err))
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					log.Debug("client timed out - closing connection", zap.String("client_id", c.ID))
					return
				}

				log.Debug("error reading from client", zap.String("client_id", c.ID), zap.Error(err))
				return
			}

			// Non-blocking send into inbound processing queue to avoid blocking reader
			select {
			case c.manager.inbound <- inboundMessage{client: c, event: ev}:
				// accepted for processing
			case <-time.After(inboundSendTimeout):
				log.Warn("inbound send timeout: dropping client", zap.String("client_id", c.ID))
				return
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case ev := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.manager.logger.Debug("write failed", zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.manager.logger.Debug("ping failed", zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(pongMsg string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Close stops both pumps. The egress channel is left open so a concurrent
// SafeSend never hits a closed channel.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.cancel()

		// Wait for WriteMessage to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
				c.manager.logger.Warn("safety timeout: force closed connection", zap.String("client_id", c.ID))
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// SafeSend attempts to send an event to the client's egress channel.
// Returns true if sent successfully, false if client is closed or timeout.
func (c *Client) SafeSend(ev event.WsEvent, timeout time.Duration) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- ev:
		return true
	case <-time.After(timeout):
		return false
	}
}

// sendError reports a failed inbound frame back to this socket only.
func (c *Client) sendError(messageID string, err error) {
	appErr := apperr.From(err)
	ev, mErr := event.New(event.EventError, c.Room, messageID, model.ErrorPayload{
		Code:    appErr.Condition,
		Message: appErr.Message,
	})
	if mErr != nil {
		return
	}
	c.SafeSend(ev, sendTimeout)
}
