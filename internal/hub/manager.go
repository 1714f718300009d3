package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"sync"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/fanout"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

// room is the set of local sockets listening on one room key plus the single
// fan-out subscription they share.
type room struct {
	clients map[string]*Client
	sub     fanout.Subscription
}

type clientBucket struct {
	sync.RWMutex
	rooms map[string]*room
}

type Hub struct {
	shards     [shardCount]*clientBucket
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once

	gateway   *fanout.Gateway
	messaging service.MessagingService
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

func NewHub(gateway *fanout.Gateway, messaging service.MessagingService, allowedOrigins []string, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		inbound:    make(chan inboundMessage, 4096), // buffer for burst handling
		ctx:        ctx,
		cancel:     cancel,
		gateway:    gateway,
		messaging:  messaging,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &clientBucket{
			rooms: make(map[string]*room),
		}
	}

	// run manager loop
	go h.run()

	// start worker loop
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in := <-h.inbound:
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventSendMessage:
		var body event.SendMessage
		if err := ev.Decode(&body); err != nil {
			h.logger.Debug("bad send_message payload", zap.String("client_id", c.ID), zap.Error(err))
			c.sendError(ev.MessageId, apperr.InvalidArg("InvalidPayload", "message body is not valid JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(h.ctx, inboundHandleTimeout)
		defer cancel()

		if err := h.messaging.SendToRoom(ctx, c.identity, c.Room, body.Content); err != nil {
			h.logger.Debug("socket send rejected",
				zap.String("client_id", c.ID),
				zap.String("room", c.Room),
				zap.Error(err),
			)
			c.sendError(ev.MessageId, err)
		}
	default:
		h.logger.Debug("unknown event type", zap.String("event", ev.Event), zap.String("client_id", c.ID))
		c.sendError(ev.MessageId, apperr.InvalidArg("UnknownEvent", "unknown event type: "+ev.Event))
	}
}

// deliver pushes a fan-out event to every local socket in roomKey.
func (h *Hub) deliver(roomKey string, ev event.WsEvent) {
	b := h.shards[getShard(roomKey)]

	// collect clients while holding RLock
	b.RLock()
	r, ok := b.rooms[roomKey]
	if !ok || len(r.clients) == 0 {
		b.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver to clients without holding lock
	for _, c := range clients {
		if c.SafeSend(ev, sendTimeout) {
			continue
		}
		if c.IsClosed() {
			continue
		}
		h.logger.Warn("egress full", zap.String("client_id", c.ID), zap.String("room", roomKey))
		if kickOnFull {
			select {
			case h.unregister <- c:
			default:
				c.Close()
			}
		}
	}
}

func getShard(roomKey string) uint32 {
	if roomKey == "" {
		return 0
	}

	h := sha1.Sum([]byte(roomKey))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

// addClient joins c to its room, opening the room's fan-out subscription when
// c is the first local listener.
func (h *Hub) addClient(c *Client) {
	if c.IsClosed() {
		return
	}
	sh := getShard(c.Room)
	b := h.shards[sh]
	b.Lock()
	defer b.Unlock()

	r, ok := b.rooms[c.Room]
	if !ok {
		roomKey := c.Room
		sub, err := h.gateway.Subscribe(roomKey, func(ev event.WsEvent) {
			h.deliver(roomKey, ev)
		})
		if err != nil {
			h.logger.Error("room subscribe failed", zap.String("room", roomKey), zap.Error(err))
			c.sendError("", apperr.ErrStoreUnavailable(err))
			c.Close()
			return
		}
		r = &room{clients: make(map[string]*Client), sub: sub}
		b.rooms[roomKey] = r
	}

	r.clients[c.ID] = c
	h.logger.Debug("client registered",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.identity.ID),
		zap.String("room", c.Room),
		zap.Uint32("shard", sh),
	)
}

func (h *Hub) removeClient(c *Client) {
	sh := getShard(c.Room)
	b := h.shards[sh]
	b.Lock()
	defer b.Unlock()

	if r, ok := b.rooms[c.Room]; ok {
		delete(r.clients, c.ID)

		if len(r.clients) == 0 {
			if err := r.sub.Unsubscribe(); err != nil {
				h.logger.Warn("room unsubscribe failed", zap.String("room", c.Room), zap.Error(err))
			}
			delete(b.rooms, c.Room)
		}
	}

	c.Close()
	h.logger.Debug("client removed",
		zap.String("client_id", c.ID),
		zap.String("room", c.Room),
		zap.Uint32("shard", sh),
	)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// Stop closes every socket and drops every room subscription.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()

		for _, shard := range h.shards {
			shard.Lock()
			for key, r := range shard.rooms {
				for _, client := range r.clients {
					client.Close()
				}
				_ = r.sub.Unsubscribe()
				delete(shard.rooms, key)
			}
			shard.Unlock()
		}

		h.wg.Wait()
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin.
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS upgrades an already authenticated and authorized request and joins
// the socket to roomKey.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity model.Identity, roomKey string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(identity, roomKey, conn, h)
}

// RoomCount is the number of rooms with at least one local socket.
func (h *Hub) RoomCount() int {
	n := 0
	for _, b := range h.shards {
		b.RLock()
		n += len(b.rooms)
		b.RUnlock()
	}
	return n
}
