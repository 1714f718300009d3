package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRoomKeys(t *testing.T) {
	assert.Equal(t, "event:e1", EventRoom("e1"))
	assert.Equal(t, DirectRoom("bob", "alice"), DirectRoom("alice", "bob"))
	assert.Equal(t, "direct:alice:bob", DirectRoom("bob", "alice"))
}

func TestParseRoom(t *testing.T) {
	r, err := ParseRoom("event:e1")
	require.NoError(t, err)
	assert.Equal(t, RoomEvent, r.Kind)
	assert.Equal(t, "e1", r.EventID)
	assert.Equal(t, "event:e1", r.Key())

	r, err = ParseRoom(DirectRoom("bob", "alice"))
	require.NoError(t, err)
	assert.Equal(t, RoomDirect, r.Kind)
	assert.True(t, r.Has("alice"))
	assert.True(t, r.Has("bob"))
	assert.False(t, r.Has("carol"))
	assert.Equal(t, "bob", r.Other("alice"))
	assert.Equal(t, "direct:alice:bob", r.Key())

	for _, bad := range []string{"", "event:", "direct:a", "direct:b:a", "direct:a:a", "direct:a:b:c", "room:x"} {
		_, err := ParseRoom(bad)
		assert.ErrorIs(t, err, apperr.ErrInvalidRoom, bad)
	}
}

func TestGateway_PublishReachesRoomSubscribersInOrder(t *testing.T) {
	tr := NewMemoryTransport()
	g := NewGateway(tr, 0, zap.NewNop())
	room := EventRoom("e1")

	var got []string
	sub, err := g.Subscribe(room, func(ev event.WsEvent) {
		got = append(got, ev.MessageId)
	})
	require.NoError(t, err)

	other := 0
	_, err = g.Subscribe(EventRoom("e2"), func(event.WsEvent) { other++ })
	require.NoError(t, err)

	for _, id := range []string{"m1", "m2", "m3"} {
		ev, err := event.New(event.EventEventMessage, "", id, map[string]string{"content": id})
		require.NoError(t, err)
		require.NoError(t, g.Publish(context.Background(), room, ev))
	}

	assert.Equal(t, []string{"m1", "m2", "m3"}, got)
	assert.Zero(t, other)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	assert.Zero(t, tr.Subscribers(room))
}

func TestGateway_RejectsInvalidRoom(t *testing.T) {
	g := NewGateway(NewMemoryTransport(), 0, zap.NewNop())
	err := g.Publish(context.Background(), "nope", event.WsEvent{})
	assert.ErrorIs(t, err, apperr.ErrInvalidRoom)

	_, err = g.Subscribe("nope", func(event.WsEvent) {})
	assert.ErrorIs(t, err, apperr.ErrInvalidRoom)
}

func TestGateway_PublishHonoursCancelledContext(t *testing.T) {
	g := NewGateway(NewMemoryTransport(), 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Publish(ctx, EventRoom("e1"), event.WsEvent{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSubjectToken_DistinctRoomsNeverShareASubject(t *testing.T) {
	tr := &NATSTransport{prefix: "eventhive"}
	rooms := []string{
		EventRoom("launch.2024"),
		EventRoom("launch_2024"),
		EventRoom("launch 2024"),
		EventRoom("launch>2024"),
		EventRoom("launch*2024"),
		DirectRoom("alice", "john.doe"),
		DirectRoom("alice", "john_doe"),
	}
	seen := make(map[string]string, len(rooms))
	for _, room := range rooms {
		subject := tr.Subject(room)
		if prev, ok := seen[subject]; ok {
			t.Fatalf("rooms %q and %q share subject %q", prev, room, subject)
		}
		seen[subject] = room

		token := strings.TrimPrefix(subject, "eventhive.")
		assert.NotContains(t, token, ".", room)
		assert.NotContains(t, token, "*", room)
		assert.NotContains(t, token, ">", room)
		assert.NotContains(t, token, " ", room)
	}
}

func TestGateway_DropsEventsForAnotherRoom(t *testing.T) {
	tr := NewMemoryTransport()
	g := NewGateway(tr, 0, zap.NewNop())
	room := DirectRoom("alice", "bob")

	var got []event.WsEvent
	sub, err := g.Subscribe(room, func(ev event.WsEvent) { got = append(got, ev) })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	foreign, err := json.Marshal(event.WsEvent{Event: event.EventDirectMessage, Room: DirectRoom("alice", "carol")})
	require.NoError(t, err)
	require.NoError(t, tr.Publish(context.Background(), room, foreign))
	assert.Empty(t, got)

	require.NoError(t, g.Publish(context.Background(), room, event.WsEvent{Event: event.EventDirectMessage}))
	require.Len(t, got, 1)
	assert.Equal(t, room, got[0].Room)
}
