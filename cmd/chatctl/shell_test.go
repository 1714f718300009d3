package main

import (
	"bytes"
	"testing"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/chatclient"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShell_UsageErrors(t *testing.T) {
	var out bytes.Buffer
	sh := newShell(chatclient.New("http://127.0.0.1:0", "ws://127.0.0.1:0/ws", "t"), &out)

	sh.execute("request")
	assert.Contains(t, out.String(), "usage: request <userId>")

	out.Reset()
	sh.execute("history event")
	assert.Contains(t, out.String(), "usage: history")

	out.Reset()
	sh.execute("history event e1 -3")
	assert.Contains(t, out.String(), "limit must be")

	out.Reset()
	sh.execute("dance")
	assert.Contains(t, out.String(), "unknown command")

	out.Reset()
	sh.execute("   ")
	assert.Empty(t, out.String())
}

func TestShell_PrintEvent(t *testing.T) {
	var out bytes.Buffer
	sh := newShell(nil, &out)

	ev, err := event.New(event.EventEventMessage, "event:e1", "m1", model.EventMessage{SenderName: "Ada", Content: "hello"})
	require.NoError(t, err)
	sh.printEvent(ev)
	assert.Contains(t, out.String(), "[event:e1] Ada: hello")

	ev, err = event.New(event.EventError, "event:e1", "", model.ErrorPayload{Code: "NotAttendee", Message: "nope"})
	require.NoError(t, err)
	sh.printEvent(ev)
	assert.Contains(t, out.String(), "error NotAttendee: nope")
}
