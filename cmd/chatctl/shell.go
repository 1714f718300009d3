package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/chatclient"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/fanout"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/c-bata/go-prompt"
)

const callTimeout = 15 * time.Second

var suggestions = []prompt.Suggest{
	{Text: "request", Description: "request <userId>: send a connection request"},
	{Text: "accept", Description: "accept <userId>: accept a pending request"},
	{Text: "reject", Description: "reject <userId>: reject a pending request"},
	{Text: "remove", Description: "remove <userId>: drop a connection"},
	{Text: "status", Description: "status <userId>: connection status with a user"},
	{Text: "connections", Description: "list your connections"},
	{Text: "requests", Description: "list incoming requests"},
	{Text: "send", Description: "send <userId> <text>: direct message"},
	{Text: "post", Description: "post <eventId> <text>: event chat message"},
	{Text: "history", Description: "history event|direct <id> [limit]"},
	{Text: "conversations", Description: "list your direct conversations"},
	{Text: "watch", Description: "watch event <id> | direct <userId>: stream a room"},
	{Text: "unwatch", Description: "stop streaming"},
	{Text: "help", Description: "show commands"},
	{Text: "exit", Description: "quit"},
}

type shell struct {
	client *chatclient.Client
	out    io.Writer

	mu        sync.Mutex
	stopWatch context.CancelFunc
}

func newShell(client *chatclient.Client, out io.Writer) *shell {
	return &shell{client: client, out: out}
}

func splitArgs(input string) []string {
	return strings.Fields(input)
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *shell) execute(input string) {
	args := splitArgs(input)
	if len(args) == 0 {
		return
	}
	if err := s.run(strings.ToLower(args[0]), args[1:]); err != nil {
		s.printf("error: %v\n", err)
	}
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func (s *shell) run(cmd string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	switch cmd {
	case "request", "accept", "reject", "remove":
		if err := need(args, 1, cmd+" <userId>"); err != nil {
			return err
		}
		var err error
		switch cmd {
		case "request":
			err = s.client.RequestConnection(ctx, args[0])
		case "accept":
			err = s.client.AcceptConnection(ctx, args[0])
		case "reject":
			err = s.client.RejectConnection(ctx, args[0])
		default:
			err = s.client.RemoveConnection(ctx, args[0])
		}
		if err != nil {
			return err
		}
		s.printf("ok\n")

	case "status":
		if err := need(args, 1, "status <userId>"); err != nil {
			return err
		}
		status, err := s.client.Status(ctx, args[0])
		if err != nil {
			return err
		}
		s.printf("%s\n", status)

	case "connections":
		conns, err := s.client.Connections(ctx)
		if err != nil {
			return err
		}
		for _, u := range conns {
			s.printf("%-20s %s\n", u.ID, u.DisplayName)
		}

	case "requests":
		reqs, err := s.client.IncomingRequests(ctx)
		if err != nil {
			return err
		}
		for _, r := range reqs {
			s.printf("%-20s %s\n", r.From, r.CreatedAt.Local().Format(time.DateTime))
		}

	case "send":
		if err := need(args, 2, "send <userId> <text>"); err != nil {
			return err
		}
		msg, err := s.client.SendDirectMessage(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		s.printf("sent %s\n", msg.ID)

	case "post":
		if err := need(args, 2, "post <eventId> <text>"); err != nil {
			return err
		}
		msg, err := s.client.SendEventMessage(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		s.printf("sent %s\n", msg.ID)

	case "history":
		return s.history(ctx, args)

	case "conversations":
		convs, err := s.client.Conversations(ctx)
		if err != nil {
			return err
		}
		for _, c := range convs {
			s.printf("%-20s %3d unread  %s\n", c.CounterpartID, c.UnreadCount, c.LastMessage)
		}

	case "watch":
		return s.watch(args)

	case "unwatch":
		s.unwatch()

	case "help":
		for _, sg := range suggestions {
			s.printf("%-15s : %s\n", sg.Text, sg.Description)
		}

	case "exit":
		s.unwatch()
		os.Exit(0)

	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list of commands", cmd)
	}
	return nil
}

func (s *shell) history(ctx context.Context, args []string) error {
	if err := need(args, 2, "history event|direct <id> [limit]"); err != nil {
		return err
	}
	var page model.Page
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 0 {
			return fmt.Errorf("limit must be a non-negative number")
		}
		page.Limit = n
	}

	switch args[0] {
	case "event":
		msgs, err := s.client.EventHistory(ctx, args[1], page)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			s.printf("[%s] %s: %s\n", formatTS(m.Timestamp), m.SenderName, m.Content)
		}
	case "direct":
		msgs, err := s.client.DirectHistory(ctx, args[1], page)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			s.printf("[%s] %s: %s\n", formatTS(m.Timestamp), m.SenderID, m.Content)
		}
	default:
		return fmt.Errorf("usage: history event|direct <id> [limit]")
	}
	return nil
}

// watch streams a room in the background until unwatch.
func (s *shell) watch(args []string) error {
	if err := need(args, 2, "watch event <eventId> | watch direct <me> <userId>"); err != nil {
		return err
	}
	var room string
	switch args[0] {
	case "event":
		room = fanout.EventRoom(args[1])
	case "direct":
		if err := need(args, 3, "watch direct <me> <userId>"); err != nil {
			return err
		}
		room = fanout.DirectRoom(args[1], args[2])
	default:
		return fmt.Errorf("usage: watch event <eventId> | watch direct <me> <userId>")
	}

	s.unwatch()
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.stopWatch = cancel
	s.mu.Unlock()

	go func() {
		err := s.client.Watch(ctx, room, s.printEvent)
		if err != nil {
			s.printf("\nwatch %s ended: %v\n", room, err)
		}
	}()
	s.printf("watching %s\n", room)
	return nil
}

func (s *shell) unwatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

func (s *shell) printEvent(ev event.WsEvent) {
	switch ev.Event {
	case event.EventEventMessage:
		var m model.EventMessage
		if ev.Decode(&m) == nil {
			s.printf("\n[%s] %s: %s\n", ev.Room, m.SenderName, m.Content)
		}
	case event.EventDirectMessage:
		var m model.DirectMessage
		if ev.Decode(&m) == nil {
			s.printf("\n[%s] %s: %s\n", ev.Room, m.SenderID, m.Content)
		}
	case event.EventError:
		var e model.ErrorPayload
		if ev.Decode(&e) == nil {
			s.printf("\n[%s] error %s: %s\n", ev.Room, e.Code, e.Message)
		}
	}
}

func formatTS(ms int64) string {
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}
