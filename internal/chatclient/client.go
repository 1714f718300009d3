// Package chatclient is a small client for the messaging HTTP API and room
// sockets.
package chatclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status    int    `json:"-"`
	Condition string `json:"error"`
	Message   string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Condition == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Condition, e.Message)
}

type Client struct {
	http   *resty.Client
	wsURL  string
	token  string
	dialer *websocket.Dialer
}

// New returns a client for the API at apiURL and the socket endpoint at
// wsURL (for example ws://localhost:8081/ws).
func New(apiURL, wsURL, token string) *Client {
	rc := resty.New().
		SetBaseURL(apiURL).
		SetAuthToken(token).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: rc, wsURL: wsURL, token: token, dialer: websocket.DefaultDialer}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		apiErr, _ := resp.Error().(*APIError)
		if apiErr == nil {
			apiErr = &APIError{}
		}
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

func (c *Client) RequestConnection(ctx context.Context, targetID string) error {
	return c.do(ctx, resty.MethodPost, "/api/connection/request", map[string]string{"targetId": targetID}, nil)
}

func (c *Client) AcceptConnection(ctx context.Context, requesterID string) error {
	return c.do(ctx, resty.MethodPost, "/api/connection/accept", map[string]string{"requesterId": requesterID}, nil)
}

func (c *Client) RejectConnection(ctx context.Context, requesterID string) error {
	return c.do(ctx, resty.MethodPost, "/api/connection/reject", map[string]string{"requesterId": requesterID}, nil)
}

func (c *Client) RemoveConnection(ctx context.Context, otherID string) error {
	return c.do(ctx, resty.MethodPost, "/api/connection/remove", map[string]string{"otherId": otherID}, nil)
}

func (c *Client) Status(ctx context.Context, otherID string) (model.ConnectionStatus, error) {
	var out struct {
		Status model.ConnectionStatus `json:"status"`
	}
	err := c.do(ctx, resty.MethodGet, "/api/connection/status?with="+url.QueryEscape(otherID), nil, &out)
	return out.Status, err
}

func (c *Client) Connections(ctx context.Context) ([]model.UserSummary, error) {
	var out struct {
		Connections []model.UserSummary `json:"connections"`
	}
	err := c.do(ctx, resty.MethodGet, "/api/connection/list", nil, &out)
	return out.Connections, err
}

func (c *Client) IncomingRequests(ctx context.Context) ([]model.ConnectionRequest, error) {
	var out struct {
		Requests []model.ConnectionRequest `json:"requests"`
	}
	err := c.do(ctx, resty.MethodGet, "/api/connection/requests", nil, &out)
	return out.Requests, err
}

func (c *Client) SendEventMessage(ctx context.Context, eventID, content string) (*model.EventMessage, error) {
	var out model.EventMessage
	path := "/api/event/" + url.PathEscape(eventID) + "/message"
	if err := c.do(ctx, resty.MethodPost, path, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendDirectMessage(ctx context.Context, userID, content string) (*model.DirectMessage, error) {
	var out model.DirectMessage
	path := "/api/direct/" + url.PathEscape(userID) + "/message"
	if err := c.do(ctx, resty.MethodPost, path, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EventHistory(ctx context.Context, eventID string, page model.Page) ([]model.EventMessage, error) {
	var out struct {
		Messages []model.EventMessage `json:"messages"`
	}
	err := c.do(ctx, resty.MethodGet, "/api/event/"+url.PathEscape(eventID)+"/history"+pageQuery(page), nil, &out)
	return out.Messages, err
}

func (c *Client) DirectHistory(ctx context.Context, userID string, page model.Page) ([]model.DirectMessage, error) {
	var out struct {
		Messages []model.DirectMessage `json:"messages"`
	}
	err := c.do(ctx, resty.MethodGet, "/api/direct/"+url.PathEscape(userID)+"/history"+pageQuery(page), nil, &out)
	return out.Messages, err
}

func (c *Client) Conversations(ctx context.Context) ([]model.ConversationSummary, error) {
	var out struct {
		Conversations []model.ConversationSummary `json:"conversations"`
	}
	err := c.do(ctx, resty.MethodGet, "/api/conversations", nil, &out)
	return out.Conversations, err
}

func pageQuery(p model.Page) string {
	if p.IsZero() {
		return ""
	}
	q := url.Values{}
	if p.Before > 0 {
		q.Set("before", strconv.FormatInt(p.Before, 10))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return "?" + q.Encode()
}

// Watch joins room and calls onEvent for every frame until ctx is done or
// the socket closes. A refused join surfaces as an *APIError.
func (c *Client) Watch(ctx context.Context, room string, onEvent func(event.WsEvent)) error {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("room", room)
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: err.Error()}
		}
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
	}()

	for {
		var ev event.WsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		onEvent(ev)
	}
}
