package syncengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"projecthub-be/pkg/syncengine/wire"
)

// WebSocketTransport dials the server's collaboration endpoint.
type WebSocketTransport struct {
	baseURL string
	token   string
	dialer  *websocket.Dialer
}

func NewWebSocketTransport(baseURL, token string) *WebSocketTransport {
	return &WebSocketTransport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		dialer:  websocket.DefaultDialer,
	}
}

func (t *WebSocketTransport) Dial(ctx context.Context, room RoomID) (Conn, error) {
	u := wsScheme(t.baseURL) + wire.PathPrefix + url.PathEscape(room.String())
	if !wire.IsCollaborationURL(u) {
		return nil, fmt.Errorf("not a collaboration socket url: %s", u)
	}

	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	c, _, err := t.dialer.DialContext(ctx, u, header)
	if err != nil {
		return nil, err
	}
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (c *wsConn) Read() (*wire.Message, error) {
	var msg wire.Message
	if err := c.c.ReadJSON(&msg); err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return nil, &CloseError{Code: ce.Code, Text: ce.Text}
		}
		return nil, err
	}
	return &msg, nil
}

func (c *wsConn) Write(msg *wire.Message) error {
	return c.c.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	return c.c.Close()
}

func wsScheme(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
