package channel

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is one established message-framed connection.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens transports. Tests substitute a fake; production code uses
// WebSocketDialer.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// WebSocketDialer dials gorilla/websocket connections.
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
	Header           http.Header
}

func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	wd := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, _, err := wd.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteJSON(v interface{}) error {
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
