package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mcoot/pongrelay/internal/model"
)

// Transport is one bidirectional event stream to the relay server.
// Implementations must support one concurrent reader and one concurrent
// writer; the Client never calls ReadEnvelope or WriteEnvelope from more
// than one goroutine at a time.
type Transport interface {
	ReadEnvelope() (model.Envelope, error)
	WriteEnvelope(env model.Envelope) error
	Close() error
}

// Dialer establishes a Transport to a server URL
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// WebsocketDialer dials the relay's websocket endpoint
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer creates a dialer with gorilla defaults
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		dialer: websocket.DefaultDialer,
	}
}

// Dial connects to the given websocket URL
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		conn.Close()
		return nil, fmt.Errorf("dialing %s: unexpected status %d", url, resp.StatusCode)
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadEnvelope() (model.Envelope, error) {
	var env model.Envelope
	if err := t.conn.ReadJSON(&env); err != nil {
		return model.Envelope{}, err
	}
	return env, nil
}

func (t *wsTransport) WriteEnvelope(env model.Envelope) error {
	return t.conn.WriteJSON(env)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
