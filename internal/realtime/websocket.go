package realtime

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// WebsocketTransport carries packet batches as msgpack-encoded binary
// websocket messages, one message per batch.
type WebsocketTransport struct {
	url  string
	conn *websocket.Conn
}

// NewWebsocketTransport creates a transport that will dial the given
// ws:// or wss:// endpoint on Open.
func NewWebsocketTransport(url string) *WebsocketTransport {
	return &WebsocketTransport{url: url}
}

// Open implements Transport.
func (t *WebsocketTransport) Open() error {
	conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", t.url, err)
	}
	t.conn = conn
	return nil
}

// Close implements Transport. Closing the connection also unblocks a
// reader stuck in ReadValues on this side.
func (t *WebsocketTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		return fmt.Errorf("closing websocket to %s: %w", t.url, err)
	}
	return nil
}

// WriteValues implements Transport.
func (t *WebsocketTransport) WriteValues(batch []Packet) error {
	data, err := encodeBatch(batch)
	if err != nil {
		return err
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("writing batch of %d packets: %w", len(batch), err)
	}
	return nil
}

// ReadValues implements Transport.
func (t *WebsocketTransport) ReadValues() ([]Packet, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading from %s: %w", t.url, err)
	}
	return decodeBatch(data)
}
