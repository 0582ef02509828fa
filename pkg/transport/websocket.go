package transport

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
)

// WebSocketTransport carries requests and responses as text frames
// containing JSON.
type WebSocketTransport struct {
	conn *websocket.Conn
	ctx  context.Context

	requestCh chan Request
	doneCh    chan struct{}
	ready     atomic.Bool
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewWebSocketTransport wraps an existing WebSocket connection as a
// Transport. The ctx parameter is used for read/write operations on the
// connection.
func NewWebSocketTransport(ctx context.Context, conn *websocket.Conn) *WebSocketTransport {
	t := &WebSocketTransport{
		conn:      conn,
		ctx:       ctx,
		requestCh: make(chan Request, 64),
		doneCh:    make(chan struct{}),
	}
	t.ready.Store(true)

	go t.readLoop()

	return t
}

// readLoop reads WebSocket frames and sends Requests on requestCh.
func (t *WebSocketTransport) readLoop() {
	defer close(t.requestCh)

	for {
		_, data, err := t.conn.Read(t.ctx)
		if err != nil {
			// Normal closure ends the stream quietly
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			select {
			case t.requestCh <- Request{Err: err}:
			case <-t.doneCh:
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			req = Request{Err: err}
		}

		select {
		case t.requestCh <- req:
		case <-t.doneCh:
			return
		}
	}
}

// Write sends data as a text WebSocket message. Thread-safe via mutex.
func (t *WebSocketTransport) Write(data []byte) error {
	if !t.ready.Load() {
		return ErrTransportClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	return t.conn.Write(t.ctx, websocket.MessageText, data)
}

// Close sends a close frame and shuts down the transport. Safe to call
// multiple times.
func (t *WebSocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.ready.Store(false)
		close(t.doneCh)
		t.conn.Close(websocket.StatusNormalClosure, "")
	})
	return nil
}

// IsReady returns true if the transport is accepting writes.
func (t *WebSocketTransport) IsReady() bool {
	return t.ready.Load()
}

// Requests returns the inbound call stream from the WebSocket.
func (t *WebSocketTransport) Requests() <-chan Request {
	return t.requestCh
}
