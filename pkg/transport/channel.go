package transport

import (
	"sync"
	"sync/atomic"
)

// ChannelTransport is an in-process transport that uses Go channels for
// bidirectional communication. No serialization on the request side —
// requests are passed as values; responses stay encoded bytes so the
// consumer sees exactly the wire shape.
type ChannelTransport struct {
	requestCh    chan Request
	outputCh     chan []byte
	doneCh       chan struct{}
	ready        atomic.Bool
	closeOnce    sync.Once
	endInputOnce sync.Once
}

// NewChannelTransport creates a new in-process channel transport.
// bufferSize controls the capacity of both channels.
func NewChannelTransport(bufferSize int) *ChannelTransport {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	t := &ChannelTransport{
		requestCh: make(chan Request, bufferSize),
		outputCh:  make(chan []byte, bufferSize),
		doneCh:    make(chan struct{}),
	}
	t.ready.Store(true)
	return t
}

// Write sends an encoded response to the consumer.
func (t *ChannelTransport) Write(data []byte) error {
	if !t.ready.Load() {
		return ErrTransportClosed
	}
	select {
	case t.outputCh <- data:
		return nil
	case <-t.doneCh:
		return ErrTransportClosed
	}
}

// Close shuts down the transport. Safe to call multiple times.
func (t *ChannelTransport) Close() error {
	t.closeOnce.Do(func() {
		t.ready.Store(false)
		close(t.doneCh)
		// Also close the request channel so Requests consumers see EOF
		t.endInputOnce.Do(func() {
			close(t.requestCh)
		})
	})
	return nil
}

// IsReady returns true if the transport is accepting writes.
func (t *ChannelTransport) IsReady() bool {
	return t.ready.Load()
}

// Requests returns the inbound call stream.
func (t *ChannelTransport) Requests() <-chan Request {
	return t.requestCh
}

// EndInput signals that no more requests will be sent. Safe to call
// multiple times.
func (t *ChannelTransport) EndInput() {
	t.endInputOnce.Do(func() {
		close(t.requestCh)
	})
}

// Send injects a request (consumer → coordinator). This is the
// consumer-side API.
func (t *ChannelTransport) Send(req Request) error {
	if !t.ready.Load() {
		return ErrTransportClosed
	}
	select {
	case t.requestCh <- req:
		return nil
	case <-t.doneCh:
		return ErrTransportClosed
	}
}

// Receive reads one encoded response (coordinator → consumer). Returns the
// data and true, or nil and false if the transport is closed.
func (t *ChannelTransport) Receive() ([]byte, bool) {
	select {
	case data, ok := <-t.outputCh:
		return data, ok
	case <-t.doneCh:
		return nil, false
	}
}
