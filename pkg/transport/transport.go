// Package transport carries coordination tool calls between an agent
// process and the coordinator: JSONL over stdio, WebSocket frames, or
// in-process channels.
package transport

import (
	"encoding/json"
	"errors"

	"github.com/jg-phare/opencode-teams/pkg/coordinator"
)

// ErrTransportClosed is returned when operations are attempted on a closed
// transport.
var ErrTransportClosed = errors.New("transport closed")

// Request is one inbound tool call. A non-nil Err marks a frame that could
// not be decoded; Tool and Args are empty in that case.
type Request struct {
	ID   string          `json:"id"`
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
	Err  error           `json:"-"`
}

// Response answers one Request. Exactly one of the embedded envelope's
// Result and Error is set.
type Response struct {
	ID string `json:"id"`
	coordinator.Envelope
}

// Transport is a bidirectional request/response stream with a consumer.
type Transport interface {
	// Requests returns the inbound call stream. The channel closes when no
	// more input will arrive (EOF or close).
	Requests() <-chan Request

	// Write sends one encoded response frame to the consumer.
	Write(data []byte) error

	// Close shuts down the transport. Safe to call multiple times.
	Close() error

	// IsReady reports whether the transport is accepting writes.
	IsReady() bool
}
