package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
)

const (
	// maxScannerBuffer is the max size for the JSONL scanner (10 MB).
	maxScannerBuffer = 10 * 1024 * 1024
	// initialScannerBuffer is the initial buffer size for the scanner (64 KB).
	initialScannerBuffer = 64 * 1024
)

// StdioTransport speaks JSONL over stdin/stdout (or any io.Reader/Writer
// pair). Each line is one JSON-encoded Request or Response. Empty lines
// are skipped.
type StdioTransport struct {
	reader io.Reader
	writer io.Writer

	requestCh chan Request
	doneCh    chan struct{}
	ready     atomic.Bool
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewStdioTransport creates a JSONL transport reading from reader and
// writing to writer. Call Close() when done to release resources.
func NewStdioTransport(reader io.Reader, writer io.Writer) *StdioTransport {
	t := &StdioTransport{
		reader:    reader,
		writer:    writer,
		requestCh: make(chan Request, 64),
		doneCh:    make(chan struct{}),
	}
	t.ready.Store(true)

	go t.readLoop()

	return t
}

// readLoop reads JSONL lines and sends Requests on requestCh.
func (t *StdioTransport) readLoop() {
	defer close(t.requestCh)

	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, initialScannerBuffer), maxScannerBuffer)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			// Malformed JSON → surface as an errored request
			req = Request{Err: err}
		}

		select {
		case t.requestCh <- req:
		case <-t.doneCh:
			return
		}
	}

	// Scanner error (if any) is not fatal — just end of input
}

// Write sends JSON data as a single line to the writer. Thread-safe via
// mutex.
func (t *StdioTransport) Write(data []byte) error {
	if !t.ready.Load() {
		return ErrTransportClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return err
	}
	if _, err := t.writer.Write([]byte{'\n'}); err != nil {
		return err
	}
	return nil
}

// Close shuts down the transport. Safe to call multiple times.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		t.ready.Store(false)
		close(t.doneCh)
	})
	return nil
}

// IsReady returns true if the transport is accepting writes.
func (t *StdioTransport) IsReady() bool {
	return t.ready.Load()
}

// Requests returns the inbound call stream parsed from the reader. The
// channel is closed on EOF or when the transport is closed.
func (t *StdioTransport) Requests() <-chan Request {
	return t.requestCh
}
