package transport

import (
	"encoding/json"
	"testing"
)

func TestChannelTransport_RoundTrip(t *testing.T) {
	tr := NewChannelTransport(4)
	defer tr.Close()

	if err := tr.Send(Request{ID: "1", Tool: "task_list", Args: json.RawMessage(`{}`)}); err != nil {
		t.Fatal(err)
	}
	req, ok := <-tr.Requests()
	if !ok || req.ID != "1" {
		t.Fatalf("request = %+v, ok = %v", req, ok)
	}

	if err := tr.Write([]byte(`{"id":"1"}`)); err != nil {
		t.Fatal(err)
	}
	data, ok := tr.Receive()
	if !ok || string(data) != `{"id":"1"}` {
		t.Fatalf("receive = %q, ok = %v", data, ok)
	}
}

func TestChannelTransport_EndInput(t *testing.T) {
	tr := NewChannelTransport(1)
	defer tr.Close()

	tr.EndInput()
	if _, ok := <-tr.Requests(); ok {
		t.Error("expected closed request channel after EndInput")
	}
	// EndInput twice is safe.
	tr.EndInput()
}

func TestChannelTransport_ClosedOperationsFail(t *testing.T) {
	tr := NewChannelTransport(1)
	tr.Close()

	if err := tr.Send(Request{ID: "x"}); err != ErrTransportClosed {
		t.Errorf("Send after close = %v", err)
	}
	if err := tr.Write([]byte("y")); err != ErrTransportClosed {
		t.Errorf("Write after close = %v", err)
	}
	if _, ok := tr.Receive(); ok {
		t.Error("Receive after close should report closed")
	}
}
