package core

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id    string
	inbox chan []byte
	done  chan struct{}

	mu       sync.Mutex
	sent     [][]byte
	closed   bool
	failSend bool

	closeOnce sync.Once
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{
		id:    id,
		inbox: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) RemoteAddr() string { return "fake/" + c.id }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.failSend {
		return ErrSendQueueFull
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Receive() ([]byte, error) {
	select {
	case data := <-c.inbox:
		return data, nil
	case <-c.done:
		return nil, ErrConnClosed
	}
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *fakeConn) setFailSend(fail bool) {
	c.mu.Lock()
	c.failSend = fail
	c.mu.Unlock()
}

func (c *fakeConn) push(t *testing.T, msg InboundMessage) {
	t.Helper()
	data, err := GenerateClientPayload(msg)
	require.NoError(t, err)
	c.inbox <- data
}

func (c *fakeConn) messages(t *testing.T) []ServerMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ServerMessage, 0, len(c.sent))
	for _, data := range c.sent {
		var m ServerMessage
		require.NoError(t, json.Unmarshal(data, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, typ string) []ServerMessage {
	t.Helper()
	var out []ServerMessage
	for _, m := range c.messages(t) {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.sent = nil
	c.mu.Unlock()
}
