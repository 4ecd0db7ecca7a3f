package broadcast

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type frame struct {
	messageType int
	data        []byte
}

// fakeConn records every frame written to it. failWrites makes every write fail;
// blockWrites parks writes until Close is called.
type fakeConn struct {
	mu          sync.Mutex
	frames      []frame
	closed      bool
	failWrites  bool
	blockWrites bool
	release     chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{release: make(chan struct{})}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	block, fail, closed := c.blockWrites, c.failWrites, c.closed
	c.mu.Unlock()

	if block {
		<-c.release
		return errors.New("connection closed")
	}
	if fail || closed {
		return errors.New("broken pipe")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.release)
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) textMessages() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []map[string]any
	for _, f := range c.frames {
		if f.messageType != ws.TextMessage {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(f.data, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) rawTextMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for _, f := range c.frames {
		if f.messageType == ws.TextMessage {
			out = append(out, string(f.data))
		}
	}
	return out
}

func (c *fakeConn) hasFrame(messageType int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.frames {
		if f.messageType == messageType {
			return true
		}
	}
	return false
}

// newTestConnPair returns both ends of a real WebSocket connection.
func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}
