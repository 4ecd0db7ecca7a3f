package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/ecotrack/internal/metrics"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
)

// Conn is the transport side of one observer. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type clientWriter struct {
	id          uuid.UUID
	connection  Conn
	clock       clockwork.Clock
	initial     [][]byte
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	failed      atomic.Bool
}

// newClientWriter starts the write goroutine. initial frames are written before anything
// queued on sendChannel, so a snapshot larger than the queue is never truncated.
func newClientWriter(connection Conn, clock clockwork.Clock, bufferSize int, initial [][]byte) *clientWriter {
	cw := &clientWriter{
		id:          uuid.New(),
		connection:  connection,
		clock:       clock,
		initial:     initial,
		sendChannel: make(chan []byte, bufferSize),
		doneChannel: make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	defer cw.wg.Done()

	for _, msg := range cw.initial {
		select {
		case <-cw.doneChannel:
			return
		default:
		}
		if !cw.write(websocket.TextMessage, msg) {
			return
		}
	}
	cw.initial = nil

	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-cw.sendChannel:
			if !cw.write(websocket.TextMessage, msg) {
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				cw.markFailed()
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

func (cw *clientWriter) write(messageType int, msg []byte) bool {
	start := cw.clock.Now()
	cw.updateWriteDeadline()
	if err := cw.connection.WriteMessage(messageType, msg); err != nil {
		metrics.WebSocketWriteFailures.Inc()
		cw.markFailed()
		return false
	}
	metrics.WebSocketMessageSendDuration.Observe(cw.clock.Since(start).Seconds())
	return true
}

// markFailed takes the writer out of rotation and closes the connection so the
// transport's read loop ends and unregisters it.
func (cw *clientWriter) markFailed() {
	cw.failed.Store(true)
	_ = cw.connection.Close()
}

// writable reports whether deliveries should still be offered to this connection.
func (cw *clientWriter) writable() bool {
	if cw.failed.Load() {
		return false
	}
	select {
	case <-cw.doneChannel:
		return false
	default:
		return true
	}
}

// offer enqueues without blocking. False means the queue is full.
func (cw *clientWriter) offer(msg []byte) bool {
	select {
	case cw.sendChannel <- msg:
		return true
	default:
		return false
	}
}

// stop closes the connection without waiting for the write goroutine; closing the
// underlying socket unblocks any in-flight write.
func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)

		// The run goroutine must be gone before we write, writes are not concurrent-safe.
		cw.wg.Wait()

		if !cw.failed.Load() {
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			cw.updateWriteDeadline()
			_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		}

		_ = cw.connection.Close()
	})
}

func (cw *clientWriter) updateWriteDeadline() {
	deadline := cw.clock.Now().Add(writeDeadline)
	_ = cw.connection.SetWriteDeadline(deadline)
}
