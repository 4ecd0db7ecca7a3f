package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/ecotrack/internal/domain"
	"github.com/pscheid92/ecotrack/internal/metrics"
	"github.com/pscheid92/ecotrack/internal/protocol"
)

const (
	commandTimeout    = 5 * time.Second
	stopTimeout       = 10 * time.Second
	commandBufferSize = 256
)

var ErrHubStopped = errors.New("hub stopped")

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	ctx          context.Context
	connection   Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection Conn
}

type messageCmd struct {
	baseHubCmd
	ctx        context.Context
	connection Conn
	data       []byte
}

type broadcastCmd struct {
	baseHubCmd
	event protocol.Event
}

type getClientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub owns the set of observer connections and turns their messages into store
// mutations followed by a fan-out to every observer.
type Hub struct {
	cmdCh         chan hubCmd
	clock         clockwork.Clock
	store         domain.BinStore
	activeClients map[Conn]*clientWriter
	done          chan struct{}
	stopTimeout   time.Duration
	bufferSize    int
}

// NewHub creates a hub and starts its actor goroutine.
// bufferSize bounds each connection's outbound queue; a peer that falls that far behind
// is evicted.
func NewHub(store domain.BinStore, clock clockwork.Clock, bufferSize int) *Hub {
	h := &Hub{
		cmdCh:         make(chan hubCmd, commandBufferSize),
		clock:         clock,
		store:         store,
		activeClients: make(map[Conn]*clientWriter),
		done:          make(chan struct{}),
		stopTimeout:   stopTimeout,
		bufferSize:    bufferSize,
	}
	go h.run()
	return h
}

// Register adds a connection and queues one trashbin event per existing bin to it.
func (h *Hub) Register(ctx context.Context, conn Conn) error {
	errCh := make(chan error, 1)
	if !h.send(registerCmd{ctx: ctx, connection: conn, errorChannel: errCh}) {
		return ErrHubStopped
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-h.done:
		return ErrHubStopped
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection. Unknown connections are ignored.
func (h *Hub) Unregister(conn Conn) {
	h.send(unregisterCmd{connection: conn})
}

// HandleMessage queues one raw inbound frame. Frames from one connection are processed
// in the order this method is called.
func (h *Hub) HandleMessage(ctx context.Context, conn Conn, data []byte) {
	h.send(messageCmd{ctx: ctx, connection: conn, data: data})
}

// Broadcast fans an event out to every registered connection.
func (h *Hub) Broadcast(event protocol.Event) {
	h.send(broadcastCmd{event: event})
}

// ClientCount returns the number of registered connections. It returns 0 once the hub has
// stopped and -1 if the actor does not answer in time.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if !h.send(getClientCountCmd{replyChannel: replyCh}) {
		return 0
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-h.done:
		return 0
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Ready reports whether the actor loop is running and answering commands.
func (h *Hub) Ready(ctx context.Context) error {
	replyCh := make(chan int, 1)
	if !h.send(getClientCountCmd{replyChannel: replyCh}) {
		return ErrHubStopped
	}

	select {
	case <-replyCh:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return fmt.Errorf("hub did not answer: %w", ctx.Err())
	}
}

// Stop closes every connection with a close frame and waits for the actor to exit.
func (h *Hub) Stop() {
	if !h.send(stopCmd{}) {
		return
	}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", h.stopTimeout)
		metrics.HubStopTimeoutsTotal.Inc()
	}
}

func (h *Hub) send(cmd hubCmd) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			metrics.HubPanicsTotal.Inc()
			h.closeAllClients("hub panic")
		}
	}()

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.connection)
		case messageCmd:
			h.handleMessage(c)
		case broadcastCmd:
			h.fanOut(c.event)
		case getClientCountCmd:
			c.replyChannel <- len(h.activeClients)
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if _, exists := h.activeClients[c.connection]; exists {
		c.errorChannel <- nil
		return
	}

	snapshot := h.store.Snapshot()
	frames := make([][]byte, 0, len(snapshot))
	for _, bin := range snapshot {
		data, err := protocol.Encode(protocol.NewBinCreated(bin))
		if err != nil {
			slog.ErrorContext(c.ctx, "Failed to encode snapshot bin", "bin_id", bin.ID, "error", err)
			continue
		}
		frames = append(frames, data)
	}

	cw := newClientWriter(c.connection, h.clock, h.bufferSize, frames)
	h.activeClients[c.connection] = cw
	metrics.HubConnectedClients.Set(float64(len(h.activeClients)))

	slog.InfoContext(c.ctx, "Client connected",
		"client_id", cw.id.String(),
		"snapshot_bins", len(frames),
		"total_clients", len(h.activeClients),
	)
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(conn Conn) {
	cw, exists := h.activeClients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.activeClients, conn)
	metrics.HubConnectedClients.Set(float64(len(h.activeClients)))

	slog.Info("Client disconnected", "client_id", cw.id.String(), "remaining_clients", len(h.activeClients))
}

// fanOut serializes once and offers the frame to every writable connection.
// Store state is already committed; delivery is best effort and never retried.
func (h *Hub) fanOut(event protocol.Event) {
	data, err := protocol.Encode(event)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "error", err)
		return
	}
	metrics.HubBroadcastsTotal.WithLabelValues(event.EventType()).Inc()

	var slow []Conn
	for conn, cw := range h.activeClients {
		if !cw.writable() {
			metrics.HubSkippedDeliveriesTotal.Inc()
			continue
		}
		if !cw.offer(data) {
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "client_id", h.activeClients[conn].id.String())
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(conn)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "total_clients", len(h.activeClients))
	h.closeAllClients("Server shutting down")
}

// closeAllClients closes all client connections with the given reason.
// Used during panic recovery and graceful shutdown.
func (h *Hub) closeAllClients(reason string) {
	for conn, cw := range h.activeClients {
		cw.stopGraceful(reason)
		delete(h.activeClients, conn)
	}
	metrics.HubConnectedClients.Set(0)
}
