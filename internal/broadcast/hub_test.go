package broadcast

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/ecotrack/internal/binstore"
	"github.com/pscheid92/ecotrack/internal/metrics"
	"github.com/pscheid92/ecotrack/internal/protocol"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestHub(t *testing.T, bufferSize int) (*Hub, *binstore.Store) {
	t.Helper()
	store := binstore.New()
	hub := NewHub(store, clockwork.NewFakeClock(), bufferSize)
	t.Cleanup(hub.Stop)
	return hub, store
}

func register(t *testing.T, hub *Hub, conn Conn) {
	t.Helper()
	require.NoError(t, hub.Register(context.Background(), conn))
}

// send queues a frame and waits until the actor has processed it.
func send(hub *Hub, conn Conn, raw string) {
	hub.HandleMessage(context.Background(), conn, []byte(raw))
	hub.ClientCount()
}

func requireMessages(t *testing.T, conn *fakeConn, n int) []map[string]any {
	t.Helper()
	require.Eventually(t, func() bool { return len(conn.textMessages()) >= n }, waitFor, tick)
	msgs := conn.textMessages()
	require.Len(t, msgs, n)
	return msgs
}

func TestHub_RegisterEmptyStoreSendsNothing(t *testing.T) {
	hub, _ := newTestHub(t, 16)
	conn := newFakeConn()

	register(t, hub, conn)

	assert.Equal(t, 1, hub.ClientCount())
	assert.Empty(t, conn.textMessages())
}

func TestHub_SnapshotOnJoin(t *testing.T) {
	hub, store := newTestHub(t, 16)
	store.Create(1, 1)
	store.Create(2, 2)
	store.Create(3, 3)
	store.Delete(2)
	_, err := store.UpdateStatus(3, "half")
	require.NoError(t, err)

	conn := newFakeConn()
	register(t, hub, conn)

	msgs := requireMessages(t, conn, 2)
	assert.Equal(t, map[string]any{"type": "trashbin", "id": 1.0, "latitude": 1.0, "longitude": 1.0, "status": "empty"}, msgs[0])
	assert.Equal(t, map[string]any{"type": "trashbin", "id": 3.0, "latitude": 3.0, "longitude": 3.0, "status": "half"}, msgs[1])
}

func TestHub_SnapshotLargerThanQueueIsDeliveredWhole(t *testing.T) {
	hub, store := newTestHub(t, 2)
	for i := range 50 {
		store.Create(float64(i), float64(i))
	}

	conn := newFakeConn()
	register(t, hub, conn)

	msgs := requireMessages(t, conn, 50)
	assert.Equal(t, 1.0, msgs[0]["id"])
	assert.Equal(t, 50.0, msgs[49]["id"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_RegisterTwiceIsNoop(t *testing.T) {
	hub, store := newTestHub(t, 16)
	store.Create(1, 1)
	conn := newFakeConn()

	register(t, hub, conn)
	register(t, hub, conn)

	assert.Equal(t, 1, hub.ClientCount())
	requireMessages(t, conn, 1)
}

func TestHub_CreateBroadcastsToAllIncludingSender(t *testing.T) {
	hub, _ := newTestHub(t, 16)
	sender, other := newFakeConn(), newFakeConn()
	register(t, hub, sender)
	register(t, hub, other)

	send(hub, sender, `{"type":"trashbin","latitude":10.0,"longitude":20.0}`)

	want := `{"type":"trashbin","id":1,"latitude":10,"longitude":20,"status":"empty"}`
	for _, conn := range []*fakeConn{sender, other} {
		requireMessages(t, conn, 1)
		assert.Equal(t, []string{want}, conn.rawTextMessages())
	}
}

func TestHub_Scenario(t *testing.T) {
	hub, store := newTestHub(t, 16)
	a, b := newFakeConn(), newFakeConn()
	register(t, hub, a)
	register(t, hub, b)

	send(hub, a, `{"type":"trashbin","latitude":10.0,"longitude":20.0}`)
	send(hub, b, `{"type":"updatebinstatus","id":1,"status":"full"}`)
	send(hub, b, `{"type":"updatebinstatus","id":99,"status":"full"}`)
	send(hub, a, `{"type":"editbin","oldLatitude":10.0,"oldLongitude":20.0,"newLatitude":11.0,"newLongitude":21.0}`)
	send(hub, a, `{"type":"editbin","oldLatitude":10.0,"oldLongitude":20.0,"newLatitude":12.0,"newLongitude":22.0}`)
	send(hub, b, `{"type":"deletebin","id":1}`)
	send(hub, b, `{"type":"deletebin","id":1}`)

	want := []string{
		`{"type":"trashbin","id":1,"latitude":10,"longitude":20,"status":"empty"}`,
		`{"type":"binstatus","id":1,"status":"full","latitude":10,"longitude":20}`,
		`{"type":"editbin","id":1,"latitude":11,"longitude":21,"status":"full"}`,
		`{"type":"deletebin","id":1}`,
	}
	for _, conn := range []*fakeConn{a, b} {
		requireMessages(t, conn, len(want))
		assert.Equal(t, want, conn.rawTextMessages())
	}

	assert.Zero(t, store.Len())

	late := newFakeConn()
	register(t, hub, late)
	send(hub, late, `{"type":"trashbin","latitude":5,"longitude":5}`)
	msgs := requireMessages(t, late, 1)
	assert.Equal(t, 2.0, msgs[0]["id"], "snapshot must not replay deleted bins")
}

func TestHub_InvalidStatusLeavesBinAndBroadcastsNothing(t *testing.T) {
	hub, store := newTestHub(t, 16)
	conn := newFakeConn()
	register(t, hub, conn)

	send(hub, conn, `{"type":"trashbin","latitude":1,"longitude":2}`)
	send(hub, conn, `{"type":"updatebinstatus","id":1,"status":"overflowing"}`)
	send(hub, conn, `{"type":"deletebin","id":1}`)

	msgs := requireMessages(t, conn, 2)
	assert.Equal(t, "trashbin", msgs[0]["type"])
	assert.Equal(t, "deletebin", msgs[1]["type"])
	assert.Zero(t, store.Len())
}

func TestHub_IgnoredMessagesDoNotBroadcast(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"type":`},
		{"missing fields", `{"type":"trashbin","latitude":1}`},
		{"location ping", `{"type":"location","latitude":1,"longitude":2}`},
		{"unknown type", `{"type":"teleport","id":1}`},
		{"delete unknown id", `{"type":"deletebin","id":42}`},
		{"edit without match", `{"type":"editbin","oldLatitude":9,"oldLongitude":9,"newLatitude":1,"newLongitude":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, store := newTestHub(t, 16)
			conn := newFakeConn()
			register(t, hub, conn)

			send(hub, conn, tt.raw)
			// Marker: the first frame observed must be this create.
			send(hub, conn, `{"type":"trashbin","latitude":7,"longitude":8}`)

			msgs := requireMessages(t, conn, 1)
			assert.Equal(t, "trashbin", msgs[0]["type"])
			assert.Equal(t, 1, store.Len())
			assert.False(t, conn.isClosed(), "connection must survive ignored messages")
		})
	}
}

func TestHub_DecodeErrorCounted(t *testing.T) {
	hub, _ := newTestHub(t, 16)
	conn := newFakeConn()
	register(t, hub, conn)
	before := testutil.ToFloat64(metrics.MessageDecodeErrorsTotal)

	send(hub, conn, `not json`)

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MessageDecodeErrorsTotal))
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_WriteFailureIsIsolated(t *testing.T) {
	hub, store := newTestHub(t, 16)
	broken, healthy := newFakeConn(), newFakeConn()
	broken.failWrites = true
	register(t, hub, broken)
	register(t, hub, healthy)

	send(hub, healthy, `{"type":"trashbin","latitude":1,"longitude":1}`)

	requireMessages(t, healthy, 1)
	require.Eventually(t, broken.isClosed, waitFor, tick)
	assert.Equal(t, 1, store.Len(), "mutation is committed regardless of delivery")

	skippedBefore := testutil.ToFloat64(metrics.HubSkippedDeliveriesTotal)
	send(hub, healthy, `{"type":"trashbin","latitude":2,"longitude":2}`)

	requireMessages(t, healthy, 2)
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(metrics.HubSkippedDeliveriesTotal))
}

func TestHub_SlowClientEvicted(t *testing.T) {
	hub, _ := newTestHub(t, 1)
	stalled, healthy := newFakeConn(), newFakeConn()
	stalled.blockWrites = true
	register(t, hub, stalled)
	register(t, hub, healthy)
	evictedBefore := testutil.ToFloat64(metrics.HubSlowClientsEvicted)

	for i := range 4 {
		send(hub, healthy, fmt.Sprintf(`{"type":"trashbin","latitude":%d,"longitude":%d}`, i, i))
		requireMessages(t, healthy, i+1)
	}

	assert.Equal(t, 1, hub.ClientCount())
	assert.True(t, stalled.isClosed())
	assert.Equal(t, evictedBefore+1, testutil.ToFloat64(metrics.HubSlowClientsEvicted))
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub, _ := newTestHub(t, 16)
	conn := newFakeConn()
	register(t, hub, conn)

	hub.Unregister(conn)
	hub.Unregister(conn)
	hub.Unregister(newFakeConn())

	assert.Equal(t, 0, hub.ClientCount())
	assert.True(t, conn.isClosed())
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub, _ := newTestHub(t, 16)
	conn := newFakeConn()

	send(hub, conn, `{"type":"trashbin","latitude":1,"longitude":1}`)

	assert.Equal(t, 0, hub.ClientCount())
	assert.Empty(t, conn.textMessages())
}

func TestHub_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	hub, store := newTestHub(t, 512)
	observer := newFakeConn()
	register(t, hub, observer)

	const senders, perSender = 8, 25
	var wg sync.WaitGroup
	for range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := newFakeConn()
			for range perSender {
				hub.HandleMessage(context.Background(), conn, []byte(`{"type":"trashbin","latitude":1,"longitude":1}`))
			}
		}()
	}
	wg.Wait()

	msgs := requireMessages(t, observer, senders*perSender)
	seen := make(map[float64]bool)
	for i, m := range msgs {
		id := m["id"].(float64)
		assert.False(t, seen[id], "duplicate id %v", id)
		seen[id] = true
		assert.Equal(t, float64(i+1), id, "events are fanned out in id order")
	}
	assert.Equal(t, senders*perSender, store.Len())
}

func TestHub_StopSendsCloseFrame(t *testing.T) {
	hub, _ := newTestHub(t, 16)
	conn := newFakeConn()
	register(t, hub, conn)

	hub.Stop()

	assert.True(t, conn.hasFrame(ws.CloseMessage))
	assert.True(t, conn.isClosed())
	assert.ErrorIs(t, hub.Register(context.Background(), newFakeConn()), ErrHubStopped)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_ExternalBroadcast(t *testing.T) {
	hub, store := newTestHub(t, 16)
	conn := newFakeConn()
	register(t, hub, conn)

	bin := store.Create(3, 4)
	hub.Broadcast(protocol.NewBinCreated(bin))
	hub.ClientCount()

	msgs := requireMessages(t, conn, 1)
	assert.Equal(t, 1.0, msgs[0]["id"])
}

func TestHub_Ready(t *testing.T) {
	hub, _ := newTestHub(t, 4)

	require.NoError(t, hub.Ready(context.Background()))

	hub.Stop()
	assert.ErrorIs(t, hub.Ready(context.Background()), ErrHubStopped)
}
