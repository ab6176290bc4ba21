package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"logileet/internal/shared/util"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (r *recorder) WriteJSON(v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	if e, ok := v.(Event); ok {
		r.events = append(r.events, e)
	}
	return nil
}

func (r *recorder) WriteMessage(messageType int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestClient(userID, role string) (*Client, *recorder) {
	rec := &recorder{}
	return NewClient(rec, userID, role), rec
}

func TestRegisterJoinsPersonalRoom(t *testing.T) {
	hub := NewHub(util.NewLogger())
	client, rec := newTestClient("user-1", "customer")

	hub.Register(client)

	if hub.RoomSize(UserRoom("user-1")) != 1 {
		t.Error("client not in its personal room")
	}
	if hub.RoomSize(AdminRoom) != 0 {
		t.Error("non-admin must not join the admin room")
	}

	hub.ToUser("user-1", "ping", nil)
	if rec.count() != 1 {
		t.Errorf("got %d events, want 1", rec.count())
	}
}

func TestAdminAutoJoinsAdminRoom(t *testing.T) {
	hub := NewHub(util.NewLogger())
	admin, rec := newTestClient("admin-1", "admin")

	hub.Register(admin)

	hub.ToAdmins("delivery-status-updated", map[string]string{"deliveryId": "d-1"})
	if rec.count() != 1 {
		t.Fatalf("admin got %d events, want 1", rec.count())
	}
	if rec.last().Event != "delivery-status-updated" {
		t.Errorf("event = %q", rec.last().Event)
	}
}

func TestEmitReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub(util.NewLogger())
	inRoom, inRec := newTestClient("user-1", "customer")
	outOfRoom, outRec := newTestClient("user-2", "customer")
	hub.Register(inRoom)
	hub.Register(outOfRoom)

	hub.Join(DeliveryRoom("d-1"), inRoom)

	hub.ToDelivery("d-1", "status-update", map[string]string{"status": "picked_up"})

	if inRec.count() != 1 {
		t.Errorf("room member got %d events, want 1", inRec.count())
	}
	if outRec.count() != 0 {
		t.Errorf("non-member got %d events, want 0", outRec.count())
	}
}

func TestEmitToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub(util.NewLogger())
	// Must not panic or create state.
	hub.ToDelivery("nobody-here", "status-update", nil)
	if hub.RoomSize(DeliveryRoom("nobody-here")) != 0 {
		t.Error("emitting created room state")
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub := NewHub(util.NewLogger())
	client, rec := newTestClient("user-1", "customer")
	hub.Register(client)
	hub.Join(DeliveryRoom("d-1"), client)

	hub.ToDelivery("d-1", "status-update", nil)
	hub.Leave(DeliveryRoom("d-1"), client)
	hub.ToDelivery("d-1", "status-update", nil)

	if rec.count() != 1 {
		t.Errorf("got %d events after leaving, want 1", rec.count())
	}
}

func TestDeadSubscriberIsEvicted(t *testing.T) {
	hub := NewHub(util.NewLogger())
	dead := &recorder{fail: true}
	deadClient := NewClient(dead, "user-1", "customer")
	alive, aliveRec := newTestClient("user-2", "customer")

	hub.Join(DeliveryRoom("d-1"), deadClient)
	hub.Join(DeliveryRoom("d-1"), alive)

	hub.ToDelivery("d-1", "status-update", nil)

	if hub.RoomSize(DeliveryRoom("d-1")) != 1 {
		t.Errorf("dead subscriber not evicted, room size = %d", hub.RoomSize(DeliveryRoom("d-1")))
	}
	if aliveRec.count() != 1 {
		t.Errorf("healthy subscriber got %d events, want 1", aliveRec.count())
	}

	// Delivery is at-most-once: the dead client is never retried.
	hub.ToDelivery("d-1", "status-update", nil)
	if hub.RoomSize(DeliveryRoom("d-1")) != 1 {
		t.Error("room membership changed after eviction")
	}
}

func TestEmitExceptSkipsSender(t *testing.T) {
	hub := NewHub(util.NewLogger())
	sender, senderRec := newTestClient("driver-1", "driver")
	watcher, watcherRec := newTestClient("customer-1", "customer")
	hub.Join(DeliveryRoom("d-1"), sender)
	hub.Join(DeliveryRoom("d-1"), watcher)

	hub.EmitExcept(DeliveryRoom("d-1"), "location-update", map[string]string{"deliveryId": "d-1"}, sender)

	if senderRec.count() != 0 {
		t.Errorf("sender got %d events, want 0", senderRec.count())
	}
	if watcherRec.count() != 1 {
		t.Errorf("watcher got %d events, want 1", watcherRec.count())
	}
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	hub := NewHub(util.NewLogger())
	client, rec := newTestClient("admin-1", "admin")
	hub.Register(client)
	hub.Join(DeliveryRoom("d-1"), client)
	hub.Join(DeliveryRoom("d-2"), client)

	hub.Unregister(client)

	hub.ToDelivery("d-1", "status-update", nil)
	hub.ToDelivery("d-2", "status-update", nil)
	hub.ToUser("admin-1", "ping", nil)
	hub.ToAdmins("ping", nil)

	if rec.count() != 0 {
		t.Errorf("unregistered client got %d events, want 0", rec.count())
	}
}

// overlapConn flags any two writes that enter concurrently, regardless of
// which write method they came through.
type overlapConn struct {
	inFlight   int32
	overlapped int32
}

func (c *overlapConn) enter() {
	if atomic.AddInt32(&c.inFlight, 1) > 1 {
		atomic.StoreInt32(&c.overlapped, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.inFlight, -1)
}

func (c *overlapConn) WriteJSON(v interface{}) error {
	c.enter()
	return nil
}

func (c *overlapConn) WriteMessage(messageType int, data []byte) error {
	c.enter()
	return nil
}

func TestPingAndEmitNeverWriteConcurrently(t *testing.T) {
	hub := NewHub(util.NewLogger())
	conn := &overlapConn{}
	client := NewClient(conn, "driver-1", "driver")
	hub.Register(client)
	hub.Join(DeliveryRoom("d-1"), client)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = client.writeMessage(websocket.PingMessage, []byte{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			hub.ToDelivery("d-1", "status-update", nil)
		}
	}()
	wg.Wait()

	if atomic.LoadInt32(&conn.overlapped) != 0 {
		t.Fatal("ping frames interleaved with hub emissions on one connection")
	}
}

func TestEventEnvelope(t *testing.T) {
	hub := NewHub(util.NewLogger())
	client, rec := newTestClient("user-1", "customer")
	hub.Register(client)

	hub.ToUser("user-1", "delivery-assigned", map[string]string{"deliveryId": "d-1"})

	e := rec.last()
	if e.Event != "delivery-assigned" {
		t.Errorf("envelope event = %q", e.Event)
	}
	data, ok := e.Data.(map[string]string)
	if !ok || data["deliveryId"] != "d-1" {
		t.Errorf("envelope data = %+v", e.Data)
	}
}
