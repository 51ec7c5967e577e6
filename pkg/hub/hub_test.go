package hub

import (
	"testing"

	"flowroute/pkg/envelope"
	"flowroute/pkg/models"
)

type fakeConn struct {
	messages [][]byte
	closed   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) lastEnvelope(t *testing.T) envelope.Envelope {
	t.Helper()
	if len(f.messages) == 0 {
		t.Fatalf("no messages received")
	}
	env, err := envelope.Unmarshal(f.messages[len(f.messages)-1])
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := New(nil)

	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a, 1, "u-1", "John")
	h.Register(b, 0, "", "")

	trip := models.Trip{ID: "42", From: "A", To: "B", Status: models.TripStatusActive}
	h.Broadcast(EventTripCreated, trip)

	for i, fc := range []*fakeConn{a, b} {
		env := fc.lastEnvelope(t)
		if env.Event != EventTripCreated {
			t.Fatalf("client %d: expected tripCreated, got %s", i, env.Event)
		}
		got, err := envelope.ParseData[models.Trip](env)
		if err != nil {
			t.Fatalf("client %d: parse data: %v", i, err)
		}
		if got.ID != "42" || got.From != "A" {
			t.Fatalf("client %d: wrong trip payload %+v", i, got)
		}
	}
}

func TestEmitToRoomOnlyReachesMembers(t *testing.T) {
	h := New(nil)

	member, outsider := &fakeConn{}, &fakeConn{}
	memberID := h.Register(member, 1, "u-1", "John")
	h.Register(outsider, 2, "u-2", "Jane")

	h.JoinRoom(memberID, "trip-1")
	h.EmitToRoom("trip-1", "locationUpdate", map[string]float64{"lat": 1, "lng": 2})

	if len(member.messages) != 1 {
		t.Fatalf("member should receive the room event, got %d messages", len(member.messages))
	}
	if len(outsider.messages) != 0 {
		t.Fatalf("outsider received %d room events", len(outsider.messages))
	}

	env := member.lastEnvelope(t)
	if env.Room != "trip-1" || env.Event != "locationUpdate" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	h := New(nil)

	fc := &fakeConn{}
	id := h.Register(fc, 0, "", "")

	h.JoinRoom(id, "trip-1")
	h.JoinRoom(id, "trip-1")

	if h.RoomSize("trip-1") != 1 {
		t.Fatalf("expected room size 1, got %d", h.RoomSize("trip-1"))
	}

	h.EmitToRoom("trip-1", "ping", nil)
	if len(fc.messages) != 1 {
		t.Fatalf("double join caused %d deliveries", len(fc.messages))
	}
}

func TestUnregisterLeavesRooms(t *testing.T) {
	h := New(nil)

	fc := &fakeConn{}
	id := h.Register(fc, 0, "", "")
	h.JoinRoom(id, "trip-1")

	h.Unregister(id)

	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.ClientCount())
	}
	if h.RoomSize("trip-1") != 0 {
		t.Fatalf("room membership survived disconnect")
	}

	h.Broadcast(EventTripCreated, models.Trip{ID: "1"})
	if len(fc.messages) != 0 {
		t.Fatalf("disconnected client still received %d events", len(fc.messages))
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := New(nil)

	fc := &fakeConn{}
	id := h.Register(fc, 0, "", "")

	h.JoinRoom(id, "trip-1")
	h.LeaveRoom(id, "trip-1")

	h.EmitToRoom("trip-1", "locationUpdate", nil)
	if len(fc.messages) != 0 {
		t.Fatalf("left client still received %d events", len(fc.messages))
	}
}
