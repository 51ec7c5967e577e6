package hub

import (
	"encoding/json"
	"log"
	"sync"

	"flowroute/pkg/broker"
	"flowroute/pkg/envelope"

	"github.com/gofiber/contrib/websocket"
)

// Event names on the realtime channel.
const EventTripCreated = "tripCreated"

// Client actions handled by the read loop.
const (
	actionPing      = "ping"
	actionJoinTrip  = "joinTrip"
	actionLeaveTrip = "leaveTrip"
)

// Conn is the write side of a websocket connection. Satisfied by
// *websocket.Conn; tests substitute a recording fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ClientInfo identifies the connection an action arrived on, plus the
// user identity parsed from the JWT at upgrade time (zero for guests).
type ClientInfo struct {
	ConnID string
	UserID int
	UUID   string
	Name   string
}

type ActionHandler func(cl ClientInfo, env envelope.Envelope)

type client struct {
	conn   Conn
	id     string
	userID int
	uuid   string
	name   string
	mu     sync.Mutex
}

func (cc *client) send(data []byte) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if err := cc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[HUB] send error conn=%s: %v", cc.id, err)
	}
}

// Hub fans trip events out to connected clients and keeps per-trip
// rooms. Delivery is fire-and-forget: a failed write is dropped, never
// surfaced to the publisher. Clients are kept in registration order so
// every broadcast walks them deterministically.
//
// When a broker is attached, broadcasts are also published on the
// events channel tagged with this hub's origin id, and envelopes
// arriving from other origins are relayed to local clients. That is
// how a second instance, or any external producer, reaches a room.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	order   []string
	rooms   map[string]map[string]struct{}

	handlers map[string]ActionHandler

	origin string
	relay  *broker.Broker
}

// EventsChannel is the Redis pub/sub channel bridged by every hub.
const EventsChannel = "rt:events"

func New(b *broker.Broker) *Hub {
	h := &Hub{
		clients:  make(map[string]*client),
		rooms:    make(map[string]map[string]struct{}),
		handlers: make(map[string]ActionHandler),
		origin:   envelope.GenerateID(),
		relay:    b,
	}

	if b != nil {
		b.OnMessage(func(env envelope.Envelope) {
			if env.Origin == h.origin {
				return
			}
			h.deliver(env)
		})
		b.Subscribe(EventsChannel)
	}

	return h
}

// On registers a handler for a client-sent action not handled by the
// hub itself (ping/joinTrip/leaveTrip).
func (h *Hub) On(event string, fn ActionHandler) {
	h.handlers[event] = fn
}

// Register adds a connection and returns its id. HandleClientConn does
// this for real sockets; tests call it directly with a fake Conn.
func (h *Hub) Register(c Conn, userID int, uuid, name string) string {
	cc := &client{conn: c, id: envelope.GenerateID(), userID: userID, uuid: uuid, name: name}

	h.mu.Lock()
	h.clients[cc.id] = cc
	h.order = append(h.order, cc.id)
	h.mu.Unlock()

	log.Printf("[HUB] client connected conn=%s user_id=%d total=%d", cc.id, userID, h.ClientCount())
	return cc.id
}

// Unregister removes the connection and drops it from every room it
// had joined.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.clients, connID)
	for i, id := range h.order {
		if id == connID {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	for trip, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, trip)
		}
	}
	h.mu.Unlock()

	log.Printf("[HUB] client disconnected conn=%s total=%d", connID, h.ClientCount())
}

// HandleClientConn owns the socket until it closes.
func (h *Hub) HandleClientConn(c *websocket.Conn, userID int, uuid, name string) {
	connID := h.Register(c, userID, uuid, name)
	defer func() {
		h.Unregister(connID)
		c.Close()
	}()

	info := ClientInfo{ConnID: connID, UserID: userID, UUID: uuid, Name: name}

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}

		env, err := envelope.Unmarshal(raw)
		if err != nil {
			h.sendTo(connID, envelope.NewError(400, "invalid JSON"))
			continue
		}

		switch env.Event {
		case actionPing:
			h.sendTo(connID, envelope.New("pong"))

		case actionJoinTrip:
			tripID := tripIDFrom(env)
			if tripID == "" {
				h.sendTo(connID, envelope.NewError(400, "tripId is required"))
				continue
			}
			h.JoinRoom(connID, tripID)

		case actionLeaveTrip:
			if tripID := tripIDFrom(env); tripID != "" {
				h.LeaveRoom(connID, tripID)
			}

		default:
			handler, ok := h.handlers[env.Event]
			if !ok {
				h.sendTo(connID, envelope.NewError(404, "unknown event: "+env.Event))
				continue
			}
			handler(info, env)
		}
	}
}

// JoinRoom subscribes the connection to a trip's room. Idempotent.
func (h *Hub) JoinRoom(connID, tripID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.rooms[tripID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[tripID] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) LeaveRoom(connID, tripID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[tripID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, tripID)
	}
}

// Broadcast sends an event to every connected client regardless of
// subscription, and forwards it to other instances via the broker.
func (h *Hub) Broadcast(event string, data interface{}) {
	env, err := envelope.NewEvent(event, data)
	if err != nil {
		log.Printf("[HUB] broadcast marshal error: %v", err)
		return
	}
	h.publish(env)
}

// EmitToRoom sends an event only to clients currently in the trip's
// room. This is the hook point for targeted updates such as live
// locations; the Redis bridge is one producer path into it.
func (h *Hub) EmitToRoom(tripID, event string, data interface{}) {
	env, err := envelope.NewRoomEvent(event, tripID, data)
	if err != nil {
		log.Printf("[HUB] emit marshal error: %v", err)
		return
	}
	h.publish(env)
}

func (h *Hub) publish(env envelope.Envelope) {
	env.Origin = h.origin
	h.deliver(env)
	if h.relay != nil {
		if err := h.relay.Publish(EventsChannel, env); err != nil {
			log.Printf("[HUB] relay publish error: %v", err)
		}
	}
}

// deliver writes the envelope to local clients: everyone when Room is
// empty, room members otherwise. Iteration follows registration order.
func (h *Hub) deliver(env envelope.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.order))
	if env.Room == "" {
		for _, id := range h.order {
			targets = append(targets, h.clients[id])
		}
	} else if members, ok := h.rooms[env.Room]; ok {
		for _, id := range h.order {
			if _, in := members[id]; in {
				targets = append(targets, h.clients[id])
			}
		}
	}
	h.mu.RUnlock()

	for _, cc := range targets {
		cc.send(data)
	}
}

func (h *Hub) sendTo(connID string, env envelope.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		return
	}
	h.mu.RLock()
	cc, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		cc.send(data)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(tripID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tripID])
}

func tripIDFrom(env envelope.Envelope) string {
	var payload struct {
		TripID string `json:"tripId"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return ""
	}
	return payload.TripID
}
