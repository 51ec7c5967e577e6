package envelope

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Envelope is the message frame shared by the websocket hub and the
// Redis bridge. Room targets a trip subscription group; Origin carries
// the id of the hub instance that first published the event.
type Envelope struct {
	ID        string          `json:"id,omitempty"`
	Event     string          `json:"event"`
	Room      string          `json:"room,omitempty"`
	Origin    string          `json:"origin,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorPayload   `json:"error,omitempty"`
	Timestamp int64           `json:"ts"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func New(event string) Envelope {
	return Envelope{
		ID:        GenerateID(),
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
	}
}

func NewEvent(event string, data interface{}) (Envelope, error) {
	e := New(event)
	raw, err := json.Marshal(data)
	if err != nil {
		return e, err
	}
	e.Data = raw
	return e, nil
}

func NewRoomEvent(event, room string, data interface{}) (Envelope, error) {
	e, err := NewEvent(event, data)
	if err != nil {
		return e, err
	}
	e.Room = room
	return e, nil
}

func NewError(code int, message string) Envelope {
	e := New("error")
	e.Error = &ErrorPayload{Code: code, Message: message}
	return e
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

func ParseData[T any](e Envelope) (T, error) {
	var v T
	err := json.Unmarshal(e.Data, &v)
	return v, err
}

func GenerateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
