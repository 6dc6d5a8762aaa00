// Package hub fans blink events out to websocket subscribers using the
// channel-based register/unregister/broadcast pattern, and forwards frames
// uploaded over the same sockets to the pipeline.
package hub

import (
	"encoding/json"

	"github.com/teslashibe/go-blink/pkg/event"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., JPEG frames)
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// Envelope is the wire form of an event: {"event": name, "data": payload}.
type Envelope = event.Event

// EncodeEvent builds the JSON message for a named event.
func EncodeEvent(name string, payload event.Payload) (Message, error) {
	if payload == nil {
		payload = event.Payload{}
	}
	data, err := json.Marshal(Envelope{Name: name, Payload: payload})
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
