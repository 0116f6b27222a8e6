package ws

import "encoding/json"

// Event names exchanged over the socket.
const (
	EventMessage      = "message"
	EventMessageError = "message:error"
)

// Event is one JSON frame on the socket: a tagged payload.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChatPayload is the client's inbound chat event.
type ChatPayload struct {
	ProjectID string `json:"projectId"`
	Content   string `json:"content"`
}

// ReplyPayload is a delivered assistant turn.
type ReplyPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Role string `json:"role"`
}

// ErrorPayload reports an event-level failure to the originating caller.
type ErrorPayload struct {
	Error string `json:"error"`
}

// EncodeEvent marshals a named event frame.
func EncodeEvent(name string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: name, Data: raw})
}
