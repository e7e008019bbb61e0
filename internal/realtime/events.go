package realtime

import "encoding/json"

// Client-to-server events.
const (
	EventTaskCreate  = "task:create"
	EventTaskUpdate  = "task:update"
	EventTaskDelete  = "task:delete"
	EventTaskShare   = "task:share"
	EventTaskJoin    = "task:join"
	EventTaskLeave   = "task:leave"
	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"
)

// Server-to-client events.
const (
	EventTaskCreated  = "task:created"
	EventTaskUpdated  = "task:updated"
	EventTaskDeleted  = "task:deleted"
	EventTaskShared   = "task:shared"
	EventTaskReminder = "task:reminder"
	EventError        = "error"

	AckTaskCreate = "task:create:success"
	AckTaskUpdate = "task:update:success"
	AckTaskDelete = "task:delete:success"
	AckTaskShare  = "task:share:success"
)

// Event is the wire frame in both directions.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// inboundEvent defers payload decoding until the event name is known.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func errorEvent(code, message string) Event {
	return Event{Event: EventError, Data: map[string]string{"code": code, "message": message}}
}
