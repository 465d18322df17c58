package chatapi

import (
	"encoding/json"
	"fmt"
)

// EventType identifies one of the five event kinds the chat endpoint emits.
type EventType string

const (
	EventThreadCreated  EventType = "thread_created"
	EventChunk          EventType = "chunk"
	EventTitleGenerated EventType = "title_generated"
	EventDone           EventType = "done"
	EventError          EventType = "error"
)

// StreamEvent is one parsed server-sent event from the chat stream.
type StreamEvent struct {
	Type     EventType `json:"type"`
	Content  string    `json:"content,omitempty"`
	ThreadID string    `json:"thread_id,omitempty"`
	Title    string    `json:"title,omitempty"`
}

// parseEvent decodes and validates an SSE data payload at the transport
// boundary, so consumers only ever see the closed set of event kinds.
func parseEvent(data []byte) (StreamEvent, error) {
	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return StreamEvent{}, fmt.Errorf("failed to decode stream event: %w", err)
	}

	switch event.Type {
	case EventThreadCreated, EventChunk, EventTitleGenerated, EventDone, EventError:
		return event, nil
	default:
		return StreamEvent{}, fmt.Errorf("unknown stream event type: %q", event.Type)
	}
}
