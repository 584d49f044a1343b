// Package events records what happens to checkout transactions and fans it out to subscribers.
package events

import (
	"time"
)

type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
	DeleteStream(streamID string) error
}

type BaseEvent struct {
	EventType    string      `json:"type"`
	Stream       string      `json:"streamId"`
	EventData    interface{} `json:"data,omitempty"`
	EventTime    time.Time   `json:"timestamp"`
	EventVersion int         `json:"version"`
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) Data() interface{} {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e BaseEvent) Version() int {
	return e.EventVersion
}

// NewEvent creates an unversioned event; the store assigns the stream version on append
func NewEvent(eventType, streamID string, data interface{}, at time.Time) Event {
	return BaseEvent{
		EventType: eventType,
		Stream:    streamID,
		EventData: data,
		EventTime: at.UTC(),
	}
}

// FuncHandler adapts a function to EventHandler. Use a pointer so it can be unsubscribed.
type FuncHandler struct {
	types map[string]bool
	fn    func(Event) error
}

// NewFuncHandler handles the listed event types, or every type when none are given
func NewFuncHandler(fn func(Event) error, eventTypes ...string) *FuncHandler {
	h := &FuncHandler{fn: fn}
	if len(eventTypes) > 0 {
		h.types = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			h.types[t] = true
		}
	}
	return h
}

func (h *FuncHandler) Handle(event Event) error {
	return h.fn(event)
}

func (h *FuncHandler) CanHandle(eventType string) bool {
	return h.types == nil || h.types[eventType]
}
