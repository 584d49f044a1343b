package events

import (
	"sync"

	"go.uber.org/zap"
)

// Wildcard subscribes a handler to every event type
const Wildcard = "*"

// DefaultRetention is how many events the store keeps when no limit is given
const DefaultRetention = 10000

type eventStream struct {
	events []Event
	// number of versions already dropped from the front
	trimmed int
}

type InMemoryEventStore struct {
	streams     map[string]*eventStream
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	allEvents   []Event
	retention   int
	logger      *zap.Logger
	inflight    sync.WaitGroup
}

// Verify interface compliance
var _ EventStore = (*InMemoryEventStore)(nil)

// StoreOption configures an InMemoryEventStore
type StoreOption func(*InMemoryEventStore)

// WithRetention caps the number of events kept across all streams; the oldest
// are dropped first. Zero or less keeps DefaultRetention.
func WithRetention(maxEvents int) StoreOption {
	return func(s *InMemoryEventStore) {
		if maxEvents > 0 {
			s.retention = maxEvents
		}
	}
}

func NewInMemoryEventStore(logger *zap.Logger, opts ...StoreOption) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InMemoryEventStore{
		streams:     make(map[string]*eventStream),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
		retention:   DefaultRetention,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()

	stream, ok := s.streams[streamID]
	if !ok {
		stream = &eventStream{}
		s.streams[streamID] = stream
	}
	eventWithVersion := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: stream.trimmed + len(stream.events) + 1,
	}

	stream.events = append(stream.events, eventWithVersion)
	s.allEvents = append(s.allEvents, eventWithVersion)
	s.trimLocked()

	handlers := s.handlersLocked(eventWithVersion.EventType)
	// Add under the lock so Wait cannot miss a delivery that is about to start
	s.inflight.Add(len(handlers))
	s.mutex.Unlock()

	for _, h := range handlers {
		go s.deliver(h, eventWithVersion)
	}
	return nil
}

// ReadEvents returns the retained events of a stream from fromVersion on
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stream, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}

	start := fromVersion - 1 - stream.trimmed
	if start < 0 {
		start = 0
	}

	if start >= len(stream.events) {
		return []Event{}, nil
	}

	return append([]Event(nil), stream.events[start:]...), nil
}

// ReadAllEvents returns retained events in append order; positions index the
// retained log
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}

	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}

	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

// DeleteStream forgets every event of a stream. Deliveries already started
// still complete.
func (s *InMemoryEventStore) DeleteStream(streamID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.streams[streamID]; !ok {
		return nil
	}
	delete(s.streams, streamID)

	kept := s.allEvents[:0]
	for _, e := range s.allEvents {
		if e.StreamID() != streamID {
			kept = append(kept, e)
		}
	}
	clear(s.allEvents[len(kept):])
	s.allEvents = kept
	return nil
}

// trimLocked drops the oldest events until the store is within its retention
func (s *InMemoryEventStore) trimLocked() {
	excess := len(s.allEvents) - s.retention
	if excess <= 0 {
		return
	}
	for _, e := range s.allEvents[:excess] {
		stream, ok := s.streams[e.StreamID()]
		if !ok || len(stream.events) == 0 {
			continue
		}
		stream.events[0] = nil
		stream.events = stream.events[1:]
		stream.trimmed++
		if len(stream.events) == 0 {
			delete(s.streams, e.StreamID())
		}
	}
	clear(s.allEvents[:excess])
	s.allEvents = s.allEvents[excess:]
	s.logger.Debug("event history trimmed", zap.Int("dropped", excess), zap.Int("retained", len(s.allEvents)))
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}

	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		newHandlers := make([]EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				newHandlers = append(newHandlers, h)
			}
		}
		s.subscribers[eventType] = newHandlers
	}

	return nil
}

// Wait blocks until every delivery started so far has finished
func (s *InMemoryEventStore) Wait() {
	s.inflight.Wait()
}

func (s *InMemoryEventStore) handlersLocked(eventType string) []EventHandler {
	var matched []EventHandler
	for _, key := range []string{eventType, Wildcard} {
		for _, handler := range s.subscribers[key] {
			if handler.CanHandle(eventType) {
				matched = append(matched, handler)
			}
		}
	}
	return matched
}

func (s *InMemoryEventStore) deliver(h EventHandler, e Event) {
	defer s.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event handler panicked",
				zap.String("event_type", e.Type()),
				zap.String("stream_id", e.StreamID()),
				zap.Any("panic", r))
		}
	}()
	if err := h.Handle(e); err != nil {
		s.logger.Warn("error handling event",
			zap.String("event_type", e.Type()),
			zap.String("stream_id", e.StreamID()),
			zap.Int("version", e.Version()),
			zap.Error(err))
	}
}
