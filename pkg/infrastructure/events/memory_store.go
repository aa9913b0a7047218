package events

import (
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 256

// InMemoryEventStore keeps events per stream and delivers them to subscribers
// from a single dispatcher goroutine, in append order. AppendEvent never
// blocks on subscribers: when the delivery queue is full the notification is
// dropped, the event itself stays readable through ReadEvents.
type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	logger      *zap.Logger

	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
	closed    bool
	dropped   int
}

func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		logger:      logger,
		queue:       make(chan Event, defaultQueueSize),
		done:        make(chan struct{}),
	}
	go s.dispatch()
	return s
}

var _ EventStore = (*InMemoryEventStore)(nil)

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored := stamp(event, streamID, len(s.streams[streamID])+1)
	s.streams[streamID] = append(s.streams[streamID], stored)

	if s.closed {
		return nil
	}
	select {
	case s.queue <- stored:
	default:
		s.dropped++
		s.logger.Debug("event notification dropped",
			zap.String("stream_id", streamID),
			zap.String("type", event.Type()))
	}
	return nil
}

// ReadEvents returns the events of a stream starting at fromVersion (1-based)
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}

	out := make([]Event, len(events)-fromVersion+1)
	copy(out, events[fromVersion-1:])
	return out, nil
}

// DeleteStream forgets a finished run
func (s *InMemoryEventStore) DeleteStream(streamID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.streams, streamID)
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
		kept := make([]EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if !sameHandler(h, handler) {
				kept = append(kept, h)
			}
		}
		s.subscribers[eventType] = kept
	}
	return nil
}

// Close stops accepting notifications and waits until every queued event has
// been delivered. Events can still be appended and read afterwards.
func (s *InMemoryEventStore) Close() {
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		close(s.queue)
		s.mutex.Unlock()
		<-s.done
	})
}

// Dropped returns how many notifications were skipped because the queue was full
func (s *InMemoryEventStore) Dropped() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.dropped
}

func (s *InMemoryEventStore) dispatch() {
	defer close(s.done)
	for event := range s.queue {
		s.mutex.RLock()
		handlers := append([]EventHandler(nil), s.subscribers[event.Type()]...)
		s.mutex.RUnlock()

		for _, handler := range handlers {
			if !handler.CanHandle(event.Type()) {
				continue
			}
			if err := handler.Handle(event); err != nil {
				s.logger.Warn("event handler failed",
					zap.String("type", event.Type()),
					zap.String("stream_id", event.StreamID()),
					zap.Error(err))
			}
		}
	}
}

// sameHandler compares handlers without panicking on uncomparable values
// such as HandlerFunc
func sameHandler(a, b EventHandler) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
