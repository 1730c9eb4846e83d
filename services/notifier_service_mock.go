package services

import "sync"

// MockNotifier is a mock implementation of NotifierInterface for testing
type MockNotifier struct {
	events   []JobEvent
	failWith error
	mu       sync.RWMutex
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SetAsMockForTesting sets this mock as the global notifier instance for testing
func (m *MockNotifier) SetAsMockForTesting() {
	SetNotifier(m)
}

// PublishJobEvent records the event instead of publishing it
func (m *MockNotifier) PublishJobEvent(event JobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	m.events = append(m.events, event)
	return nil
}

// FailWith makes subsequent publishes return the given error
func (m *MockNotifier) FailWith(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}

// PublishedEvents returns a copy of all recorded events (for testing assertions)
func (m *MockNotifier) PublishedEvents() []JobEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]JobEvent, len(m.events))
	copy(events, m.events)
	return events
}

// Clear removes all recorded events
func (m *MockNotifier) Clear() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}
