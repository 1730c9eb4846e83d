package services

import "sync"

// DispatchRecord captures one message sent to a printer
type DispatchRecord struct {
	PrinterID string
	JobID     string
	Type      string
	FileURL   string
	Material  string
}

// MockDispatcher is a mock implementation of DispatcherInterface for testing
type MockDispatcher struct {
	records []DispatchRecord
	failErr error
	mu      sync.RWMutex
}

// NewMockDispatcher creates a new mock dispatcher
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// SetAsMockForTesting sets this mock as the global dispatcher instance for testing
func (m *MockDispatcher) SetAsMockForTesting() {
	SetDispatcher(m)
}

// DispatchJob records a start message
func (m *MockDispatcher) DispatchJob(printerID, jobID, fileURL, material string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}
	m.records = append(m.records, DispatchRecord{
		PrinterID: printerID,
		JobID:     jobID,
		Type:      "start",
		FileURL:   fileURL,
		Material:  material,
	})
	return nil
}

// CancelJob records a cancel message
func (m *MockDispatcher) CancelJob(printerID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}
	m.records = append(m.records, DispatchRecord{
		PrinterID: printerID,
		JobID:     jobID,
		Type:      "cancel",
	})
	return nil
}

// FailWith makes every subsequent dispatch return err
func (m *MockDispatcher) FailWith(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

// Dispatches returns the messages recorded so far (for testing assertions)
func (m *MockDispatcher) Dispatches() []DispatchRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]DispatchRecord, len(m.records))
	copy(records, m.records)
	return records
}

// Clear resets the recorded messages
func (m *MockDispatcher) Clear() {
	m.mu.Lock()
	m.records = nil
	m.failErr = nil
	m.mu.Unlock()
}
