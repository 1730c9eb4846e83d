package services

import (
	"fmt"
	"sync"

	"github.com/printvend/printvend-api/utils"
)

// MockS3Service is a mock implementation of S3Interface for testing
type MockS3Service struct {
	objects map[string]bool // set of stored S3 keys
	deleted []string
	mu      sync.RWMutex
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		objects: make(map[string]bool),
	}
}

// SetAsMockForTesting sets this mock as the global S3 service instance for testing
func (m *MockS3Service) SetAsMockForTesting() {
	SetS3Service(m)
}

// AddObject registers a stored object key so presigning succeeds for it
func (m *MockS3Service) AddObject(key string) {
	m.mu.Lock()
	m.objects[key] = true
	m.mu.Unlock()
}

// GetPresignedURL simulates generating a presigned URL
func (m *MockS3Service) GetPresignedURL(fileRef string) (string, error) {
	if fileRef == "" {
		return "", nil
	}
	_, key, ok := utils.ParseS3URL(fileRef)
	if !ok {
		return fileRef, nil
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// DeleteFile simulates deleting a stored file
func (m *MockS3Service) DeleteFile(fileRef string) error {
	_, key, ok := utils.ParseS3URL(fileRef)
	if !ok {
		return nil
	}

	m.mu.Lock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	m.mu.Unlock()
	return nil
}

// DeletedKeys returns the keys deleted so far (for testing assertions)
func (m *MockS3Service) DeletedKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, len(m.deleted))
	copy(keys, m.deleted)
	return keys
}

// Clear resets the mock storage
func (m *MockS3Service) Clear() {
	m.mu.Lock()
	m.objects = make(map[string]bool)
	m.deleted = nil
	m.mu.Unlock()
}
