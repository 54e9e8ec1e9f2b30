// Package mockboard provides a mock clipboard implementation for testing.
package mockboard

import (
	"sync"

	"github.com/clipd/clipd/internal/clipboard"
)

// MockClipboard implements clipboard.Clipboard for testing. It is safe
// for concurrent use so daemon tests can drive it from another goroutine.
type MockClipboard struct {
	mu      sync.Mutex
	data    string
	primary string
	writes  []string
	readErr error
}

// New creates a new MockClipboard instance
func New() *MockClipboard {
	return &MockClipboard{}
}

// Read implements clipboard.Clipboard.Read
func (m *MockClipboard) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.data, nil
}

// ReadPrimary implements clipboard.Clipboard.ReadPrimary
func (m *MockClipboard) ReadPrimary() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	if m.primary == "" {
		return "", clipboard.ErrNoPrimary
	}
	return m.primary, nil
}

// Write implements clipboard.Clipboard.Write
func (m *MockClipboard) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = text
	m.writes = append(m.writes, text)
	return nil
}

// IsSupported always returns true for the mock clipboard
func (m *MockClipboard) IsSupported() bool {
	return true
}

// SetData sets the mock clipboard data directly (for testing)
func (m *MockClipboard) SetData(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = text
}

// SetPrimary sets the mock primary selection (for testing)
func (m *MockClipboard) SetPrimary(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary = text
}

// SetReadError makes subsequent reads fail with err (for testing)
func (m *MockClipboard) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// GetData returns the current clipboard data (for testing)
func (m *MockClipboard) GetData() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Writes returns every value written so far (for testing)
func (m *MockClipboard) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}
