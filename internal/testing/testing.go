// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"maps"
	"net/http"
	"os"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MemorySlots is an in-memory slot store. Setting FailWrites or FailReads makes the matching calls fail.
type MemorySlots struct {
	mu         sync.Mutex
	values     map[string]string
	FailWrites bool
	FailReads  bool
}

func NewMemorySlots(initial map[string]string) *MemorySlots {
	values := make(map[string]string, len(initial))
	maps.Copy(values, initial)
	return &MemorySlots{values: values}
}

func (m *MemorySlots) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return "", false, errors.New("read failed")
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemorySlots) PutAll(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("write failed")
	}
	maps.Copy(m.values, values)
	return nil
}

func (m *MemorySlots) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("write failed")
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Snapshot returns a copy of the stored values.
func (m *MemorySlots) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
