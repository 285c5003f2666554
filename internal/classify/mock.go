package classify

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
)

// MockClassifier replays scripted results. Once the script is exhausted the
// last result repeats; with no script it reports no hand.
type MockClassifier struct {
	mu      sync.Mutex
	results []Result
	err     error
	calls   int
	closed  bool
}

// NewMockClassifier returns a mock that replays results in order.
func NewMockClassifier(results ...Result) *MockClassifier {
	return &MockClassifier{results: results}
}

// Push appends results to the script.
func (m *MockClassifier) Push(results ...Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, results...)
}

// SetError makes every following Classify fail with err.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Classify returns the next scripted result.
func (m *MockClassifier) Classify(*gocv.Mat) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return Result{Symbol: gesture.SymbolNone}, m.err
	}
	if len(m.results) == 0 {
		return Result{Symbol: gesture.SymbolNone}, nil
	}

	r := m.results[0]
	if len(m.results) > 1 {
		m.results = m.results[1:]
	}
	return r, nil
}

// Calls returns how many times Classify was called.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockClassifier) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock closed.
func (m *MockClassifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
