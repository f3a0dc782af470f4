// Package bustest provides test doubles for sm5714.I2CBus.
package bustest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
)

// MockI2CBus is a mock implementation of sm5714.I2CBus using testify/mock.
// It tracks concurrent calls so tests can assert serialization.
type MockI2CBus struct {
	mock.Mock
	concurrentOps int64
	maxConcurrent int64
	mu            sync.Mutex
}

func (m *MockI2CBus) enter() {
	m.mu.Lock()
	concurrent := atomic.AddInt64(&m.concurrentOps, 1)
	if concurrent > atomic.LoadInt64(&m.maxConcurrent) {
		atomic.StoreInt64(&m.maxConcurrent, concurrent)
	}
	m.mu.Unlock()
}

func (m *MockI2CBus) leave() {
	m.mu.Lock()
	atomic.AddInt64(&m.concurrentOps, -1)
	m.mu.Unlock()
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	m.enter()
	defer m.leave()
	// the caller reuses its scratch buffer, record a copy
	args := m.Called(ctx, address, append([]byte(nil), buffer...))
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, address, len(buffer))
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MaxConcurrent returns the highest number of overlapping calls observed.
func (m *MockI2CBus) MaxConcurrent() int64 {
	return atomic.LoadInt64(&m.maxConcurrent)
}

// MockCountingBus additionally reports read byte counts, which lets tests
// produce short reads. Reads are matched against "ReadFromAddr" expectations.
type MockCountingBus struct {
	MockI2CBus
}

func (m *MockCountingBus) ReadCountFromAddr(ctx context.Context, address byte, buffer []byte) (int, error) {
	m.enter()
	defer m.leave()
	args := m.MethodCalled("ReadFromAddr", ctx, address, len(buffer))
	data, _ := args.Get(0).([]byte)
	n := copy(buffer, data)
	return n, args.Error(1)
}
