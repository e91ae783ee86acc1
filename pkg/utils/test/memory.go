package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/memory/local"
)

// ErrMockMemory is returned by MockMemoryDriver when a Fail flag is set.
var ErrMockMemory = errors.New("mock memory failure")

// MockMemoryDriver wraps the in-memory driver with switchable failures.
type MockMemoryDriver struct {
	*local.Driver

	mu sync.Mutex

	// FailList causes ListClaims and ListActions to error.
	FailList bool

	// FailWrite causes every write to error.
	FailWrite bool
}

// NewMockMemoryDriver creates a new mock memory driver.
func NewMockMemoryDriver() *MockMemoryDriver {
	return &MockMemoryDriver{Driver: local.NewDriver()}
}

// SetFailList toggles FailList under the lock.
func (m *MockMemoryDriver) SetFailList(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailList = fail
}

// SetFailWrite toggles FailWrite under the lock.
func (m *MockMemoryDriver) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailWrite = fail
}

func (m *MockMemoryDriver) failList() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FailList
}

func (m *MockMemoryDriver) failWrite() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FailWrite
}

func (m *MockMemoryDriver) ListClaims(ctx context.Context, status *memory.ClaimStatus) ([]memory.Claim, error) {
	if m.failList() {
		return nil, ErrMockMemory
	}
	return m.Driver.ListClaims(ctx, status)
}

func (m *MockMemoryDriver) ListActions(ctx context.Context) ([]memory.Action, error) {
	if m.failList() {
		return nil, ErrMockMemory
	}
	return m.Driver.ListActions(ctx)
}

func (m *MockMemoryDriver) UpsertClaim(ctx context.Context, claim memory.Claim) (string, error) {
	if m.failWrite() {
		return "", ErrMockMemory
	}
	return m.Driver.UpsertClaim(ctx, claim)
}

func (m *MockMemoryDriver) CreateAction(ctx context.Context, action memory.Action) (string, error) {
	if m.failWrite() {
		return "", ErrMockMemory
	}
	return m.Driver.CreateAction(ctx, action)
}

func (m *MockMemoryDriver) CreateReviewItem(ctx context.Context, item memory.ReviewItem) (string, error) {
	if m.failWrite() {
		return "", ErrMockMemory
	}
	return m.Driver.CreateReviewItem(ctx, item)
}

var _ memory.Driver = (*MockMemoryDriver)(nil)
