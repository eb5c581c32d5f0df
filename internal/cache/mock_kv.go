package cache

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockKV is a mock implementation of the KV interface for testing
// error paths the in-memory implementation cannot produce.
type MockKV struct {
	mock.Mock
}

// Get is the mock implementation of the Get method.
func (m *MockKV) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}

// Set is the mock implementation of the Set method.
func (m *MockKV) Set(ctx context.Context, key string, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0) //nolint:wrapcheck
}
