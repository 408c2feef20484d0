package tx

import (
	"context"
)

// MockManager runs fn inline. Use in unit tests of domain services.
type MockManager struct {
	// Calls counts RunInTransaction invocations.
	Calls int
	// Err, when set, is returned instead of running fn.
	Err error
}

// RunInTransaction implements Manager.
func (m *MockManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	return fn(ctx)
}

var _ Manager = (*MockManager)(nil)
