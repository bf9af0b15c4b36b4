package testutil

import "context"

// MockShell is a mock implementation of ferry.RemoteShell for testing.
// It records every script it is asked to run.
type MockShell struct {
	RunFunc func(ctx context.Context, script string) ([]byte, error)
	Scripts []string
}

func (m *MockShell) Run(ctx context.Context, script string) ([]byte, error) {
	m.Scripts = append(m.Scripts, script)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, script)
	}
	return nil, nil
}
