package testutil

import "context"

// MockGitExecutor is a mock implementation of ferry.GitExecutor for testing.
type MockGitExecutor struct {
	RunFunc     func(ctx context.Context, args ...string) ([]byte, error)
	RunWithFunc func(ctx context.Context, stdin []byte, env []string, args ...string) ([]byte, error)
}

func (m *MockGitExecutor) Run(ctx context.Context, args ...string) ([]byte, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, args...)
	}
	return nil, nil
}

func (m *MockGitExecutor) RunWith(ctx context.Context, stdin []byte, env []string, args ...string) ([]byte, error) {
	if m.RunWithFunc != nil {
		return m.RunWithFunc(ctx, stdin, env, args...)
	}
	return nil, nil
}
