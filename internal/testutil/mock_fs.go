package testutil

import (
	"io/fs"
	"os"
)

// MockFS is a mock implementation of ferry.FileSystem for testing.
type MockFS struct {
	StatFunc      func(name string) (fs.FileInfo, error)
	LstatFunc     func(name string) (fs.FileInfo, error)
	ReadlinkFunc  func(name string) (string, error)
	GlobFunc      func(dir, pattern string) ([]string, error)
	MkdirAllFunc  func(path string, perm fs.FileMode) error
	WriteFileFunc func(name string, data []byte, perm fs.FileMode) error
}

func (m *MockFS) Stat(name string) (fs.FileInfo, error) {
	if m.StatFunc != nil {
		return m.StatFunc(name)
	}
	return nil, nil
}

func (m *MockFS) Lstat(name string) (fs.FileInfo, error) {
	if m.LstatFunc != nil {
		return m.LstatFunc(name)
	}
	return nil, nil
}

func (m *MockFS) Readlink(name string) (string, error) {
	if m.ReadlinkFunc != nil {
		return m.ReadlinkFunc(name)
	}
	return "", nil
}

func (m *MockFS) IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

func (m *MockFS) Glob(dir, pattern string) ([]string, error) {
	if m.GlobFunc != nil {
		return m.GlobFunc(dir, pattern)
	}
	return nil, nil
}

func (m *MockFS) MkdirAll(path string, perm fs.FileMode) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(path, perm)
	}
	return nil
}

func (m *MockFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if m.WriteFileFunc != nil {
		return m.WriteFileFunc(name, data, perm)
	}
	return nil
}
