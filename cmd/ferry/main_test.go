package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aknsh/ferry"
)

func TestResolveDirectory(t *testing.T) {
	t.Parallel()

	t.Run("EmptyDirFlag", func(t *testing.T) {
		t.Parallel()

		baseCwd := "/some/path"
		got, err := resolveDirectory("", baseCwd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != baseCwd {
			t.Errorf("got %q, want %q", got, baseCwd)
		}
	})

	t.Run("NonexistentPath", func(t *testing.T) {
		t.Parallel()

		baseCwd := t.TempDir()
		_, err := resolveDirectory("/nonexistent/path", baseCwd)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "cannot change to '/nonexistent/path'") {
			t.Errorf("error %q should contain path", err.Error())
		}
	})

	t.Run("PathIsFile", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		filePath := filepath.Join(tmpDir, "file.txt")
		if err := os.WriteFile(filePath, []byte("content"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := resolveDirectory(filePath, tmpDir)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "not a directory") {
			t.Errorf("error %q should contain 'not a directory'", err.Error())
		}
	})

	t.Run("ValidRelativePath", func(t *testing.T) {
		t.Parallel()

		baseCwd := t.TempDir()
		subDir := filepath.Join(baseCwd, "subdir")
		if err := os.Mkdir(subDir, 0755); err != nil {
			t.Fatal(err)
		}

		got, err := resolveDirectory("subdir", baseCwd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want, _ := filepath.EvalSymlinks(subDir)
		gotResolved, _ := filepath.EvalSymlinks(got)
		if gotResolved != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

// mockSyncCommander is a test double for SyncCommander.
type mockSyncCommander struct {
	result  ferry.SyncResult
	err     error
	gotRoot string
	gotOpts ferry.SyncOptions
}

func (m *mockSyncCommander) Run(ctx context.Context, rootDir string, opts ferry.SyncOptions) (ferry.SyncResult, error) {
	m.gotRoot = rootDir
	m.gotOpts = opts
	return m.result, m.err
}

func TestSyncCmd(t *testing.T) {
	t.Parallel()

	t.Run("DestinationFromArg", func(t *testing.T) {
		t.Parallel()

		mock := &mockSyncCommander{result: ferry.SyncResult{RootCommit: "abc"}}
		cmd := newRootCmd(WithSyncCommander(mock))

		stdout := &bytes.Buffer{}
		cmd.SetOut(stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"sync", "devbox:/srv/repo"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if mock.gotOpts.Destination != "devbox:/srv/repo" {
			t.Errorf("Destination = %q", mock.gotOpts.Destination)
		}
	})

	t.Run("FlagsArePassedThrough", func(t *testing.T) {
		t.Parallel()

		mock := &mockSyncCommander{}
		cmd := newRootCmd(WithSyncCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{
			"sync", "devbox:/srv/repo",
			"--dry-run", "--keep-ref",
			"-F", "src/**", "-F", "*.toml",
			"-e", "make generate",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !mock.gotOpts.DryRun || !mock.gotOpts.KeepRef {
			t.Errorf("opts = %+v, want DryRun and KeepRef", mock.gotOpts)
		}
		if !reflect.DeepEqual(mock.gotOpts.FilePatterns, []string{"src/**", "*.toml"}) {
			t.Errorf("FilePatterns = %v", mock.gotOpts.FilePatterns)
		}
		if !reflect.DeepEqual(mock.gotOpts.ExtraScript, []string{"make generate"}) {
			t.Errorf("ExtraScript = %v", mock.gotOpts.ExtraScript)
		}
	})

	t.Run("QuietPrintsRootCommit", func(t *testing.T) {
		t.Parallel()

		mock := &mockSyncCommander{result: ferry.SyncResult{
			RootCommit: "abc123",
			Steps:      []ferry.ApplyStep{{ModulePath: "", Commit: "abc123"}},
		}}
		cmd := newRootCmd(WithSyncCommander(mock))

		stdout := &bytes.Buffer{}
		cmd.SetOut(stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"sync", "devbox:/srv/repo", "-q"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout.String() != "abc123\n" {
			t.Errorf("stdout = %q, want root commit", stdout.String())
		}
	})

	t.Run("RunErrorSurfaces", func(t *testing.T) {
		t.Parallel()

		mock := &mockSyncCommander{err: errors.New("push failed")}
		cmd := newRootCmd(WithSyncCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"sync", "devbox:/srv/repo"})

		if err := cmd.Execute(); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("TooManyArgs", func(t *testing.T) {
		t.Parallel()

		cmd := newRootCmd(WithSyncCommander(&mockSyncCommander{}))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"sync", "a", "b"})

		if err := cmd.Execute(); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

// mockCheckCommander is a test double for CheckCommander.
type mockCheckCommander struct {
	result ferry.CheckResult
	err    error
}

func (m *mockCheckCommander) Run(ctx context.Context) (ferry.CheckResult, error) {
	return m.result, m.err
}

func TestCheckCmd(t *testing.T) {
	t.Parallel()

	t.Run("CleanReport", func(t *testing.T) {
		t.Parallel()

		mock := &mockCheckCommander{result: ferry.CheckResult{
			Items: []ferry.CheckItem{
				{Category: ferry.CategoryConfig, Severity: ferry.SeverityOK, Message: "fine"},
			},
		}}
		cmd := newRootCmd(WithCheckCommander(func(dir string, cfg *ferry.Config) CheckCommander {
			return mock
		}))

		stdout := &bytes.Buffer{}
		cmd.SetOut(stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"check"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout.String(), "0 errors") {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("ErrorsFailTheCommand", func(t *testing.T) {
		t.Parallel()

		mock := &mockCheckCommander{result: ferry.CheckResult{
			Items: []ferry.CheckItem{
				{Category: ferry.CategoryConfig, Severity: ferry.SeverityError, Message: "broken"},
			},
		}}
		cmd := newRootCmd(WithCheckCommander(func(dir string, cfg *ferry.Config) CheckCommander {
			return mock
		}))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"check"})

		err := cmd.Execute()
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "1 check(s) failed") {
			t.Errorf("err = %v", err)
		}
	})
}

// mockInitCommander is a test double for InitCommander.
type mockInitCommander struct {
	result  ferry.InitResult
	err     error
	gotOpts ferry.InitOptions
}

func (m *mockInitCommander) Run(dir string, opts ferry.InitOptions) (ferry.InitResult, error) {
	m.gotOpts = opts
	return m.result, m.err
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("Created", func(t *testing.T) {
		t.Parallel()

		mock := &mockInitCommander{result: ferry.InitResult{Path: ".ferry/settings.toml", Created: true}}
		cmd := newRootCmd(WithInitCommander(mock))

		stdout := &bytes.Buffer{}
		cmd.SetOut(stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"init"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout.String(), "Created") {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("ForceFlag", func(t *testing.T) {
		t.Parallel()

		mock := &mockInitCommander{}
		cmd := newRootCmd(WithInitCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"init", "--force"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !mock.gotOpts.Force {
			t.Error("Force flag not passed through")
		}
	})
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"version:", "commit:", "date:"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout = %q, missing %q", stdout.String(), want)
		}
	}
}

func TestCreateLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	idGen := func() string { return "a1b2c3d4" }

	// Verbosity 0 discards everything.
	log := createLogger(&buf, 0, idGen)
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("verbosity 0 should log nothing, got %q", buf.String())
	}

	// -v shows info with the command id.
	log = createLogger(&buf, 1, idGen)
	log.Info("shown")
	if !strings.Contains(buf.String(), "shown") || !strings.Contains(buf.String(), "a1b2c3d4") {
		t.Errorf("verbosity 1 output = %q", buf.String())
	}
}
