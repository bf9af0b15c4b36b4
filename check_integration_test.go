//go:build integration

package ferry

import (
	"context"
	"testing"

	"github.com/aknsh/ferry/internal/testutil"
)

func TestCheckCommand_RealRepository(t *testing.T) {
	t.Parallel()

	dir := testutil.SetupTestRepo(t)
	testutil.WriteFile(t, dir, "main.go", "package main\n")
	testutil.Commit(t, dir, "base")
	testutil.WriteFile(t, dir, ".ferry/settings.toml", "destination = \"devbox:/srv/repo\"\n")

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}

	result, err := NewDefaultCheckCommand(dir, loaded.Config, NewNopLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.ErrorCount() != 0 {
		t.Errorf("ErrorCount = %d, items = %v", result.ErrorCount(), result.Items)
	}
	if result.WarningCount() != 0 {
		t.Errorf("WarningCount = %d, items = %v", result.WarningCount(), result.Items)
	}
}

func TestInitThenCheck(t *testing.T) {
	t.Parallel()

	dir := testutil.SetupTestRepo(t)

	initResult, err := NewDefaultInitCommand(NewNopLogger()).Run(dir, InitOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !initResult.Created {
		t.Fatalf("init result = %+v, want Created", initResult)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Warnings) != 0 {
		t.Errorf("generated settings produced warnings: %v", loaded.Warnings)
	}

	// The template ships with destination commented out, so check reports
	// a warning but no errors.
	result, err := NewDefaultCheckCommand(dir, loaded.Config, NewNopLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.ErrorCount() != 0 {
		t.Errorf("ErrorCount = %d, items = %v", result.ErrorCount(), result.Items)
	}
	if result.WarningCount() == 0 {
		t.Error("expected a missing-destination warning")
	}
}
