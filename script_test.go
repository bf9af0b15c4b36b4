package ferry

import (
	"strings"
	"testing"
)

func TestBuildApplyScript(t *testing.T) {
	t.Parallel()

	t.Run("RestoreVariant", func(t *testing.T) {
		t.Parallel()

		script := BuildApplyScript("/srv/repo", []ApplyStep{
			{ModulePath: "", Commit: "c-root"},
		}, ScriptOptions{})

		want := `#!/bin/sh
set -eu
# module .
(
cd '/srv/repo'
prev=$(git rev-parse HEAD)
git update-ref HEAD 'c-root'
git reset -q --hard
git clean -fdq
git reset -q "$prev"
)
`
		if script != want {
			t.Errorf("script = %q, want %q", script, want)
		}
	})

	t.Run("KeepRefVariant", func(t *testing.T) {
		t.Parallel()

		script := BuildApplyScript("/srv/repo", []ApplyStep{
			{ModulePath: "", Commit: "c-root"},
		}, ScriptOptions{KeepRef: true})

		want := `#!/bin/sh
set -eu
# module .
(
cd '/srv/repo'
git update-ref HEAD 'c-root'
git reset -q --hard
git clean -fdq
)
`
		if script != want {
			t.Errorf("script = %q, want %q", script, want)
		}
	})

	t.Run("ChildrenBeforeParent", func(t *testing.T) {
		t.Parallel()

		script := BuildApplyScript("/srv/repo", []ApplyStep{
			{ModulePath: "libs/a", Commit: "c-a"},
			{ModulePath: "", Commit: "c-root"},
		}, ScriptOptions{KeepRef: true})

		child := strings.Index(script, "cd '/srv/repo/libs/a'")
		parent := strings.Index(script, "cd '/srv/repo'\n")
		if child < 0 || parent < 0 {
			t.Fatalf("missing cd lines in script:\n%s", script)
		}
		if child > parent {
			t.Errorf("child step must precede parent step:\n%s", script)
		}
	})

	t.Run("ExtraFragments", func(t *testing.T) {
		t.Parallel()

		script := BuildApplyScript("/srv/repo", []ApplyStep{
			{ModulePath: "", Commit: "c"},
		}, ScriptOptions{
			KeepRef: true,
			Extra:   []string{"make generate", "systemctl restart app\n"},
		})

		if !strings.HasSuffix(script, "make generate\nsystemctl restart app\n") {
			t.Errorf("extra fragments missing or misplaced:\n%s", script)
		}
	})

	t.Run("QuotingHostilePaths", func(t *testing.T) {
		t.Parallel()

		script := BuildApplyScript("/srv/it's here", []ApplyStep{
			{ModulePath: "", Commit: "c"},
		}, ScriptOptions{KeepRef: true})

		if !strings.Contains(script, `cd '/srv/it'\''s here'`) {
			t.Errorf("path not safely quoted:\n%s", script)
		}
	})

	t.Run("AbortsOnFirstFailure", func(t *testing.T) {
		t.Parallel()

		script := BuildApplyScript("/srv/repo", nil, ScriptOptions{})
		if !strings.HasPrefix(script, "#!/bin/sh\nset -eu\n") {
			t.Errorf("script must start with the set -eu preamble:\n%s", script)
		}
	})
}

func Test_shQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"plain", "'plain'"},
		{"with space", "'with space'"},
		{"it's", `'it'\''s'`},
		{"$HOME", "'$HOME'"},
	}

	for _, tt := range tests {
		if got := shQuote(tt.in); got != tt.want {
			t.Errorf("shQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
