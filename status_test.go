package ferry

import (
	"context"
	"reflect"
	"testing"

	"github.com/aknsh/ferry/internal/testutil"
)

func statusCollectorWith(out string) *StatusCollector {
	mockGit := &testutil.MockGitExecutor{
		RunFunc: func(ctx context.Context, args ...string) ([]byte, error) {
			return []byte(out), nil
		},
	}
	git := &GitRunner{Executor: mockGit, Log: NewNopLogger()}
	return NewStatusCollector(git, nil)
}

func TestStatusCollector_Collect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		out      string
		mounts   []string
		patterns []string
		want     []PathStatus
	}{
		{
			name: "clean tree",
			out:  "",
			want: nil,
		},
		{
			name: "modified added deleted",
			out:  " M a.go\x00?? b.go\x00 D c.go\x00",
			want: []PathStatus{
				{Path: "a.go", State: StateModified},
				{Path: "b.go", State: StateAdded},
				{Path: "c.go", State: StateDeleted},
			},
		},
		{
			name: "result is sorted by path",
			out:  "?? z.go\x00 M a.go\x00",
			want: []PathStatus{
				{Path: "a.go", State: StateModified},
				{Path: "z.go", State: StateAdded},
			},
		},
		{
			name: "rename decomposes to delete plus add",
			out:  "R  new.go\x00old.go\x00",
			want: []PathStatus{
				{Path: "new.go", State: StateAdded},
				{Path: "old.go", State: StateDeleted},
			},
		},
		{
			name:   "submodule mounts are excluded",
			out:    " M vendor/lib\x00 M main.go\x00",
			mounts: []string{"vendor/lib"},
			want: []PathStatus{
				{Path: "main.go", State: StateModified},
			},
		},
		{
			name:     "patterns restrict the result",
			out:      " M src/a.go\x00 M docs/b.md\x00?? src/sub/c.go\x00",
			patterns: []string{"src/**"},
			want: []PathStatus{
				{Path: "src/a.go", State: StateModified},
				{Path: "src/sub/c.go", State: StateAdded},
			},
		},
		{
			name:     "deletion matching a pattern is kept",
			out:      " D src/a.go\x00 D other/b.go\x00",
			patterns: []string{"src/**"},
			want: []PathStatus{
				{Path: "src/a.go", State: StateDeleted},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			collector := statusCollectorWith(tt.out)
			got, err := collector.Collect(context.Background(), tt.mounts, tt.patterns)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusCollector_Collect_InvalidPattern(t *testing.T) {
	t.Parallel()

	collector := statusCollectorWith(" M a.go\x00")
	_, err := collector.Collect(context.Background(), nil, []string{"[unclosed"})
	if err == nil {
		t.Fatal("expected error for invalid pattern, got nil")
	}
}

func Test_classifyCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want PathState
	}{
		{" M", StateModified},
		{"M ", StateModified},
		{"MM", StateModified},
		{"??", StateAdded},
		{"A ", StateAdded},
		{"AM", StateModified},
		{" D", StateDeleted},
		{"D ", StateDeleted},
		{"MD", StateDeleted},
		{"AD", StateDeleted},
		// Staged delete then recreated: content is back on disk.
		{"DM", StateModified},
		// Unmerged paths have live content.
		{"UU", StateModified},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()

			if got := classifyCode(tt.code); got != tt.want {
				t.Errorf("classifyCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestPathStatus_OnDisk(t *testing.T) {
	t.Parallel()

	if (PathStatus{State: StateDeleted}).OnDisk() {
		t.Error("deleted path should not be on disk")
	}
	if !(PathStatus{State: StateModified}).OnDisk() {
		t.Error("modified path should be on disk")
	}
	if !(PathStatus{State: StateAdded}).OnDisk() {
		t.Error("added path should be on disk")
	}
}
