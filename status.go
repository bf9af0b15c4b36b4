package ferry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// PathState classifies how a path differs from the baseline commit.
type PathState string

const (
	// StateModified and StateAdded both mean "has new content, present on
	// disk"; they are snapshotted identically.
	StateModified PathState = "modified"
	StateAdded    PathState = "added"
	// StateDeleted means absent on disk, present in the baseline.
	StateDeleted PathState = "deleted"
)

// PathStatus is one path that differs from the baseline commit, relative
// to its module root.
type PathStatus struct {
	Path  string
	State PathState
}

// OnDisk reports whether the path currently has content in the working tree.
func (p PathStatus) OnDisk() bool {
	return p.State != StateDeleted
}

// StatusCollector queries, per module, the set of paths that differ from
// the module's baseline commit. Submodule mount points are excluded; their
// state is handled structurally during tree construction.
type StatusCollector struct {
	Git *GitRunner
	Log *slog.Logger
}

// NewStatusCollector creates a StatusCollector.
func NewStatusCollector(git *GitRunner, log *slog.Logger) *StatusCollector {
	if log == nil {
		log = NewNopLogger()
	}
	return &StatusCollector{Git: git, Log: log}
}

// Collect returns the paths differing from the baseline, excluding mount
// paths (submodule mounts of this module) and, when patterns is non-empty,
// paths not matching any pattern. The result is sorted by path.
func (c *StatusCollector) Collect(ctx context.Context, mounts []string, patterns []string) ([]PathStatus, error) {
	raw, err := c.Git.Status(ctx)
	if err != nil {
		return nil, err
	}

	mountSet := make(map[string]bool, len(mounts))
	for _, m := range mounts {
		mountSet[m] = true
	}

	var statuses []PathStatus
	add := func(path string, state PathState) error {
		if mountSet[path] {
			c.Log.DebugContext(ctx, "skipping submodule mount "+path,
				LogAttrKeyCategory.String(), LogCategoryStatus)
			return nil
		}
		if len(patterns) > 0 {
			matched, err := matchAny(patterns, path)
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}
		statuses = append(statuses, PathStatus{Path: path, State: state})
		return nil
	}

	for _, fs := range raw {
		// A rename is a deletion of the original plus new content at
		// the new path.
		if fs.OrigPath != "" {
			if err := add(fs.OrigPath, StateDeleted); err != nil {
				return nil, err
			}
			if err := add(fs.Path, StateAdded); err != nil {
				return nil, err
			}
			continue
		}
		if err := add(fs.Path, classifyCode(fs.Code)); err != nil {
			return nil, err
		}
	}

	slices.SortFunc(statuses, func(a, b PathStatus) int {
		return strings.Compare(a.Path, b.Path)
	})

	c.Log.DebugContext(ctx, fmt.Sprintf("collected %d changed paths", len(statuses)),
		LogAttrKeyCategory.String(), LogCategoryStatus)

	return statuses, nil
}

// classifyCode maps a porcelain XY code to a PathState. The deciding
// question is whether the path currently exists on disk.
func classifyCode(code string) PathState {
	x, y := code[0], code[1]
	switch {
	case y == 'D':
		return StateDeleted // removed from the working tree
	case x == 'D' && y == ' ':
		return StateDeleted // staged deletion, not recreated
	case code == "??", x == 'A' && y == ' ':
		return StateAdded
	default:
		// Modified, staged modifications, recreations after staged
		// deletes, and unmerged paths all have live content on disk.
		return StateModified
	}
}

// matchAny reports whether path matches at least one doublestar pattern.
func matchAny(patterns []string, path string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := MatchPattern(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
