package ferry

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
)

// TreeInput is everything needed to rebuild one module's tree.
type TreeInput struct {
	// Baseline is the baseline commit's full recursive entry listing
	// (blobs and submodule mounts).
	Baseline []TreeEntry

	// Updated holds blob entries for modified/added paths, with freshly
	// computed object ids and modes. Paths are relative to the module root.
	Updated []TreeEntry

	// Deleted paths are absent on disk but present in the baseline.
	Deleted map[string]bool

	// Submodules maps a mount path to the commit id that must replace the
	// baseline gitlink. Mounts not listed keep their baseline id.
	Submodules map[string]string
}

// TreeBuilder constructs a new tree object graph bottom-up, one tree per
// directory, substituting updated blobs and omitting deletions. The result
// is content-identical to what committing the literal working tree would
// produce.
type TreeBuilder struct {
	Git *GitRunner
	Log *slog.Logger
}

// NewTreeBuilder creates a TreeBuilder using git for object construction.
func NewTreeBuilder(git *GitRunner, log *slog.Logger) *TreeBuilder {
	if log == nil {
		log = NewNopLogger()
	}
	return &TreeBuilder{Git: git, Log: log}
}

// Build materializes tree objects for every directory, deepest first, and
// returns the root tree id. Directories that end up with no entries are
// omitted from their parent's listing; empty trees are never referenced.
func (b *TreeBuilder) Build(ctx context.Context, in TreeInput) (string, error) {
	byDir := make(map[string][]TreeEntry)
	dirs := make(map[string]bool)
	dirs[""] = true

	updated := make(map[string]bool, len(in.Updated))
	for _, e := range in.Updated {
		updated[e.Path] = true
	}

	place := func(e TreeEntry) {
		dir := parentDir(e.Path)
		byDir[dir] = append(byDir[dir], TreeEntry{
			Mode: e.Mode,
			Kind: e.Kind,
			OID:  e.OID,
			Path: path.Base(e.Path),
		})
		for d := dir; d != ""; d = parentDir(d) {
			dirs[d] = true
		}
	}

	for _, e := range in.Baseline {
		// Deletions win over any other disposition of a path.
		if in.Deleted[e.Path] {
			continue
		}
		// New content replaces the baseline entry, never duplicates it.
		if updated[e.Path] {
			continue
		}
		if e.Kind == KindCommit {
			if id, ok := in.Submodules[e.Path]; ok {
				e.OID = id
			}
		}
		place(e)
	}

	for _, e := range in.Updated {
		if in.Deleted[e.Path] {
			continue
		}
		place(e)
	}

	// Deepest directories first, so each materialized tree can be injected
	// into its parent's listing before the parent is materialized.
	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		if d != "" {
			ordered = append(ordered, d)
		}
	}
	slices.SortFunc(ordered, func(a, b string) int {
		da, db := strings.Count(a, "/"), strings.Count(b, "/")
		if da != db {
			return db - da
		}
		return strings.Compare(a, b)
	})

	for _, dir := range ordered {
		entries := byDir[dir]
		if len(entries) == 0 {
			// All contents deleted: the directory itself disappears.
			continue
		}
		id, err := b.makeTree(ctx, dir, entries)
		if err != nil {
			return "", err
		}
		byDir[parentDir(dir)] = append(byDir[parentDir(dir)], TreeEntry{
			Mode: ModeDir,
			Kind: KindTree,
			OID:  id,
			Path: path.Base(dir),
		})
	}

	return b.makeTree(ctx, "", byDir[""])
}

// makeTree sorts entries into canonical tree order and materializes them.
func (b *TreeBuilder) makeTree(ctx context.Context, dir string, entries []TreeEntry) (string, error) {
	slices.SortFunc(entries, func(a, b TreeEntry) int {
		return strings.Compare(treeSortKey(a), treeSortKey(b))
	})
	id, err := b.Git.Mktree(ctx, entries)
	if err != nil {
		return "", fmt.Errorf("failed to build tree for %q: %w", dir, err)
	}
	b.Log.DebugContext(ctx, fmt.Sprintf("built tree %s for %q (%d entries)", shortID(id), dir, len(entries)),
		LogAttrKeyCategory.String(), LogCategoryTree)
	return id, nil
}

// treeSortKey yields git's canonical entry ordering: directory names
// compare as if they had a trailing slash.
func treeSortKey(e TreeEntry) string {
	if e.Kind == KindTree {
		return e.Path + "/"
	}
	return e.Path
}

// parentDir returns the containing directory of a slash-separated path,
// "" for top-level paths.
func parentDir(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}
