package ferry

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
)

// Module is one repository or nested sub-repository being synchronized.
// The set of modules is frozen by discovery before any object is built.
type Module struct {
	// Path is slash-separated, relative to the root module; the root
	// module's path is the empty string.
	Path string

	// Dir is the module's working tree root on disk.
	Dir string

	// Head is the module's baseline commit id (its current HEAD).
	Head string

	// Mounts are the submodule mounts recorded in the baseline tree,
	// relative to this module. Uninitialized mounts are included; they are
	// filtered from status but never rebuilt.
	Mounts []Mount
}

// Mount is a submodule mount point as recorded in a baseline tree: the
// path of the gitlink entry and the commit id it points at.
type Mount struct {
	Path string
	OID  string
}

// MountPaths returns just the mount paths, for status filtering.
func (m Module) MountPaths() []string {
	paths := make([]string, len(m.Mounts))
	for i, mount := range m.Mounts {
		paths[i] = mount.Path
	}
	return paths
}

// DisplayPath returns the module path with "." standing in for the root.
func (m Module) DisplayPath() string {
	if m.Path == "" {
		return "."
	}
	return m.Path
}

// ModuleWalker enumerates the root module and all nested submodules,
// children before parents, so a parent's tree build can embed its
// children's already-computed synthetic commit ids.
type ModuleWalker struct {
	FS     FileSystem
	NewGit func(dir string) *GitRunner
	Log    *slog.Logger
}

// NewModuleWalker creates a ModuleWalker.
func NewModuleWalker(fs FileSystem, newGit func(dir string) *GitRunner, log *slog.Logger) *ModuleWalker {
	if log == nil {
		log = NewNopLogger()
	}
	return &ModuleWalker{FS: fs, NewGit: newGit, Log: log}
}

// Discover walks rootDir and returns all modules in children-first order.
// A module mounted at two distinct paths is a fatal configuration error.
func (w *ModuleWalker) Discover(ctx context.Context, rootDir string) ([]Module, error) {
	seen := make(map[string]bool)
	var modules []Module

	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		if seen[rel] {
			return fmt.Errorf("inconsistent module graph: %q registered twice", displayPath(rel))
		}
		seen[rel] = true

		git := w.NewGit(dir)
		head, err := git.RevParseHead(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve baseline of %q: %w", displayPath(rel), err)
		}
		entries, err := git.LsTreeRecursive(ctx, head)
		if err != nil {
			return fmt.Errorf("failed to list baseline of %q: %w", displayPath(rel), err)
		}

		var mounts []Mount
		for _, e := range entries {
			if e.Kind != KindCommit {
				continue
			}
			mounts = append(mounts, Mount{Path: e.Path, OID: e.OID})

			subDir := filepath.Join(dir, filepath.FromSlash(e.Path))
			if !w.initialized(subDir) {
				// Uninitialized submodule: nothing to snapshot inside it,
				// its gitlink stays at the baseline.
				w.Log.DebugContext(ctx, "skipping uninitialized submodule "+e.Path,
					LogAttrKeyCategory.String(), LogCategorySync)
				continue
			}
			if err := walk(subDir, path.Join(rel, e.Path)); err != nil {
				return err
			}
		}

		// Post-order append: every module appears after all modules
		// nested inside it.
		modules = append(modules, Module{Path: rel, Dir: dir, Head: head, Mounts: mounts})
		return nil
	}

	if err := walk(rootDir, ""); err != nil {
		return nil, err
	}

	w.Log.DebugContext(ctx, fmt.Sprintf("discovered %d modules", len(modules)),
		LogAttrKeyCategory.String(), LogCategorySync)

	return modules, nil
}

// initialized reports whether a submodule working tree has been checked
// out (its directory contains a .git entry, file or directory).
func (w *ModuleWalker) initialized(dir string) bool {
	_, err := w.FS.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
