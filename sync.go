package ferry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
)

// SyncCommand snapshots the working tree state of a repository and all its
// nested submodules as synthetic commits, pushes them to the destination
// under a private ref, and applies them there with one composed script.
type SyncCommand struct {
	FS       FileSystem
	NewGit   func(dir string) *GitRunner
	NewShell func(dest Destination) RemoteShell
	Log      *slog.Logger
}

// SyncOptions configures the sync operation.
type SyncOptions struct {
	Destination  string   // "[host:]path" of the remote checkout
	DryRun       bool     // Perform read-only steps only; skip push and apply
	KeepRef      bool     // Leave the synthetic commit visible in remote history
	FilePatterns []string // Restrict the snapshot to matching paths
	ExtraScript  []string // Fragments appended to the remote procedure
}

// ModuleSync holds the outcome for a single module.
type ModuleSync struct {
	Module Module
	// Commit is the synthetic commit id, or the baseline id when the
	// module had no changes of its own and no dirty descendants.
	Commit  string
	Clean   bool
	Changes []PathStatus
}

// SyncResult aggregates the outcome of one sync run.
type SyncResult struct {
	Destination Destination
	Modules     []ModuleSync // children-first, same order as processing
	Steps       []ApplyStep  // modules needing remote application
	Script      string       // composed remote procedure ("" when nothing to sync)
	RootCommit  string       // root module's (possibly synthetic) commit id
	DryRun      bool
	Applied     bool
	RemoteOut   string
}

// NothingToSync reports whether the working tree matched the baseline
// everywhere, making the run a no-op.
func (r SyncResult) NothingToSync() bool {
	return len(r.Steps) == 0
}

// NewSyncCommand creates a SyncCommand with explicit dependencies.
func NewSyncCommand(fsys FileSystem, newGit func(dir string) *GitRunner, newShell func(dest Destination) RemoteShell, log *slog.Logger) *SyncCommand {
	if log == nil {
		log = NewNopLogger()
	}
	return &SyncCommand{
		FS:       fsys,
		NewGit:   newGit,
		NewShell: newShell,
		Log:      log,
	}
}

// NewDefaultSyncCommand creates a SyncCommand with production defaults.
func NewDefaultSyncCommand(log *slog.Logger) *SyncCommand {
	if log == nil {
		log = NewNopLogger()
	}
	return NewSyncCommand(
		osFS{},
		func(dir string) *GitRunner { return NewGitRunner(dir, WithLogger(log)) },
		func(dest Destination) RemoteShell { return NewShellFor(dest, log) },
		log,
	)
}

// Run executes the pipeline: discover modules, then per module
// (children-first) collect status, rebuild the tree, and create the
// synthetic commit; then push all commits and execute the composed apply
// script at the destination. Any failure aborts the remaining phases.
func (c *SyncCommand) Run(ctx context.Context, rootDir string, opts SyncOptions) (SyncResult, error) {
	var result SyncResult
	result.DryRun = opts.DryRun

	dest, err := ParseDestination(opts.Destination)
	if err != nil {
		return result, err
	}
	result.Destination = dest

	c.Log.DebugContext(ctx, "run started",
		LogAttrKeyCategory.String(), LogCategorySync,
		"root", rootDir,
		"destination", dest.String(),
		"dryRun", opts.DryRun)

	walker := NewModuleWalker(c.FS, c.NewGit, c.Log)
	modules, err := walker.Discover(ctx, rootDir)
	if err != nil {
		return result, err
	}

	// Per-module result table, populated strictly children-first and
	// read-only once a parent begins.
	commits := make(map[string]string, len(modules))
	needApply := make(map[string]bool)

	factory := NewCommitFactory(c.Log)

	for _, m := range modules {
		git := c.NewGit(m.Dir)

		statuses, err := NewStatusCollector(git, c.Log).Collect(ctx, m.MountPaths(), opts.FilePatterns)
		if err != nil {
			return result, fmt.Errorf("failed to collect status of %q: %w", m.DisplayPath(), err)
		}

		// A mount whose recorded commit no longer matches the child's
		// result needs substitution in this module's rebuilt tree.
		subs := make(map[string]string)
		for _, mount := range m.Mounts {
			full := path.Join(m.Path, mount.Path)
			if cid, ok := commits[full]; ok && cid != mount.OID {
				subs[mount.Path] = cid
				needApply[full] = true
			}
		}

		if len(statuses) == 0 && len(subs) == 0 {
			// Clean module: the synthetic commit is the baseline itself,
			// no objects are created.
			commits[m.Path] = m.Head
			result.Modules = append(result.Modules, ModuleSync{Module: m, Commit: m.Head, Clean: true})
			continue
		}

		baseline, err := git.LsTreeRecursive(ctx, m.Head)
		if err != nil {
			return result, fmt.Errorf("failed to list baseline of %q: %w", m.DisplayPath(), err)
		}

		updated, deleted, err := c.snapshotChanges(ctx, git, m, statuses)
		if err != nil {
			return result, err
		}

		treeID, err := NewTreeBuilder(git, c.Log).Build(ctx, TreeInput{
			Baseline:   baseline,
			Updated:    updated,
			Deleted:    deleted,
			Submodules: subs,
		})
		if err != nil {
			return result, fmt.Errorf("failed to build tree of %q: %w", m.DisplayPath(), err)
		}

		commit, err := factory.Create(ctx, git, treeID, m.Head)
		if err != nil {
			return result, fmt.Errorf("failed to commit tree of %q: %w", m.DisplayPath(), err)
		}

		commits[m.Path] = commit
		needApply[m.Path] = true
		result.Modules = append(result.Modules, ModuleSync{Module: m, Commit: commit, Changes: statuses})

		c.Log.InfoContext(ctx, fmt.Sprintf("module %s: %d changed paths, synthetic commit %s",
			m.DisplayPath(), len(statuses), shortID(commit)),
			LogAttrKeyCategory.String(), LogCategorySync)
	}

	result.RootCommit = commits[""]

	// Children-first module order carries over to apply steps, so a parent
	// never references a child state that is not yet materialized.
	var targets []PushTarget
	for _, m := range modules {
		if !needApply[m.Path] {
			continue
		}
		result.Steps = append(result.Steps, ApplyStep{ModulePath: m.Path, Commit: commits[m.Path]})
		targets = append(targets, PushTarget{Module: m, Commit: commits[m.Path]})
	}

	if result.NothingToSync() {
		c.Log.InfoContext(ctx, "nothing to sync",
			LogAttrKeyCategory.String(), LogCategorySync)
		return result, nil
	}

	result.Script = BuildApplyScript(dest.Path, result.Steps, ScriptOptions{
		KeepRef: opts.KeepRef,
		Extra:   opts.ExtraScript,
	})

	if opts.DryRun {
		c.Log.InfoContext(ctx, "dry-run: skipping push and apply",
			LogAttrKeyCategory.String(), LogCategorySync)
		return result, nil
	}

	transport := NewTransport(c.NewGit, c.Log)
	if err := transport.PushAll(ctx, dest, targets); err != nil {
		return result, err
	}

	out, err := c.NewShell(dest).Run(ctx, result.Script)
	result.RemoteOut = string(out)
	if err != nil {
		return result, err
	}
	result.Applied = true

	c.Log.DebugContext(ctx, "run completed",
		LogAttrKeyCategory.String(), LogCategorySync,
		"steps", len(result.Steps))

	return result, nil
}

// snapshotChanges hashes every modified/added path into the module's
// object store and returns the updated blob entries plus the deleted set.
func (c *SyncCommand) snapshotChanges(ctx context.Context, git *GitRunner, m Module, statuses []PathStatus) ([]TreeEntry, map[string]bool, error) {
	var updated []TreeEntry
	deleted := make(map[string]bool)

	for _, st := range statuses {
		if !st.OnDisk() {
			deleted[st.Path] = true
			continue
		}

		abs := filepath.Join(m.Dir, filepath.FromSlash(st.Path))
		info, err := c.FS.Lstat(abs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to stat %s in %q: %w", st.Path, m.DisplayPath(), err)
		}

		var mode, oid string
		if info.Mode()&fs.ModeSymlink != 0 {
			// A symlink blob's content is the link target.
			target, err := c.FS.Readlink(abs)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read symlink %s in %q: %w", st.Path, m.DisplayPath(), err)
			}
			oid, err = git.HashBlob(ctx, []byte(target))
			if err != nil {
				return nil, nil, err
			}
			mode = ModeSymlink
		} else {
			oid, err = git.HashObject(ctx, st.Path)
			if err != nil {
				return nil, nil, err
			}
			mode = ModeFile
			if info.Mode()&0o111 != 0 {
				mode = ModeExecutable
			}
		}

		updated = append(updated, TreeEntry{Mode: mode, Kind: KindBlob, OID: oid, Path: st.Path})
	}

	return updated, deleted, nil
}

// SyncFormatOptions configures sync output formatting.
type SyncFormatOptions struct {
	Verbose bool
	Quiet   bool
}

// Format formats the SyncResult for display.
func (r SyncResult) Format(opts SyncFormatOptions) FormatResult {
	if opts.Quiet {
		if r.RootCommit == "" {
			return FormatResult{}
		}
		return FormatResult{Stdout: r.RootCommit + "\n"}
	}

	var stdout strings.Builder

	if r.NothingToSync() {
		fmt.Fprintln(&stdout, "nothing to sync (working tree matches baseline)")
		return FormatResult{Stdout: stdout.String()}
	}

	if r.DryRun {
		fmt.Fprintf(&stdout, "%s\n", colorDryRun("Dry-run: no push or remote apply"))
	}

	iw := NewIndentWriter(&stdout, "  ")
	for _, step := range r.Steps {
		ms := r.moduleSync(step.ModulePath)
		label := displayPath(step.ModulePath)
		switch {
		case ms != nil && ms.Clean:
			iw.Writef("%s %s: %s %s", colorSuccess("✓"), label, shortID(step.Commit),
				colorDim("(baseline advanced)"))
		case ms != nil:
			iw.Writef("%s %s: %s (%d changed paths)", colorSuccess("✓"), label,
				shortID(step.Commit), len(ms.Changes))
		default:
			iw.Writef("%s %s: %s", colorSuccess("✓"), label, shortID(step.Commit))
		}

		if opts.Verbose && ms != nil {
			iw.Indent()
			for _, ch := range ms.Changes {
				iw.Writef("%-8s %s", ch.State, ch.Path)
			}
			iw.Dedent()
		}
	}

	switch {
	case r.DryRun:
		fmt.Fprintf(&stdout, "would apply %d module(s) to %s\n", len(r.Steps), r.Destination)
	case r.Applied:
		fmt.Fprintf(&stdout, "%s %d module(s) to %s\n", colorSynced("applied"), len(r.Steps), r.Destination)
	}

	if opts.Verbose {
		iw.Blankln()
		iw.Writeln("remote procedure:")
		iw.Indent()
		for _, line := range strings.Split(strings.TrimRight(r.Script, "\n"), "\n") {
			iw.Writeln(line)
		}
		iw.Dedent()
	}

	var stderr strings.Builder
	if r.RemoteOut != "" && opts.Verbose {
		fmt.Fprint(&stderr, r.RemoteOut)
		if !strings.HasSuffix(r.RemoteOut, "\n") {
			fmt.Fprintln(&stderr)
		}
	}

	return FormatResult{Stdout: stdout.String(), Stderr: stderr.String()}
}

// moduleSync finds the per-module outcome for a path.
func (r SyncResult) moduleSync(modulePath string) *ModuleSync {
	for i := range r.Modules {
		if r.Modules[i].Module.Path == modulePath {
			return &r.Modules[i]
		}
	}
	return nil
}
