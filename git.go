package ferry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// GitExecutor abstracts git command execution for testability.
// Commands are fixed to "git" - only subcommands and args are passed.
type GitExecutor interface {
	// Run executes git with args and returns stdout.
	Run(ctx context.Context, args ...string) ([]byte, error)
	// RunWith executes git with args, feeding stdin to the process and
	// appending env (KEY=VALUE) to the process environment.
	RunWith(ctx context.Context, stdin []byte, env []string, args ...string) ([]byte, error)
}

type osGitExecutor struct {
	dir string
}

func (e osGitExecutor) Run(ctx context.Context, args ...string) ([]byte, error) {
	return e.RunWith(ctx, nil, nil, args...)
}

func (e osGitExecutor) RunWith(ctx context.Context, stdin []byte, env []string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", e.dir}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, gitError(args, err)
	}
	return out, nil
}

// gitError surfaces stderr from a failed git invocation.
func gitError(args []string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
}

// ObjectKind identifies the kind of a tree entry's object.
type ObjectKind string

const (
	KindBlob   ObjectKind = "blob"
	KindTree   ObjectKind = "tree"
	KindCommit ObjectKind = "commit" // submodule mount
)

// Tree entry modes as recorded in git tree objects.
const (
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
	ModeDir        = "040000"
	ModeSubmodule  = "160000"
)

// TreeEntry is one row of a tree listing. Path is slash-separated and
// relative to the listed commit's root for recursive listings, or a bare
// name for single-directory listings fed to Mktree.
type TreeEntry struct {
	Mode string
	Kind ObjectKind
	OID  string
	Path string
}

// FileStatus represents one entry of git status --porcelain output.
// Code is the two-character XY code. OrigPath is set for renames/copies.
type FileStatus struct {
	Code     string
	Path     string
	OrigPath string
}

// Signature is the identity recorded on a constructed commit.
type Signature struct {
	Name  string
	Email string
	Date  string // git date format, e.g. "@0 +0000"
}

// GitRunner provides typed git plumbing operations using GitExecutor.
type GitRunner struct {
	Executor GitExecutor
	Log      *slog.Logger

	dir string
}

// GitRunnerOption configures a GitRunner.
type GitRunnerOption func(*GitRunner)

// WithLogger sets the logger for git command tracing.
func WithLogger(log *slog.Logger) GitRunnerOption {
	return func(g *GitRunner) {
		if log != nil {
			g.Log = log
		}
	}
}

// NewGitRunner creates a new GitRunner operating in dir.
func NewGitRunner(dir string, opts ...GitRunnerOption) *GitRunner {
	g := &GitRunner{
		Executor: osGitExecutor{dir: dir},
		Log:      NewNopLogger(),
		dir:      dir,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dir returns the working directory this runner operates in.
func (g *GitRunner) Dir() string {
	return g.dir
}

// InDir returns a new runner operating in dir, sharing the logger.
func (g *GitRunner) InDir(dir string) *GitRunner {
	return NewGitRunner(dir, WithLogger(g.Log))
}

// Run executes a raw git command. Prefer the typed wrappers below.
func (g *GitRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	g.Log.DebugContext(ctx, "run "+strings.Join(args, " "),
		LogAttrKeyCategory.String(), LogCategoryGit,
		"dir", g.dir)
	return g.Executor.Run(ctx, args...)
}

// IsInsideWorkTree reports whether the runner's directory is inside a
// git working tree.
func (g *GitRunner) IsInsideWorkTree(ctx context.Context) bool {
	out, err := g.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// RevParseHead returns the commit id of HEAD.
func (g *GitRunner) RevParseHead(ctx context.Context) (string, error) {
	out, err := g.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Status returns the working tree status relative to HEAD, covering staged,
// unstaged, and untracked-but-not-ignored paths. Untracked directories are
// expanded to individual files.
func (g *GitRunner) Status(ctx context.Context) ([]FileStatus, error) {
	out, err := g.Run(ctx, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("failed to query status: %w", err)
	}
	return parseStatusZ(out)
}

// parseStatusZ parses NUL-terminated porcelain v1 status output.
// Rename/copy entries carry the original path as an extra NUL field.
func parseStatusZ(out []byte) ([]FileStatus, error) {
	statuses := make([]FileStatus, 0)
	// The output is NUL-terminated, not NUL-separated: drop the trailing
	// empty field so the rename bounds check below stays meaningful.
	fields := strings.Split(strings.TrimSuffix(string(out), "\x00"), "\x00")
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f == "" {
			continue
		}
		if len(f) < 4 || f[2] != ' ' {
			return nil, fmt.Errorf("malformed status entry %q", f)
		}
		fs := FileStatus{Code: f[:2], Path: f[3:]}
		if fs.Code[0] == 'R' || fs.Code[0] == 'C' {
			i++
			if i >= len(fields) || fields[i] == "" {
				return nil, fmt.Errorf("missing original path for %q", f)
			}
			fs.OrigPath = fields[i]
		}
		statuses = append(statuses, fs)
	}
	return statuses, nil
}

// LsTreeRecursive returns the full recursive entry listing of a commit's
// tree: blobs and submodule mounts, not intermediate trees.
func (g *GitRunner) LsTreeRecursive(ctx context.Context, rev string) ([]TreeEntry, error) {
	out, err := g.Run(ctx, "ls-tree", "-r", "-z", rev)
	if err != nil {
		return nil, fmt.Errorf("failed to list tree of %s: %w", rev, err)
	}
	return parseLsTreeZ(out)
}

// parseLsTreeZ parses NUL-terminated "mode SP type SP oid TAB path" records.
func parseLsTreeZ(out []byte) ([]TreeEntry, error) {
	entries := make([]TreeEntry, 0)
	for _, rec := range strings.Split(string(out), "\x00") {
		if rec == "" {
			continue
		}
		meta, path, ok := strings.Cut(rec, "\t")
		if !ok {
			return nil, fmt.Errorf("malformed ls-tree record %q", rec)
		}
		parts := strings.SplitN(meta, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed ls-tree record %q", rec)
		}
		entries = append(entries, TreeEntry{
			Mode: parts[0],
			Kind: ObjectKind(parts[1]),
			OID:  parts[2],
			Path: path,
		})
	}
	return entries, nil
}

// HashObject hashes and stores the file at relPath (relative to the
// runner's directory) as a blob, returning its object id.
func (g *GitRunner) HashObject(ctx context.Context, relPath string) (string, error) {
	out, err := g.Run(ctx, "hash-object", "-w", "--", relPath)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", relPath, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HashBlob hashes and stores raw content as a blob, returning its object id.
// Used for symlinks, whose blob content is the link target.
func (g *GitRunner) HashBlob(ctx context.Context, content []byte) (string, error) {
	g.Log.DebugContext(ctx, "run hash-object -w --stdin",
		LogAttrKeyCategory.String(), LogCategoryGit,
		"dir", g.dir)
	out, err := g.Executor.RunWith(ctx, content, nil, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", fmt.Errorf("failed to hash blob: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Mktree constructs a tree object from single-directory entries (Path is
// the entry name). Entries must already be in canonical tree order.
func (g *GitRunner) Mktree(ctx context.Context, entries []TreeEntry) (string, error) {
	var input bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&input, "%s %s %s\t%s\x00", e.Mode, e.Kind, e.OID, e.Path)
	}
	g.Log.DebugContext(ctx, "run mktree -z",
		LogAttrKeyCategory.String(), LogCategoryGit,
		"dir", g.dir,
		"entries", len(entries))
	out, err := g.Executor.RunWith(ctx, input.Bytes(), nil, "mktree", "-z")
	if err != nil {
		return "", fmt.Errorf("failed to make tree: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CommitTree constructs a commit object from a tree, a parent, and a fixed
// signature applied as both author and committer.
func (g *GitRunner) CommitTree(ctx context.Context, treeID, parentID, message string, sig Signature) (string, error) {
	env := []string{
		"GIT_AUTHOR_NAME=" + sig.Name,
		"GIT_AUTHOR_EMAIL=" + sig.Email,
		"GIT_AUTHOR_DATE=" + sig.Date,
		"GIT_COMMITTER_NAME=" + sig.Name,
		"GIT_COMMITTER_EMAIL=" + sig.Email,
		"GIT_COMMITTER_DATE=" + sig.Date,
	}
	g.Log.DebugContext(ctx, "run commit-tree "+treeID,
		LogAttrKeyCategory.String(), LogCategoryGit,
		"dir", g.dir,
		"parent", parentID)
	out, err := g.Executor.RunWith(ctx, nil, env, "commit-tree", treeID, "-p", parentID, "-m", message)
	if err != nil {
		return "", fmt.Errorf("failed to make commit: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// PushRef force-pushes a commit to the named ref on the remote.
func (g *GitRunner) PushRef(ctx context.Context, remote, commit, ref string) error {
	if _, err := g.Run(ctx, "push", "--force", "--quiet", remote, commit+":"+ref); err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", shortID(commit), remote, err)
	}
	return nil
}

// shortID abbreviates a commit id for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
