package ferry

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

const settingsTemplate = `# ferry settings
# Shared project configuration. Commit this file; put personal
# overrides in settings.local.toml (which should be gitignored).

# Default sync destination, "host:path" or a plain local path.
# destination = "devbox:/home/me/src/project"

# Keep the synced commit checked out on the destination instead of
# restoring its previous HEAD after applying the working tree.
# keep_ref = false

# Restrict syncing to paths matching these glob patterns.
# files = ["src/**", "*.toml"]

# Extra shell fragments appended to the apply procedure.
# extra_script = ["make generate"]
`

// InitCommand creates a starter ferry configuration file.
type InitCommand struct {
	FS  FileSystem
	Log *slog.Logger
}

// InitOptions holds options for the Run method.
type InitOptions struct {
	Force bool
}

// InitResult holds the result of an init operation.
type InitResult struct {
	Path        string
	Created     bool
	Skipped     bool
	Overwritten bool
}

// NewInitCommand creates an InitCommand with explicit dependencies (for testing).
func NewInitCommand(fsys FileSystem, log *slog.Logger) *InitCommand {
	if log == nil {
		log = NewNopLogger()
	}
	return &InitCommand{FS: fsys, Log: log}
}

// NewDefaultInitCommand creates an InitCommand with production defaults.
func NewDefaultInitCommand(log *slog.Logger) *InitCommand {
	return NewInitCommand(osFS{}, log)
}

// Run writes the settings template into dir.
func (c *InitCommand) Run(dir string, opts InitOptions) (InitResult, error) {
	path := ConfigPath(dir)
	result := InitResult{Path: path}

	_, err := c.FS.Stat(path)
	exists := err == nil

	if exists && !opts.Force {
		result.Skipped = true
		return result, nil
	}

	if err := c.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return result, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := c.FS.WriteFile(path, []byte(settingsTemplate), 0o644); err != nil {
		return result, fmt.Errorf("failed to write %s: %w", path, err)
	}

	c.Log.Info("wrote settings file",
		LogAttrKeyCategory.String(), LogCategoryConfig,
		"path", path)

	if exists {
		result.Overwritten = true
	} else {
		result.Created = true
	}
	return result, nil
}

// InitFormatOptions holds formatting options for InitResult.
type InitFormatOptions struct {
	Quiet bool
}

// Format formats the InitResult for display.
func (r InitResult) Format(opts InitFormatOptions) FormatResult {
	if opts.Quiet {
		return FormatResult{}
	}

	var stdout strings.Builder
	switch {
	case r.Skipped:
		fmt.Fprintf(&stdout, "%s already exists (use --force to overwrite)\n", r.Path)
	case r.Overwritten:
		fmt.Fprintf(&stdout, "Overwrote %s\n", r.Path)
	default:
		fmt.Fprintf(&stdout, "Created %s\n", r.Path)
	}
	return FormatResult{Stdout: stdout.String()}
}
