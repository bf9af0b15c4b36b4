package ferry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// CheckCommand validates ferry configuration and the repository environment.
type CheckCommand struct {
	FS     FileSystem
	Git    *GitRunner
	Config *Config
	Log    *slog.Logger
}

// CheckSeverity represents the severity level of a check item.
type CheckSeverity string

const (
	SeverityOK    CheckSeverity = "ok"
	SeverityInfo  CheckSeverity = "info"
	SeverityWarn  CheckSeverity = "warn"
	SeverityError CheckSeverity = "error"
)

// CheckCategory represents the category of a check item.
type CheckCategory string

const (
	CategoryConfig     CheckCategory = "config"
	CategoryRepository CheckCategory = "repository"
)

// CheckItem represents a single check result.
type CheckItem struct {
	Category   CheckCategory
	Severity   CheckSeverity
	Message    string
	Suggestion string
}

// CheckResult holds the result of all checks.
type CheckResult struct {
	Items      []CheckItem
	ConfigPath string
}

// NewCheckCommand creates a CheckCommand with explicit dependencies (for testing).
func NewCheckCommand(fsys FileSystem, git *GitRunner, cfg *Config, log *slog.Logger) *CheckCommand {
	if log == nil {
		log = NewNopLogger()
	}
	return &CheckCommand{FS: fsys, Git: git, Config: cfg, Log: log}
}

// NewDefaultCheckCommand creates a CheckCommand with production defaults.
func NewDefaultCheckCommand(dir string, cfg *Config, log *slog.Logger) *CheckCommand {
	return NewCheckCommand(osFS{}, NewGitRunner(dir, WithLogger(log)), cfg, log)
}

// CheckFormatOptions holds formatting options for CheckResult.
type CheckFormatOptions struct {
	Verbose bool
	Quiet   bool
}

// ErrorCount returns the number of errors.
func (r CheckResult) ErrorCount() int {
	return r.countSeverity(SeverityError)
}

// WarningCount returns the number of warnings.
func (r CheckResult) WarningCount() int {
	return r.countSeverity(SeverityWarn)
}

// InfoCount returns the number of info items.
func (r CheckResult) InfoCount() int {
	return r.countSeverity(SeverityInfo)
}

func (r CheckResult) countSeverity(s CheckSeverity) int {
	count := 0
	for _, item := range r.Items {
		if item.Severity == s {
			count++
		}
	}
	return count
}

// Format formats the CheckResult for display.
func (r CheckResult) Format(opts CheckFormatOptions) FormatResult {
	var stdout strings.Builder

	if opts.Quiet {
		// Quiet mode: only show errors
		for _, item := range r.Items {
			if item.Severity == SeverityError {
				fmt.Fprintf(&stdout, "[error] %s\n", item.Message)
			}
		}
		return FormatResult{Stdout: stdout.String()}
	}

	configItems := r.filterByCategory(CategoryConfig)
	repoItems := r.filterByCategory(CategoryRepository)

	if len(configItems) > 0 {
		r.formatCategory(&stdout, "config:", configItems, opts.Verbose)
	}

	if len(repoItems) > 0 {
		if len(configItems) > 0 {
			fmt.Fprintln(&stdout)
		}
		r.formatCategory(&stdout, "repository:", repoItems, opts.Verbose)
	}

	fmt.Fprintf(&stdout, "\nSummary: %d errors, %d warnings, %d info\n",
		r.ErrorCount(), r.WarningCount(), r.InfoCount())

	return FormatResult{Stdout: stdout.String()}
}

func (r CheckResult) filterByCategory(cat CheckCategory) []CheckItem {
	var items []CheckItem
	for _, item := range r.Items {
		if item.Category == cat {
			items = append(items, item)
		}
	}
	return items
}

func (r CheckResult) formatCategory(w *strings.Builder, header string, items []CheckItem, verbose bool) {
	fmt.Fprintln(w, header)

	for _, item := range items {
		// Skip ok items unless verbose
		if item.Severity == SeverityOK && !verbose {
			continue
		}

		tag := fmt.Sprintf("[%s]", item.Severity)
		if item.Severity == SeverityError {
			tag = colorError(tag)
		}
		fmt.Fprintf(w, "  %s %s\n", tag, item.Message)
		if item.Suggestion != "" {
			fmt.Fprintf(w, "         suggestion: %s\n", item.Suggestion)
		}
	}
}

// Run executes all checks and returns the result.
func (c *CheckCommand) Run(ctx context.Context) (CheckResult, error) {
	var result CheckResult
	result.ConfigPath = ConfigPath(c.Git.Dir())

	c.checkConfig(&result)
	c.checkRepository(ctx, &result)

	c.Log.DebugContext(ctx, fmt.Sprintf("check finished: %d errors, %d warnings",
		result.ErrorCount(), result.WarningCount()),
		LogAttrKeyCategory.String(), LogCategoryCheck)

	return result, nil
}

func (c *CheckCommand) checkConfig(result *CheckResult) {
	if c.Config.Destination == "" {
		result.Items = append(result.Items, CheckItem{
			Category:   CategoryConfig,
			Severity:   SeverityWarn,
			Message:    "no default destination configured",
			Suggestion: fmt.Sprintf("set destination in %s or pass it as an argument", configRelPath()),
		})
	} else if _, err := ParseDestination(c.Config.Destination); err != nil {
		result.Items = append(result.Items, CheckItem{
			Category: CategoryConfig,
			Severity: SeverityError,
			Message:  fmt.Sprintf("invalid destination %q: %v", c.Config.Destination, err),
		})
	} else {
		result.Items = append(result.Items, CheckItem{
			Category: CategoryConfig,
			Severity: SeverityOK,
			Message:  fmt.Sprintf("destination %q is valid", c.Config.Destination),
		})
	}

	for _, pattern := range c.Config.Files {
		if !ValidPattern(pattern) {
			result.Items = append(result.Items, CheckItem{
				Category: CategoryConfig,
				Severity: SeverityError,
				Message:  fmt.Sprintf("invalid file pattern %q", pattern),
			})
			continue
		}
		matches, err := c.FS.Glob(c.Git.Dir(), pattern)
		if err != nil {
			result.Items = append(result.Items, CheckItem{
				Category: CategoryConfig,
				Severity: SeverityError,
				Message:  fmt.Sprintf("file pattern %q: %v", pattern, err),
			})
			continue
		}
		if len(matches) == 0 {
			result.Items = append(result.Items, CheckItem{
				Category:   CategoryConfig,
				Severity:   SeverityWarn,
				Message:    fmt.Sprintf("file pattern %q matches no files", pattern),
				Suggestion: "syncs restricted to this pattern will have nothing to pick up",
			})
			continue
		}
		result.Items = append(result.Items, CheckItem{
			Category: CategoryConfig,
			Severity: SeverityOK,
			Message:  fmt.Sprintf("file pattern %q matches %d path(s)", pattern, len(matches)),
		})
	}
}

func (c *CheckCommand) checkRepository(ctx context.Context, result *CheckResult) {
	if !c.Git.IsInsideWorkTree(ctx) {
		result.Items = append(result.Items, CheckItem{
			Category:   CategoryRepository,
			Severity:   SeverityError,
			Message:    fmt.Sprintf("%s is not inside a git working tree", c.Git.Dir()),
			Suggestion: "run ferry from a repository checkout, or pass -C <dir>",
		})
		return
	}
	result.Items = append(result.Items, CheckItem{
		Category: CategoryRepository,
		Severity: SeverityOK,
		Message:  "inside a git working tree",
	})

	walker := NewModuleWalker(c.FS, func(dir string) *GitRunner { return c.Git.InDir(dir) }, c.Log)
	modules, err := walker.Discover(ctx, c.Git.Dir())
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Category: CategoryRepository,
			Severity: SeverityError,
			Message:  fmt.Sprintf("module discovery failed: %v", err),
		})
		return
	}

	result.Items = append(result.Items, CheckItem{
		Category: CategoryRepository,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("%d module(s) discovered", len(modules)),
	})

	for _, m := range modules {
		for _, mount := range m.Mounts {
			subDir := m.Dir + "/" + mount.Path
			if _, err := c.FS.Stat(subDir + "/.git"); err != nil && c.FS.IsNotExist(err) {
				result.Items = append(result.Items, CheckItem{
					Category:   CategoryRepository,
					Severity:   SeverityInfo,
					Message:    fmt.Sprintf("submodule %q is not initialized (will stay at its baseline)", mount.Path),
					Suggestion: "run 'git submodule update --init' to include it in syncs",
				})
			}
		}
	}
}
