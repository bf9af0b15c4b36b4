package ferry

import (
	"fmt"
	"strings"
)

// ApplyStep is one module's remote application: check out the synthetic
// commit and remove leftover untracked debris.
type ApplyStep struct {
	ModulePath string
	Commit     string
}

// ScriptOptions configures the generated remote apply script.
type ScriptOptions struct {
	// KeepRef leaves the synthetic commit on the module's current ref,
	// visible in history. The default records the original ref before
	// checkout and restores it afterward, leaving the synced content as
	// uncommitted/untracked changes and no trace in reference history.
	KeepRef bool

	// Extra script fragments run after all synchronization steps.
	Extra []string
}

// BuildApplyScript assembles the single shell procedure executed on the
// remote. Steps must be in children-first order so a parent's checkout
// never references a child state that has not been materialized. The
// script aborts on the first failing step.
func BuildApplyScript(rootPath string, steps []ApplyStep, opts ScriptOptions) string {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("set -eu\n")

	for _, step := range steps {
		dir := rootPath
		label := "."
		if step.ModulePath != "" {
			dir = rootPath + "/" + step.ModulePath
			label = step.ModulePath
		}
		fmt.Fprintf(&sb, "# module %s\n", label)
		sb.WriteString("(\n")
		fmt.Fprintf(&sb, "cd %s\n", shQuote(dir))
		if !opts.KeepRef {
			sb.WriteString("prev=$(git rev-parse HEAD)\n")
		}
		fmt.Fprintf(&sb, "git update-ref HEAD %s\n", shQuote(step.Commit))
		sb.WriteString("git reset -q --hard\n")
		sb.WriteString("git clean -fdq\n")
		if !opts.KeepRef {
			// Mixed reset: the ref and index return to the original
			// commit, the synced content stays in the working tree.
			sb.WriteString("git reset -q \"$prev\"\n")
		}
		sb.WriteString(")\n")
	}

	for _, fragment := range opts.Extra {
		sb.WriteString(fragment)
		if !strings.HasSuffix(fragment, "\n") {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// shQuote single-quotes s for POSIX shells, escaping embedded quotes.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
