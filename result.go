package ferry

// FormatResult holds a command's rendered output. Formatting never
// writes directly; callers decide where each stream goes.
type FormatResult struct {
	Stdout string
	Stderr string
}
