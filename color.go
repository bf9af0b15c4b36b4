package ferry

import "github.com/fatih/color"

// ColorMode defines color output behavior.
type ColorMode string

const (
	ColorModeAuto   ColorMode = "auto" // color when stdout is a TTY
	ColorModeAlways ColorMode = "always"
	ColorModeNever  ColorMode = "never"
)

// Palette for sync/check output. colorSynced and colorDryRun head the
// summary line, colorSuccess marks applied modules, colorDim renders
// clean-module and baseline annotations.
var (
	colorSynced  = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorDryRun  = color.New(color.FgYellow, color.Bold).SprintFunc()
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorDim     = color.New(color.FgHiBlack).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// SetColorMode configures the global color state. ColorModeAuto keeps
// fatih/color's own TTY detection.
func SetColorMode(mode ColorMode) {
	switch mode {
	case ColorModeAlways:
		color.NoColor = false
	case ColorModeNever:
		color.NoColor = true
	case ColorModeAuto:
	}
}

// IsColorEnabled reports the effective state after SetColorMode.
func IsColorEnabled() bool {
	return !color.NoColor
}
