package ferry

import (
	"fmt"
	"io"
	"strings"
)

// IndentWriter writes lines to an underlying writer, prefixing each with
// the current indent level's worth of the indent string.
type IndentWriter struct {
	w      io.Writer
	indent string
	level  int
}

// NewIndentWriter wraps w; indent is repeated once per level.
func NewIndentWriter(w io.Writer, indent string) *IndentWriter {
	return &IndentWriter{w: w, indent: indent}
}

// Indent deepens the prefix by one level. Returns the writer for chaining.
func (iw *IndentWriter) Indent() *IndentWriter {
	iw.level++
	return iw
}

// Dedent shallows the prefix by one level, never below zero.
func (iw *IndentWriter) Dedent() *IndentWriter {
	if iw.level > 0 {
		iw.level--
	}
	return iw
}

// Writef writes one prefixed, formatted line.
func (iw *IndentWriter) Writef(format string, args ...any) {
	fmt.Fprintf(iw.w, strings.Repeat(iw.indent, iw.level)+format+"\n", args...)
}

// Writeln writes one prefixed line.
func (iw *IndentWriter) Writeln(s string) {
	iw.Writef("%s", s)
}

// Blankln writes an empty, unprefixed line.
func (iw *IndentWriter) Blankln() {
	fmt.Fprintln(iw.w)
}
