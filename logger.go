package ferry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// LogAttrKey is a type-safe key for slog attributes.
type LogAttrKey string

func (k LogAttrKey) String() string { return string(k) }

// Attr creates a slog.Attr with this key and the given value.
func (k LogAttrKey) Attr(value string) slog.Attr {
	return slog.String(string(k), value)
}

const (
	LogAttrKeyCategory LogAttrKey = "category"
	LogAttrKeyCmdID    LogAttrKey = "cmd_id"
)

// Log category values for consistent output prefixes.
const (
	LogCategoryGit    = "git"
	LogCategoryConfig = "config"
	LogCategoryStatus = "status"
	LogCategoryTree   = "tree"
	LogCategoryCommit = "commit"
	LogCategoryPush   = "push"
	LogCategoryApply  = "apply"
	LogCategorySync   = "sync"
	LogCategoryCheck  = "check"
)

// CLIHandler is a slog.Handler that renders one plain-text line per record:
//
//	2006-01-02 15:04:05.000 [LEVEL] [cmd_id] category: message
//
// The cmd_id and category segments are omitted when unset. Attributes other
// than category and cmd_id are not rendered; this is terminal output, not a
// structured sink.
type CLIHandler struct {
	w        io.Writer
	level    slog.Level
	cmdID    string
	category string
	mu       *sync.Mutex
}

// NewCLIHandler creates a CLIHandler writing to w, dropping records below
// level.
func NewCLIHandler(w io.Writer, level slog.Level) *CLIHandler {
	return &CLIHandler{w: w, level: level, mu: &sync.Mutex{}}
}

func (h *CLIHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *CLIHandler) Handle(_ context.Context, r slog.Record) error {
	// A category on the record wins over one bound via WithAttrs.
	category := h.category
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == string(LogAttrKeyCategory) {
			category = a.Value.String()
			return false
		}
		return true
	})

	prefix := ""
	if h.cmdID != "" {
		prefix = fmt.Sprintf("[%s] ", h.cmdID)
	}
	if category != "" {
		prefix += category + ": "
	}

	line := fmt.Sprintf("%s [%s] %s%s\n",
		r.Time.Format("2006-01-02 15:04:05.000"),
		strings.ToUpper(r.Level.String()),
		prefix,
		r.Message,
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}

// WithAttrs captures cmd_id and category into the returned handler; all
// other attributes are dropped (see the type comment).
func (h *CLIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	for _, a := range attrs {
		switch a.Key {
		case string(LogAttrKeyCmdID):
			clone.cmdID = a.Value.String()
		case string(LogAttrKeyCategory):
			clone.category = a.Value.String()
		}
	}
	return &clone
}

// WithGroup is a no-op; grouped output has no place in a single-line format.
func (h *CLIHandler) WithGroup(_ string) slog.Handler {
	return h
}

// NewNopLogger creates a logger that discards everything.
func NewNopLogger() *slog.Logger {
	return slog.New(NewCLIHandler(io.Discard, slog.LevelError+1))
}

// VerbosityToLevel maps the -v count to a slog.Level: 0 warns and errors
// only, 1 adds info, 2 or more adds debug.
func VerbosityToLevel(verbosity int) slog.Level {
	switch {
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// GenerateCommandID returns a random 8-character hex id used to correlate
// all log lines of one invocation.
func GenerateCommandID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// Without entropy the id is skipped rather than failing the run.
		return ""
	}
	return hex.EncodeToString(b)
}
