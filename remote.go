package ferry

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// RemoteShell executes a composed shell script at the destination. The
// engine never parses its output beyond success or failure of the whole
// script.
type RemoteShell interface {
	Run(ctx context.Context, script string) ([]byte, error)
}

// NewShellFor returns the shell appropriate for the destination: ssh for
// remote hosts, a plain subshell for same-host destinations.
func NewShellFor(dest Destination, log *slog.Logger) RemoteShell {
	if log == nil {
		log = NewNopLogger()
	}
	if dest.Remote() {
		return sshShell{host: dest.Host, log: log}
	}
	return localShell{log: log}
}

// sshShell pipes the script to "sh -s" on the remote host over a single
// ssh invocation. Connection reuse and auth are the ssh client's concern.
type sshShell struct {
	host string
	log  *slog.Logger
}

func (s sshShell) Run(ctx context.Context, script string) ([]byte, error) {
	s.log.DebugContext(ctx, "executing apply script on "+s.host,
		LogAttrKeyCategory.String(), LogCategoryApply)
	cmd := exec.CommandContext(ctx, "ssh", s.host, "sh", "-s")
	cmd.Stdin = strings.NewReader(script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("remote apply on %s failed: %w", s.host, err)
	}
	return out, nil
}

// localShell runs the script in a local subshell, for destinations that
// are just another checkout on this machine.
type localShell struct {
	log *slog.Logger
}

func (s localShell) Run(ctx context.Context, script string) ([]byte, error) {
	s.log.DebugContext(ctx, "executing apply script locally",
		LogAttrKeyCategory.String(), LogCategoryApply)
	cmd := exec.CommandContext(ctx, "sh", "-s")
	cmd.Stdin = strings.NewReader(script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("apply failed: %w", err)
	}
	return out, nil
}
