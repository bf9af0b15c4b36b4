package ferry

import (
	"fmt"
	"path"
	"strings"
)

// Destination designates the remote replica: an optional ssh host and the
// path of the repository checkout on that host.
type Destination struct {
	Host string // empty for a same-host destination
	Path string
}

// ParseDestination parses scp-like "[host:]path" syntax. A colon before
// the first slash separates the host from the path; otherwise the whole
// string is a local path.
func ParseDestination(s string) (Destination, error) {
	if s == "" {
		return Destination{}, fmt.Errorf("destination is required")
	}
	if i := strings.Index(s, ":"); i >= 0 && !strings.Contains(s[:i], "/") {
		host, p := s[:i], s[i+1:]
		if host == "" || p == "" {
			return Destination{}, fmt.Errorf("malformed destination %q", s)
		}
		return Destination{Host: host, Path: p}, nil
	}
	return Destination{Path: s}, nil
}

// String renders the destination back in "[host:]path" form.
func (d Destination) String() string {
	if d.Host == "" {
		return d.Path
	}
	return d.Host + ":" + d.Path
}

// Remote reports whether the destination is on another host.
func (d Destination) Remote() bool {
	return d.Host != ""
}

// ModuleRemote returns the git remote URL for one module's checkout inside
// the destination repository.
func (d Destination) ModuleRemote(modulePath string) string {
	p := d.Path
	if modulePath != "" {
		p = path.Join(d.Path, modulePath)
	}
	if d.Host == "" {
		return p
	}
	return d.Host + ":" + p
}

// ModulePath returns the on-disk path of one module's checkout inside the
// destination repository.
func (d Destination) ModulePath(modulePath string) string {
	if modulePath == "" {
		return d.Path
	}
	return path.Join(d.Path, modulePath)
}
