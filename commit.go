package ferry

import (
	"context"
	"fmt"
	"log/slog"
)

// Fixed identity and timestamp for synthetic commits. Identical trees and
// baselines must always produce identical commit ids, so repeated no-op
// syncs are cheap and force-pushes are safe.
const (
	syncAuthorName  = "ferry"
	syncAuthorEmail = "ferry@localhost"
	// Epoch, the earliest timestamp the commit object format accepts.
	syncCommitDate    = "@0 +0000"
	syncCommitMessage = "ferry: working tree snapshot"
)

// SyncSignature is the constant identity recorded on every synthetic commit.
func SyncSignature() Signature {
	return Signature{Name: syncAuthorName, Email: syncAuthorEmail, Date: syncCommitDate}
}

// CommitFactory wraps constructed trees in synthetic commits parented on
// the module's baseline.
type CommitFactory struct {
	Log *slog.Logger
}

// NewCommitFactory creates a CommitFactory.
func NewCommitFactory(log *slog.Logger) *CommitFactory {
	if log == nil {
		log = NewNopLogger()
	}
	return &CommitFactory{Log: log}
}

// Create builds a commit for treeID whose parent is baselineID, using the
// fixed identity and timestamp.
func (f *CommitFactory) Create(ctx context.Context, git *GitRunner, treeID, baselineID string) (string, error) {
	id, err := git.CommitTree(ctx, treeID, baselineID, syncCommitMessage, SyncSignature())
	if err != nil {
		return "", err
	}
	f.Log.DebugContext(ctx, fmt.Sprintf("created synthetic commit %s (tree %s)", shortID(id), shortID(treeID)),
		LogAttrKeyCategory.String(), LogCategoryCommit)
	return id, nil
}
