package ferry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// SyncRef is the private reference synthetic commits are pushed to. It
// lives outside refs/heads so it never appears as a branch, and is
// force-updated on every run.
const SyncRef = "refs/ferry/sync"

// PushTarget is one module's synthetic commit bound for the remote.
type PushTarget struct {
	Module Module
	Commit string
}

// Transport pushes each module's synthetic commit into the corresponding
// module checkout inside the remote replica, one push per module.
type Transport struct {
	NewGit func(dir string) *GitRunner
	Log    *slog.Logger
}

// NewTransport creates a Transport.
func NewTransport(newGit func(dir string) *GitRunner, log *slog.Logger) *Transport {
	if log == nil {
		log = NewNopLogger()
	}
	return &Transport{NewGit: newGit, Log: log}
}

// PushAll pushes every target concurrently and waits for all of them.
// Any failure aborts the run before remote application; already-pushed
// objects are harmless content-addressed garbage and are not rolled back.
func (t *Transport) PushAll(ctx context.Context, dest Destination, targets []PushTarget) error {
	var wg sync.WaitGroup
	errs := make([]error, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target PushTarget) {
			defer wg.Done()
			errs[i] = t.push(ctx, dest, target)
		}(i, target)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) push(ctx context.Context, dest Destination, target PushTarget) error {
	remote := dest.ModuleRemote(target.Module.Path)
	t.Log.InfoContext(ctx, fmt.Sprintf("pushing %s to %s", shortID(target.Commit), remote),
		LogAttrKeyCategory.String(), LogCategoryPush)

	git := t.NewGit(target.Module.Dir)
	if err := git.PushRef(ctx, remote, target.Commit, SyncRef); err != nil {
		return fmt.Errorf("push failed for module %q: %w", target.Module.DisplayPath(), err)
	}
	return nil
}
