// Package restore implements recovery: replaying a destination's full
// artifact followed by its incremental artifacts in order.
package restore

import (
	"context"
	"log/slog"
	"os"

	"github.com/cadornel/binback/internal/backup"
	"github.com/cadornel/binback/internal/errs"
	"github.com/cadornel/binback/internal/tool"
)

// Recovery replays a backup destination into a live server. It is fail-fast
// and takes no compensating action: the first failed replay stops the run and
// leaves the server in whatever state the failed step produced.
//
// Recovery reads the destination but never touches its position record, and
// takes no destination lock.
type Recovery struct {
	Runner tool.Runner
	Tools  tool.Toolset
	Conn   tool.Conn

	// PreReset clears the target's binary log state before replay.
	PreReset bool
}

// Result lists what was replayed, in order.
type Result struct {
	Full         string
	Incrementals []string
}

// Run replays dest. The full artifact is always applied before any
// incremental; incrementals apply in ascending filename order, which is
// chronological by the artifact naming contract.
func (r *Recovery) Run(ctx context.Context, dest string) (*Result, error) {
	fulls, incrementals, err := backup.ListArtifacts(dest)
	if err != nil {
		return nil, err
	}
	if len(fulls) == 0 {
		return nil, errs.New(errs.NoBackupFound, "no full backup artifact in %s", dest)
	}
	full := fulls[0]
	if len(fulls) > 1 {
		// A destination should hold one full artifact; picking the first in
		// name order preserves the tool's historical behavior.
		slog.Warn("multiple full artifacts found, using the first",
			"destination", dest, "using", full.Name, "found", len(fulls))
	}

	if r.PreReset {
		inv := r.Tools.ClientInvocation(r.Conn, "RESET MASTER")
		if err := r.Runner.Run(ctx, inv); err != nil {
			return nil, errs.Wrap(errs.Restore, err, "resetting target before replay")
		}
	}

	slog.Info("replaying full artifact", "artifact", full.Name)
	if err := r.replayFull(ctx, full); err != nil {
		return nil, err
	}

	result := &Result{Full: full.Name}
	for _, inc := range incrementals {
		slog.Info("replaying incremental artifact", "artifact", inc.Name)
		if err := r.replayIncremental(ctx, inc); err != nil {
			return result, err
		}
		result.Incrementals = append(result.Incrementals, inc.Name)
	}
	slog.Info("recovery complete", "full", full.Name, "incrementals", len(result.Incrementals))
	return result, nil
}

func (r *Recovery) replayFull(ctx context.Context, a backup.Artifact) error {
	var inv tool.Invocation
	if r.Tools.Family == tool.FamilyMydumper {
		// myloader reads the dump directory itself; no stdin involved.
		inv = r.Tools.LoadSnapshotInvocation(r.Conn, a.Path, nil)
	} else {
		f, err := os.Open(a.Path)
		if err != nil {
			return errs.Wrap(errs.Restore, err, "opening full artifact %s", a.Name)
		}
		defer f.Close()
		inv = r.Tools.LoadSnapshotInvocation(r.Conn, a.Path, f)
	}
	if err := r.Runner.Run(ctx, inv); err != nil {
		return errs.Wrap(errs.Restore, err, "replaying full artifact %s", a.Name)
	}
	return nil
}

func (r *Recovery) replayIncremental(ctx context.Context, a backup.Artifact) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return errs.Wrap(errs.Restore, err, "opening incremental artifact %s", a.Name)
	}
	defer f.Close()

	inv := r.Tools.ReplayInvocation(r.Conn, f)
	if err := r.Runner.Run(ctx, inv); err != nil {
		return errs.Wrap(errs.Restore, err, "replaying incremental artifact %s", a.Name)
	}
	return nil
}
