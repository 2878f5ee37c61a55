package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cadornel/binback/internal/binlog"
	"github.com/cadornel/binback/internal/errs"
	"github.com/cadornel/binback/internal/history"
	"github.com/cadornel/binback/internal/lock"
	"github.com/cadornel/binback/internal/tool"
)

// SupportedMajors is the server major-version family this tool knows how to
// back up. Anything else fails the version gate.
var SupportedMajors = []int{5, 8}

// Full orchestrates one full backup run: version gates, destination purge,
// snapshot export, coordinate extraction, position initialization.
type Full struct {
	Catalog binlog.Catalog
	Runner  tool.Runner
	Tools   tool.Toolset
	Conn    tool.Conn

	// ScanLimit overrides the coordinate scan bound; zero means the default.
	ScanLimit int

	// Now and Tokens are injectable for deterministic tests.
	Now    func() time.Time
	Tokens RunTokenGenerator
}

func (f *Full) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Full) newToken() string {
	if f.Tokens != nil {
		return f.Tokens.NewRunToken()
	}
	return UUIDv7Generator{}.NewRunToken()
}

// Run executes the full backup into dest. extraArgs are passed through to the
// snapshot tool. On success the persisted coordinate is returned; on any
// failure the run stops and no position record is written.
func (f *Full) Run(ctx context.Context, dest string, extraArgs []string) (binlog.Coordinate, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return binlog.Coordinate{}, fmt.Errorf("creating destination: %w", err)
	}
	l, err := lock.Acquire(dest)
	if err != nil {
		return binlog.Coordinate{}, err
	}
	defer l.Release()

	version, err := f.Catalog.ServerVersion(ctx)
	if err != nil {
		return binlog.Coordinate{}, err
	}
	major, err := tool.MajorVersion(version)
	if err != nil {
		return binlog.Coordinate{}, errs.Wrap(errs.UnsupportedVersion, err, "server version %q", version)
	}
	if !supportedMajor(major) {
		return binlog.Coordinate{}, errs.New(errs.UnsupportedVersion,
			"server version %s is outside the supported families %v", version, SupportedMajors)
	}

	// Snapshot format compatibility depends on the tool and server agreeing
	// on the exact version, not just the major.
	snapshotTool, versionArgs := f.Tools.SnapshotVersionArgs()
	banner, err := f.Runner.Output(ctx, snapshotTool, versionArgs...)
	if err != nil {
		return binlog.Coordinate{}, errs.Wrap(errs.ToolInvocation, err, "probing %s version", snapshotTool)
	}
	if !tool.VersionMatches(version, banner) {
		return binlog.Coordinate{}, errs.New(errs.ToolVersionMismatch,
			"%s version %q does not match server version %s", snapshotTool, banner, version)
	}

	if err := Purge(dest); err != nil {
		return binlog.Coordinate{}, err
	}

	token := f.newToken()
	audit := NewAudit(dest, token, f.Now)

	started := f.now()
	artifact := filepath.Join(dest, FullArtifactName(started, f.Tools.Family))
	slog.Info("exporting full snapshot", "artifact", artifact, "server_version", version)
	audit.Log("full backup start: server %s, artifact %s", version, filepath.Base(artifact))

	inv := f.Tools.SnapshotInvocation(f.Conn, artifact, extraArgs)
	if err := f.Runner.Run(ctx, inv); err != nil {
		return binlog.Coordinate{}, errs.Wrap(errs.ToolInvocation, err, "snapshot export failed")
	}
	if _, err := os.Stat(artifact); err != nil {
		return binlog.Coordinate{}, errs.New(errs.ToolInvocation,
			"snapshot tool exited cleanly but produced no artifact at %s", artifact)
	}

	coord, err := Extractor{ScanLimit: f.ScanLimit}.FromArtifact(artifact, f.Tools.Family)
	if err != nil {
		return binlog.Coordinate{}, err
	}

	if err := binlog.NewPositionStore(dest).Save(coord); err != nil {
		return binlog.Coordinate{}, err
	}

	audit.Log("full backup complete: coordinate %s", coord)
	slog.Info("full backup complete", "coordinate", coord.String(), "artifact", artifact)

	recordRun(ctx, dest, history.Run{
		Token:      token,
		Kind:       "full",
		To:         coord.String(),
		Artifacts:  1,
		Status:     history.StatusOK,
		FinishedAt: f.now(),
	})
	return coord, nil
}

func supportedMajor(major int) bool {
	for _, m := range SupportedMajors {
		if m == major {
			return true
		}
	}
	return false
}

// recordRun appends to the destination's history ledger. The ledger is
// informational, so failures are logged rather than failing the run.
func recordRun(ctx context.Context, dest string, r history.Run) {
	st, err := history.Open(dest)
	if err != nil {
		slog.Warn("history ledger unavailable", "error", err)
		return
	}
	defer st.Close()
	if err := st.Record(ctx, r); err != nil {
		slog.Warn("history ledger write failed", "error", err)
	}
}
