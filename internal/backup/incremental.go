package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cadornel/binback/internal/binlog"
	"github.com/cadornel/binback/internal/errs"
	"github.com/cadornel/binback/internal/history"
	"github.com/cadornel/binback/internal/lock"
	"github.com/cadornel/binback/internal/tool"
)

// Incremental orchestrates one incremental backup run: it diffs the stored
// coordinate against the live catalog and exports the missing segment range.
type Incremental struct {
	Catalog binlog.Catalog
	Runner  tool.Runner
	Tools   tool.Toolset
	Conn    tool.Conn

	// Now and Tokens are injectable for deterministic tests.
	Now    func() time.Time
	Tokens RunTokenGenerator
}

// IncrementalResult describes what a run did. A graceful no-op has Noop set
// and an empty Exported list.
type IncrementalResult struct {
	Exported []string // artifact names, in export order
	From, To binlog.Coordinate
	Noop     bool
	Reason   string // set for no-ops
}

// exportStep is one planned segment export. Nil bounds mean the segment's
// natural start or end.
type exportStep struct {
	Segment  string
	Start    *uint64
	Stop     *uint64
	Artifact string
}

func (inc *Incremental) now() time.Time {
	if inc.Now != nil {
		return inc.Now()
	}
	return time.Now()
}

func (inc *Incremental) newToken() string {
	if inc.Tokens != nil {
		return inc.Tokens.NewRunToken()
	}
	return UUIDv7Generator{}.NewRunToken()
}

// Run executes the incremental backup into dest. When no position record
// exists, skipIfUnready turns the failure into a graceful no-op so scheduled
// runs before the first full backup exit cleanly.
//
// The position record only advances after the entire batch succeeds. A failed
// batch deletes the artifacts it wrote, so a retry re-exports the same range
// without leaving duplicates behind.
func (inc *Incremental) Run(ctx context.Context, dest string, skipIfUnready bool) (*IncrementalResult, error) {
	l, err := lock.Acquire(dest)
	if err != nil {
		return nil, err
	}
	defer l.Release()

	pos := binlog.NewPositionStore(dest)
	stored, err := pos.Load()
	if err != nil {
		if errors.Is(err, binlog.ErrNoPosition) {
			if skipIfUnready {
				slog.Info("no full backup yet, skipping", "destination", dest)
				return &IncrementalResult{Noop: true, Reason: "no full backup yet"}, nil
			}
			return nil, errs.New(errs.NotReady, "destination %s has no full backup yet", dest)
		}
		return nil, err
	}

	segments, err := inc.Catalog.Segments(ctx)
	if err != nil {
		return nil, err
	}
	// The stored segment stays in the batch: it may still hold unexported
	// tail data past the stored offset.
	batch := segments[:0:0]
	for _, s := range segments {
		if s >= stored.Segment {
			batch = append(batch, s)
		}
	}
	sort.Strings(batch)
	if len(batch) == 0 {
		return nil, errs.New(errs.Consistency,
			"stored segment %s is no longer in the server's catalog", stored.Segment)
	}
	// The stored offset is only meaningful inside the stored segment. If the
	// server purged that segment, applying the offset to a newer one would
	// silently truncate its export.
	if batch[0] != stored.Segment {
		return nil, errs.New(errs.Consistency,
			"stored segment %s was purged from the catalog (oldest remaining is %s)",
			stored.Segment, batch[0])
	}

	tip, err := inc.Catalog.Tip(ctx)
	if err != nil {
		return nil, err
	}
	// The catalog and tip are read at two points in time; a rollover between
	// them shows up as a disagreement here and stops the run.
	if last := batch[len(batch)-1]; last != tip.Segment {
		return nil, errs.New(errs.Consistency,
			"catalog ends at %s but the server reports tip %s", last, tip.Segment)
	}
	if tip.Compare(stored) < 0 {
		return nil, errs.New(errs.Consistency,
			"stored coordinate %s is ahead of the live tip %s", stored, tip)
	}

	if coordinatesEqual(stored, tip) {
		slog.Info("nothing to back up", "coordinate", stored.String())
		recordRun(ctx, dest, history.Run{
			Token:      inc.newToken(),
			Kind:       "incremental",
			From:       stored.String(),
			To:         tip.String(),
			Status:     history.StatusNoop,
			FinishedAt: inc.now(),
		})
		return &IncrementalResult{From: stored, To: tip, Noop: true, Reason: "nothing to back up"}, nil
	}

	token := inc.newToken()
	audit := NewAudit(dest, token, inc.Now)
	steps := planExports(stored, tip, batch, inc.now(), dest)

	audit.Log("incremental batch start: %d segment(s), %s -> %s", len(steps), stored, tip)

	var written []string
	for _, step := range steps {
		if err := inc.exportSegment(ctx, step); err != nil {
			cleanupArtifacts(append(written, step.Artifact))
			audit.Log("incremental batch aborted at %s: %v", step.Segment, err)
			return nil, err
		}
		written = append(written, step.Artifact)
		audit.Log("exported %s as %s", step.Segment, filepath.Base(step.Artifact))
		slog.Info("segment exported", "segment", step.Segment, "artifact", step.Artifact)
	}

	if err := pos.Save(tip); err != nil {
		return nil, err
	}
	audit.Log("incremental batch end: coordinate %s", tip)

	result := &IncrementalResult{From: stored, To: tip}
	for _, w := range written {
		result.Exported = append(result.Exported, filepath.Base(w))
	}

	recordRun(ctx, dest, history.Run{
		Token:      token,
		Kind:       "incremental",
		From:       stored.String(),
		To:         tip.String(),
		Artifacts:  len(written),
		Status:     history.StatusOK,
		FinishedAt: inc.now(),
	})
	return result, nil
}

// exportSegment runs one external export, writing the segment to its artifact
// file. Nonzero exit or an empty artifact aborts the batch.
func (inc *Incremental) exportSegment(ctx context.Context, step exportStep) error {
	out, err := os.Create(step.Artifact)
	if err != nil {
		return fmt.Errorf("creating artifact: %w", err)
	}
	inv := inc.Tools.BinlogExportInvocation(inc.Conn, step.Segment, step.Start, step.Stop, out)
	runErr := inc.Runner.Run(ctx, inv)
	closeErr := out.Close()
	if runErr != nil {
		return errs.Wrap(errs.ToolInvocation, runErr, "exporting segment %s", step.Segment)
	}
	if closeErr != nil {
		return fmt.Errorf("writing artifact: %w", closeErr)
	}
	info, err := os.Stat(step.Artifact)
	if err != nil || info.Size() == 0 {
		return errs.New(errs.ToolInvocation,
			"export of %s exited cleanly but wrote no output", step.Segment)
	}
	return nil
}

// planExports lays out the batch: every catalog segment from the stored one
// through the tip, in ascending order, one artifact each. Only the first
// segment carries a start offset and only the last carries a stop offset;
// middle segments are exported whole.
func planExports(stored, tip binlog.Coordinate, batch []string, ts time.Time, dest string) []exportStep {
	steps := make([]exportStep, len(batch))
	for i, segment := range batch {
		step := exportStep{
			Segment:  segment,
			Artifact: filepath.Join(dest, IncrementalArtifactName(ts, segment)),
		}
		if i == 0 {
			start := stored.Offset
			step.Start = &start
		}
		if i == len(batch)-1 {
			stop := tip.Offset
			step.Stop = &stop
		}
		steps[i] = step
	}
	return steps
}

// renderPlan formats a batch for logs and golden tests.
func renderPlan(steps []exportStep) string {
	var b strings.Builder
	for _, s := range steps {
		start, stop := "-", "-"
		if s.Start != nil {
			start = fmt.Sprintf("%d", *s.Start)
		}
		if s.Stop != nil {
			stop = fmt.Sprintf("%d", *s.Stop)
		}
		fmt.Fprintf(&b, "%s start=%s stop=%s -> %s\n", s.Segment, start, stop, filepath.Base(s.Artifact))
	}
	return b.String()
}

// cleanupArtifacts removes the partial output of a failed batch.
func cleanupArtifacts(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("could not remove partial artifact", "path", p, "error", err)
		}
	}
}
