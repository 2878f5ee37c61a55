package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cadornel/binback/internal/binlog"
	"github.com/cadornel/binback/internal/tool"
)

// fakeCatalog is a canned Catalog for orchestrator tests.
type fakeCatalog struct {
	version  string
	segments []string
	tip      binlog.Coordinate

	versionErr  error
	segmentsErr error
	tipErr      error
}

func (c *fakeCatalog) ServerVersion(context.Context) (string, error) {
	return c.version, c.versionErr
}

func (c *fakeCatalog) Segments(context.Context) ([]string, error) {
	return append([]string(nil), c.segments...), c.segmentsErr
}

func (c *fakeCatalog) Tip(context.Context) (binlog.Coordinate, error) {
	return c.tip, c.tipErr
}

// fakeRunner records invocations and delegates behavior to onRun. When onRun
// is nil it writes a small payload to any redirected stdout, which satisfies
// the non-empty artifact check.
type fakeRunner struct {
	runs    []tool.Invocation
	onRun   func(inv tool.Invocation) error
	version string // returned for any Output call
}

func (r *fakeRunner) Run(_ context.Context, inv tool.Invocation) error {
	r.runs = append(r.runs, inv)
	if r.onRun != nil {
		return r.onRun(inv)
	}
	if inv.Stdout != nil {
		fmt.Fprintln(inv.Stdout, "-- exported statements")
	}
	return nil
}

func (r *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	return r.version, nil
}

// argValue extracts the value of a --flag=value argument, or "" when absent.
func argValue(inv tool.Invocation, flag string) string {
	prefix := flag + "="
	for _, a := range inv.Args {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix)
		}
	}
	return ""
}

func hasArg(inv tool.Invocation, arg string) bool {
	for _, a := range inv.Args {
		if a == arg {
			return true
		}
	}
	return false
}

// fixedClock returns a deterministic Now function.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticTokens issues the same run token every time.
type staticTokens string

func (s staticTokens) NewRunToken() string { return string(s) }

var testTime = time.Date(2026, 8, 23, 10, 15, 1, 0, time.UTC)

var testConn = tool.Conn{Host: "db1", Port: 3306, User: "backup"}
