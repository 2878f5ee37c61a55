package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/cadornel/binback/internal/binlog"
	"github.com/cadornel/binback/internal/tool"
)

// fakeCatalog stands in for the live server connection in command tests.
type fakeCatalog struct {
	version  string
	segments []string
	tip      binlog.Coordinate
}

func (c *fakeCatalog) ServerVersion(context.Context) (string, error)  { return c.version, nil }
func (c *fakeCatalog) Segments(context.Context) ([]string, error)     { return c.segments, nil }
func (c *fakeCatalog) Tip(context.Context) (binlog.Coordinate, error) { return c.tip, nil }

// fakeRunner stands in for external tools in command tests.
type fakeRunner struct {
	banner string
	onRun  func(inv tool.Invocation) error
	runs   []tool.Invocation
}

func (r *fakeRunner) Run(_ context.Context, inv tool.Invocation) error {
	if inv.Stdin != nil {
		io.Copy(io.Discard, inv.Stdin)
	}
	r.runs = append(r.runs, inv)
	if r.onRun != nil {
		return r.onRun(inv)
	}
	if inv.Stdout != nil {
		inv.Stdout.Write([]byte("-- exported\n"))
	}
	return nil
}

func (r *fakeRunner) Output(context.Context, string, ...string) (string, error) {
	return r.banner, nil
}

// snapshotWriter makes the fake snapshot tool write content to its
// --result-file argument.
func snapshotWriter(content string) func(tool.Invocation) error {
	return func(inv tool.Invocation) error {
		for _, a := range inv.Args {
			if strings.HasPrefix(a, "--result-file=") {
				return os.WriteFile(strings.TrimPrefix(a, "--result-file="), []byte(content), 0o644)
			}
		}
		return nil
	}
}

const testDumpHeader = "-- CHANGE MASTER TO MASTER_LOG_FILE='binlog.000042', MASTER_LOG_POS=1571;\n"

const testBanner = "mysqldump  Ver 8.0.36 for Linux on x86_64 (MySQL Community Server - GPL)"
