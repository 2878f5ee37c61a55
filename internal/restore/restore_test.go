package restore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadornel/binback/internal/errs"
	"github.com/cadornel/binback/internal/tool"
)

// fakeRunner records each invocation together with what it read from stdin,
// so tests can assert replay order and content.
type fakeRunner struct {
	invocations []tool.Invocation
	stdins      []string
	onRun       func(inv tool.Invocation, stdin string) error
}

func (r *fakeRunner) Run(_ context.Context, inv tool.Invocation) error {
	var stdin string
	if inv.Stdin != nil {
		data, _ := io.ReadAll(inv.Stdin)
		stdin = string(data)
	}
	r.invocations = append(r.invocations, inv)
	r.stdins = append(r.stdins, stdin)
	if r.onRun != nil {
		return r.onRun(inv, stdin)
	}
	return nil
}

func (r *fakeRunner) Output(context.Context, string, ...string) (string, error) {
	return "", nil
}

var testConn = tool.Conn{Host: "db1", Port: 3306, User: "restore"}

func newRecovery(runner *fakeRunner) *Recovery {
	return &Recovery{
		Runner: runner,
		Tools:  tool.DefaultToolset(tool.FamilyDump),
		Conn:   testConn,
	}
}

func writeDest(t *testing.T, files map[string]string) string {
	t.Helper()
	dest := filepath.Join(t.TempDir(), "db1")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dest, name), []byte(content), 0o644))
	}
	return dest
}

func TestRecoveryReplaysFullThenIncrementalsInOrder(t *testing.T) {
	dest := writeDest(t, map[string]string{
		"20260823-100000-full.sql":                      "full dump",
		"20260823-110000-binlog.000006-incremental.sql": "second incremental",
		"20260823-103000-binlog.000005-incremental.sql": "first incremental",
		"position":   "binlog.000006:42\n",
		"backup.log": "audit noise\n",
	})
	runner := &fakeRunner{}

	result, err := newRecovery(runner).Run(context.Background(), dest)
	require.NoError(t, err)

	assert.Equal(t, "20260823-100000-full.sql", result.Full)
	assert.Equal(t, []string{
		"20260823-103000-binlog.000005-incremental.sql",
		"20260823-110000-binlog.000006-incremental.sql",
	}, result.Incrementals)

	// Full goes to the loader first, then incrementals in timestamp order.
	require.Len(t, runner.invocations, 3)
	assert.Equal(t, []string{"full dump", "first incremental", "second incremental"}, runner.stdins)

	// The position record is untouched by recovery.
	data, err := os.ReadFile(filepath.Join(dest, "position"))
	require.NoError(t, err)
	assert.Equal(t, "binlog.000006:42\n", string(data))
}

func TestRecoveryNoBackupFound(t *testing.T) {
	dest := writeDest(t, map[string]string{
		"20260823-103000-binlog.000005-incremental.sql": "orphan incremental",
	})

	_, err := newRecovery(&fakeRunner{}).Run(context.Background(), dest)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NoBackupFound))
}

func TestRecoveryFullOnlySucceeds(t *testing.T) {
	dest := writeDest(t, map[string]string{"20260823-100000-full.sql": "full dump"})
	runner := &fakeRunner{}

	result, err := newRecovery(runner).Run(context.Background(), dest)
	require.NoError(t, err)
	assert.Empty(t, result.Incrementals)
	assert.Len(t, runner.invocations, 1)
}

func TestRecoveryFullReplayFailureStopsEverything(t *testing.T) {
	dest := writeDest(t, map[string]string{
		"20260823-100000-full.sql":                      "full dump",
		"20260823-103000-binlog.000005-incremental.sql": "incremental",
	})
	runner := &fakeRunner{onRun: func(tool.Invocation, string) error {
		return errors.New("exit status 1")
	}}

	_, err := newRecovery(runner).Run(context.Background(), dest)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Restore))
	assert.Len(t, runner.invocations, 1, "no incremental may be attempted after a failed full replay")
}

// Scenario: two incrementals T1 < T2; the T1 replay fails. T2 must never run
// and the error names T1.
func TestRecoveryStopsAtFirstFailedIncremental(t *testing.T) {
	dest := writeDest(t, map[string]string{
		"20260823-100000-full.sql":                      "full dump",
		"20260823-103000-binlog.000005-incremental.sql": "t1",
		"20260823-110000-binlog.000006-incremental.sql": "t2",
	})
	runner := &fakeRunner{onRun: func(_ tool.Invocation, stdin string) error {
		if stdin == "t1" {
			return errors.New("exit status 1")
		}
		return nil
	}}

	result, err := newRecovery(runner).Run(context.Background(), dest)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Restore))
	assert.Contains(t, err.Error(), "20260823-103000-binlog.000005-incremental.sql")

	assert.Len(t, runner.invocations, 2, "t2 must never be attempted")
	assert.Empty(t, result.Incrementals)
}

func TestRecoveryMultipleFullArtifactsUsesFirst(t *testing.T) {
	dest := writeDest(t, map[string]string{
		"20260823-090000-full.sql": "older full",
		"20260823-100000-full.sql": "newer full",
	})
	runner := &fakeRunner{}

	result, err := newRecovery(runner).Run(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, "20260823-090000-full.sql", result.Full)
	assert.Equal(t, "older full", runner.stdins[0])
}

func TestRecoveryPreResetRunsBeforeReplay(t *testing.T) {
	dest := writeDest(t, map[string]string{"20260823-100000-full.sql": "full dump"})
	runner := &fakeRunner{}

	rec := newRecovery(runner)
	rec.PreReset = true

	_, err := rec.Run(context.Background(), dest)
	require.NoError(t, err)

	require.Len(t, runner.invocations, 2)
	reset := runner.invocations[0]
	assert.Equal(t, "mysql", reset.Name)
	found := false
	for _, a := range reset.Args {
		if strings.Contains(a, "RESET MASTER") {
			found = true
		}
	}
	assert.True(t, found, "reset statement must be issued before any replay")
}

func TestRecoveryMydumperFamilyUsesLoader(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "db1")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "20260823-100000-full"), 0o755))
	runner := &fakeRunner{}

	rec := &Recovery{Runner: runner, Tools: tool.DefaultToolset(tool.FamilyMydumper), Conn: testConn}
	result, err := rec.Run(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, "20260823-100000-full", result.Full)

	require.Len(t, runner.invocations, 1)
	assert.Equal(t, "myloader", runner.invocations[0].Name)
}
