package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

func TestAuditAppendsTimestampedEntries(t *testing.T) {
	dir := t.TempDir()
	a := NewAudit(dir, "run-1", fixedClock(testTime))

	a.Log("full backup start: artifact %s", "20260823-101501-full.sql")
	a.Log("full backup complete: coordinate %s", "binlog.000042:1571")

	data, err := os.ReadFile(filepath.Join(dir, AuditFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "2026-08-23T10:15:01Z [run-1] full backup start: artifact 20260823-101501-full.sql", lines[0])
	assert.Contains(t, lines[1], "binlog.000042:1571")
}

func TestAuditSurvivesUnwritableDirectory(t *testing.T) {
	a := NewAudit(filepath.Join(t.TempDir(), "missing", "nested"), "run-1", fixedClock(testTime))
	// Must not panic or fail the run.
	a.Log("entry")
}

func TestUUIDv7GeneratorIssuesOrderedTokens(t *testing.T) {
	gen := UUIDv7Generator{}
	a := gen.NewRunToken()
	b := gen.NewRunToken()

	require.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
	// V7 tokens are time-ordered, which keeps ledger rows sorted by token.
	assert.Less(t, a, b)
}
