package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(NotReady, "no position record in %s", "/backups/db1")
	assert.Equal(t, "NOT_READY: no position record in /backups/db1", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fs.ErrNotExist
	err := Wrap(Parse, cause, "reading position record")

	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "PARSE")
	assert.Contains(t, err.Error(), "reading position record")
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := New(Consistency, "catalog tail seg007 != tip seg008")
	outer := fmt.Errorf("incremental run: %w", inner)

	assert.True(t, Is(outer, Consistency))
	assert.False(t, Is(outer, Restore))
	assert.Equal(t, Consistency, KindOf(outer))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, Is(errors.New("plain"), Connection))
	assert.False(t, Is(nil, Connection))
}
