package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMajorVersion(t *testing.T) {
	major, err := MajorVersion("8.0.36")
	require.NoError(t, err)
	assert.Equal(t, 8, major)

	major, err = MajorVersion("5.7.30-log")
	require.NoError(t, err)
	assert.Equal(t, 5, major)

	_, err = MajorVersion("not-a-version")
	assert.Error(t, err)
}

func TestVersionMatches(t *testing.T) {
	cases := []struct {
		server string
		banner string
		want   bool
	}{
		{"8.0.36", "mysqldump  Ver 8.0.36 for Linux on x86_64 (MySQL Community Server - GPL)", true},
		{"5.7.30-log", "mysqldump  Ver 10.13 Distrib 5.7.30, for Linux (x86_64)", true},
		{"8.0.36", "mysqldump  Ver 8.0.35 for Linux on x86_64", false},
		// A major-only match is not enough.
		{"8.0.36", "mysqldump  Ver 8 for Linux", false},
		{"", "mysqldump  Ver 8.0.36", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, VersionMatches(tc.server, tc.banner), "server=%q banner=%q", tc.server, tc.banner)
	}
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("dump")
	require.NoError(t, err)
	assert.Equal(t, FamilyDump, f)

	f, err = ParseFamily("mydumper")
	require.NoError(t, err)
	assert.Equal(t, FamilyMydumper, f)

	_, err = ParseFamily("tar")
	assert.Error(t, err)
}
