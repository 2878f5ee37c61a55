package tool

import (
	"fmt"
	"strconv"
	"strings"
)

// MajorVersion extracts the leading major version from a server version
// string such as "8.0.36" or "5.7.30-log".
func MajorVersion(version string) (int, error) {
	head, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("server version %q: no leading major number", version)
	}
	return major, nil
}

// BareVersion strips build suffixes from a server version string:
// "5.7.30-log" becomes "5.7.30". Tool version banners carry the bare number.
func BareVersion(version string) string {
	bare, _, _ := strings.Cut(version, "-")
	return bare
}

// VersionMatches reports whether a tool's --version banner carries exactly the
// server's version number. Snapshot format compatibility depends on the two
// matching, so containment of the full bare version is required, not just the
// major.
//
// Banner shapes differ across families:
//
//	mysqldump  Ver 8.0.36 for Linux on x86_64 (MySQL Community Server - GPL)
//	mysqldump  Ver 10.13 Distrib 5.7.30, for Linux (x86_64)
func VersionMatches(serverVersion, banner string) bool {
	bare := BareVersion(serverVersion)
	if bare == "" {
		return false
	}
	for _, token := range strings.FieldsFunc(banner, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	}) {
		if token == bare {
			return true
		}
	}
	return false
}
