// Package backup implements the two backup orchestrators and their shared
// pieces: artifact naming and discovery, the snapshot coordinate extractor,
// and the audit log.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cadornel/binback/internal/binlog"
	"github.com/cadornel/binback/internal/tool"
)

// Artifact naming contract: a creation timestamp prefix, a fixed kind suffix,
// and the storage format extension. Sorting filenames lexicographically yields
// chronological order; incremental names additionally embed the covered
// segment, which keeps same-second exports in catalog order.
const (
	TimestampLayout   = "20060102-150405"
	fullSuffix        = "-full"
	incrementalSuffix = "-incremental"
	sqlExt            = ".sql"
)

// Kind classifies an artifact found in a destination.
type Kind int

const (
	KindFull Kind = iota
	KindIncremental
)

// Artifact is one backup file (or directory, for mydumper full dumps) inside
// a destination.
type Artifact struct {
	Path string
	Name string
	Kind Kind
}

// FullArtifactName returns the name of a full artifact created at ts. The
// dump family produces a single SQL file; mydumper produces a directory.
func FullArtifactName(ts time.Time, family tool.Family) string {
	name := ts.UTC().Format(TimestampLayout) + fullSuffix
	if family == tool.FamilyMydumper {
		return name
	}
	return name + sqlExt
}

// IncrementalArtifactName returns the name of the incremental artifact
// covering segment, created at ts.
func IncrementalArtifactName(ts time.Time, segment string) string {
	return ts.UTC().Format(TimestampLayout) + "-" + segment + incrementalSuffix + sqlExt
}

// ListArtifacts scans a destination and returns its full and incremental
// artifacts, each slice sorted ascending by name.
func ListArtifacts(dir string) (fulls, incrementals []Artifact, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning destination: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		a := Artifact{Path: filepath.Join(dir, name), Name: name}
		switch {
		case strings.HasSuffix(name, fullSuffix+sqlExt), e.IsDir() && strings.HasSuffix(name, fullSuffix):
			a.Kind = KindFull
			fulls = append(fulls, a)
		case strings.HasSuffix(name, incrementalSuffix+sqlExt):
			a.Kind = KindIncremental
			incrementals = append(incrementals, a)
		}
	}
	sort.Slice(fulls, func(i, j int) bool { return fulls[i].Name < fulls[j].Name })
	sort.Slice(incrementals, func(i, j int) bool { return incrementals[i].Name < incrementals[j].Name })
	return fulls, incrementals, nil
}

// Purge removes every entry of a destination directory, creating the
// directory if it does not exist. A full backup always starts a destination
// fresh, which is what keeps the one-full-artifact invariant.
func Purge(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("purging destination: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("purging destination: %w", err)
		}
	}
	return nil
}

// coordinatesEqual is a readability helper for the nothing-new check.
func coordinatesEqual(a, b binlog.Coordinate) bool {
	return a.Compare(b) == 0
}
