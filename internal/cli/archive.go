package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Archive destinations nest one backup lineage per day under the base
// directory: <base>/<20060102>/. A full backup creates today's subdirectory;
// incremental and recover runs operate on the most recent one.
const archiveLayout = "20060102"

// archiveDestination returns today's date-stamped subdirectory of base.
func archiveDestination(base string, now time.Time) string {
	return filepath.Join(base, now.UTC().Format(archiveLayout))
}

// latestArchive finds the most recent date-stamped subdirectory of base.
func latestArchive(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("scanning archive base: %w", err)
	}
	var latest string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(archiveLayout, e.Name()); err != nil {
			continue
		}
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no date-stamped archive directory under %s", base)
	}
	return filepath.Join(base, latest), nil
}
