package backup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/cadornel/binback/internal/binlog"
	"github.com/cadornel/binback/internal/errs"
	"github.com/cadornel/binback/internal/tool"
)

// DefaultScanLimit bounds the header scan for the replication coordinate.
// Snapshot files can be arbitrarily large and the marker always sits in the
// structural header near the top, so a scan past this many lines means the
// marker is absent (or the file is corrupt), not further down.
const DefaultScanLimit = 300

// Marker syntaxes. The server changed the statement's spelling in 8.0.23;
// mydumper writes a split Log:/Pos: pair in its metadata file instead.
var (
	changeMasterRe = regexp.MustCompile(`CHANGE MASTER TO MASTER_LOG_FILE='([^']+)',\s*MASTER_LOG_POS=(\d+)`)
	changeSourceRe = regexp.MustCompile(`CHANGE REPLICATION SOURCE TO SOURCE_LOG_FILE='([^']+)',\s*SOURCE_LOG_POS=(\d+)`)
	metadataLogRe  = regexp.MustCompile(`^\s*Log:\s*(\S+)\s*$`)
	metadataPosRe  = regexp.MustCompile(`^\s*Pos:\s*(\d+)\s*$`)
)

// Extractor scans a freshly produced snapshot artifact for the log coordinate
// recorded at snapshot time.
type Extractor struct {
	// ScanLimit caps the number of lines read; zero means DefaultScanLimit.
	ScanLimit int
}

// FromArtifact extracts the coordinate from a full artifact. For the mydumper
// family the coordinate lives in the metadata file inside the dump directory.
func (e Extractor) FromArtifact(path string, family tool.Family) (binlog.Coordinate, error) {
	if family == tool.FamilyMydumper {
		path = filepath.Join(path, "metadata")
	}
	f, err := os.Open(path)
	if err != nil {
		return binlog.Coordinate{}, fmt.Errorf("opening snapshot artifact: %w", err)
	}
	defer f.Close()
	return e.FromReader(f)
}

// FromReader streams lines from r until a complete coordinate marker is found
// or the scan limit is hit. The first complete match wins and scanning stops
// immediately.
func (e Extractor) FromReader(r io.Reader) (binlog.Coordinate, error) {
	limit := e.ScanLimit
	if limit <= 0 {
		limit = DefaultScanLimit
	}

	var partial binlog.Coordinate
	var haveSegment, haveOffset bool

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for lines := 0; scanner.Scan(); {
		lines++
		if lines > limit {
			break
		}
		line := scanner.Text()

		for _, re := range []*regexp.Regexp{changeMasterRe, changeSourceRe} {
			if m := re.FindStringSubmatch(line); m != nil {
				offset, err := strconv.ParseUint(m[2], 10, 64)
				if err != nil {
					return binlog.Coordinate{}, errs.Wrap(errs.Parse, err, "coordinate marker offset")
				}
				return binlog.Coordinate{Segment: m[1], Offset: offset}, nil
			}
		}

		// The split pair may arrive in either order across lines.
		if m := metadataLogRe.FindStringSubmatch(line); m != nil {
			partial.Segment = m[1]
			haveSegment = true
		} else if m := metadataPosRe.FindStringSubmatch(line); m != nil {
			offset, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				return binlog.Coordinate{}, errs.Wrap(errs.Parse, err, "coordinate marker offset")
			}
			partial.Offset = offset
			haveOffset = true
		}
		if haveSegment && haveOffset {
			return partial, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return binlog.Coordinate{}, fmt.Errorf("scanning snapshot artifact: %w", err)
	}
	return binlog.Coordinate{}, errs.New(errs.CoordinateNotFound,
		"no replication coordinate marker in the first %d lines", limit)
}
