// Package binlog models positions in the server's binary log: the Coordinate
// value type and its total order, the per-destination position record, and the
// live server's segment catalog.
package binlog

import (
	"strconv"
	"strings"

	"github.com/cadornel/binback/internal/errs"
)

// Coordinate identifies an exact position in the binary log stream: a segment
// name plus a byte offset within that segment. The offset is meaningless
// without its segment.
type Coordinate struct {
	Segment string
	Offset  uint64
}

// ParseCoordinate parses the "segment:offset" text form. Segment names are
// fixed-width zero-padded (e.g. binlog.000042) so lexicographic order equals
// creation order; the format is shared with the on-disk position record.
func ParseCoordinate(s string) (Coordinate, error) {
	fields := strings.Split(strings.TrimSpace(s), ":")
	if len(fields) != 2 {
		return Coordinate{}, errs.New(errs.Parse, "coordinate %q: want exactly two colon-delimited fields", s)
	}
	if fields[0] == "" {
		return Coordinate{}, errs.New(errs.Parse, "coordinate %q: empty segment name", s)
	}
	offset, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Coordinate{}, errs.Wrap(errs.Parse, err, "coordinate %q: bad offset", s)
	}
	return Coordinate{Segment: fields[0], Offset: offset}, nil
}

// String returns the "segment:offset" text form.
func (c Coordinate) String() string {
	return c.Segment + ":" + strconv.FormatUint(c.Offset, 10)
}

// IsZero reports whether c is the zero coordinate.
func (c Coordinate) IsZero() bool {
	return c.Segment == "" && c.Offset == 0
}

// Compare orders coordinates first by segment name, then by offset within the
// same segment. It returns -1, 0 or 1.
func (c Coordinate) Compare(o Coordinate) int {
	if n := strings.Compare(c.Segment, o.Segment); n != 0 {
		return n
	}
	switch {
	case c.Offset < o.Offset:
		return -1
	case c.Offset > o.Offset:
		return 1
	}
	return 0
}
