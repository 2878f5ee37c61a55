package binlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cadornel/binback/internal/errs"
)

// PositionFile is the name of the position record inside a destination.
const PositionFile = "position"

// ErrNoPosition reports that a destination has no position record yet, i.e.
// no full backup has completed there.
var ErrNoPosition = errors.New("binlog: no position record")

// PositionStore owns the single position record of one backup destination: the
// coordinate the last successful backup reached. Only the latest coordinate is
// kept; every save is a full replace.
//
// The store is not cached across runs. Each run constructs a fresh store, and
// each Load re-reads the file, since concurrent runs of the tool share the
// destination directory.
type PositionStore struct {
	dir string
}

// NewPositionStore returns a store for the given destination directory.
func NewPositionStore(dir string) *PositionStore {
	return &PositionStore{dir: dir}
}

// Path returns the position record's file path.
func (s *PositionStore) Path() string {
	return filepath.Join(s.dir, PositionFile)
}

// Load reads and parses the stored coordinate. It returns ErrNoPosition when
// the record does not exist and a Parse error when the record violates the
// single-line "segment:offset" contract.
func (s *PositionStore) Load() (Coordinate, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Coordinate{}, ErrNoPosition
		}
		return Coordinate{}, fmt.Errorf("reading position record: %w", err)
	}
	c, err := ParseCoordinate(string(data))
	if err != nil {
		return Coordinate{}, errs.Wrap(errs.Parse, err, "position record %s", s.Path())
	}
	return c, nil
}

// Save replaces the stored coordinate. The record is written to a temp file in
// the same directory and renamed over the old one, so readers never observe a
// partial record.
func (s *PositionStore) Save(c Coordinate) error {
	tmp, err := os.CreateTemp(s.dir, PositionFile+".tmp*")
	if err != nil {
		return fmt.Errorf("writing position record: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(c.String() + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing position record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing position record: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("replacing position record: %w", err)
	}
	return nil
}
