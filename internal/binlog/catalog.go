package binlog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/go-sql-driver/mysql"

	"github.com/cadornel/binback/internal/errs"
)

// Catalog is the live server's view of the binary log: the set of available
// segments and the current write tip. Both reads are point-in-time snapshots;
// a segment can roll over between them, which callers detect by checking the
// catalog's last segment against the tip.
type Catalog interface {
	// ServerVersion returns the server's version string, e.g. "8.0.36".
	ServerVersion(ctx context.Context) (string, error)

	// Segments returns all binary log segment names in ascending order.
	Segments(ctx context.Context) ([]string, error)

	// Tip returns the coordinate the server is currently writing at.
	Tip(ctx context.Context) (Coordinate, error)
}

// Server is a Catalog backed by a live MySQL connection. One Server is built
// per run and passed to every component that needs it; there is no process
// wide connection state.
type Server struct {
	db *sql.DB
}

// Connect opens a connection to the server and verifies it is reachable.
func Connect(ctx context.Context, dsn string) (*Server, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.Connection, err, "opening server connection")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Connection, err, "server unreachable")
	}
	return &Server{db: db}, nil
}

// Close releases the connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// ServerVersion implements Catalog.
func (s *Server) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := s.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", errs.Wrap(errs.Connection, err, "querying server version")
	}
	return version, nil
}

// Segments implements Catalog via SHOW BINARY LOGS. The statement's column
// count varies across server versions (an Encrypted column was added in 8.0),
// so only the leading Log_name column is read.
func (s *Server) Segments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SHOW BINARY LOGS")
	if err != nil {
		return nil, errs.Wrap(errs.Connection, err, "listing binary logs")
	}
	defer rows.Close()

	var segments []string
	for rows.Next() {
		name, err := scanFirstColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("listing binary logs: %w", err)
		}
		segments = append(segments, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Connection, err, "listing binary logs")
	}
	sort.Strings(segments)
	return segments, nil
}

// Tip implements Catalog. SHOW MASTER STATUS was removed in MySQL 8.4 in
// favor of SHOW BINARY LOG STATUS, so the new form is tried first.
func (s *Server) Tip(ctx context.Context) (Coordinate, error) {
	rows, err := s.db.QueryContext(ctx, "SHOW BINARY LOG STATUS")
	if err != nil {
		rows, err = s.db.QueryContext(ctx, "SHOW MASTER STATUS")
	}
	if err != nil {
		return Coordinate{}, errs.Wrap(errs.Connection, err, "querying write tip")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Coordinate{}, errs.Wrap(errs.Connection, err, "querying write tip")
		}
		return Coordinate{}, errs.New(errs.Connection, "binary logging is not enabled on the server")
	}
	segment, offset, err := scanTipRow(rows)
	if err != nil {
		return Coordinate{}, fmt.Errorf("querying write tip: %w", err)
	}
	return Coordinate{Segment: segment, Offset: offset}, nil
}

// scanFirstColumn reads the first column of the current row as a string,
// discarding the rest regardless of how many columns the server returned.
func scanFirstColumn(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	dest := make([]any, len(cols))
	var first string
	dest[0] = &first
	for i := 1; i < len(dest); i++ {
		dest[i] = new(sql.RawBytes)
	}
	if err := rows.Scan(dest...); err != nil {
		return "", err
	}
	return first, nil
}

// scanTipRow reads the leading File and Position columns of a status row.
func scanTipRow(rows *sql.Rows) (string, uint64, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", 0, err
	}
	if len(cols) < 2 {
		return "", 0, fmt.Errorf("status row has %d columns, want at least 2", len(cols))
	}
	dest := make([]any, len(cols))
	var file string
	var pos uint64
	dest[0] = &file
	dest[1] = &pos
	for i := 2; i < len(dest); i++ {
		dest[i] = new(sql.RawBytes)
	}
	if err := rows.Scan(dest...); err != nil {
		return "", 0, err
	}
	return file, pos, nil
}
