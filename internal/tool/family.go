package tool

import (
	"fmt"
	"io"
	"strconv"
)

// Family selects which external tool family produces and loads snapshots.
type Family string

const (
	// FamilyDump is the default: mysqldump snapshots, replayed with the
	// mysql client.
	FamilyDump Family = "dump"

	// FamilyMydumper dumps the whole instance with mydumper into a
	// directory artifact and loads it back with myloader.
	FamilyMydumper Family = "mydumper"
)

// ParseFamily validates a family name from the CLI or config.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyDump, FamilyMydumper:
		return Family(s), nil
	}
	return "", fmt.Errorf("unknown tool family %q (want %q or %q)", s, FamilyDump, FamilyMydumper)
}

// Conn carries the connection parameters passed to every tool invocation.
// The password travels via the MYSQL_PWD environment variable, never argv.
type Conn struct {
	Host     string
	Port     int
	User     string
	Password string
}

func (c Conn) args() []string {
	args := []string{"--host=" + c.Host, "--port=" + strconv.Itoa(c.Port), "--user=" + c.User}
	return args
}

func (c Conn) env() []string {
	if c.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + c.Password}
}

// Toolset holds the binary paths of one tool family. Zero-value fields fall
// back to the family defaults via DefaultToolset.
type Toolset struct {
	Family   Family
	Snapshot string // mysqldump or mydumper
	Binlog   string // mysqlbinlog
	Client   string // mysql
	Loader   string // mysql or myloader
}

// DefaultToolset returns the standard binary names for a family, relying on
// PATH lookup.
func DefaultToolset(family Family) Toolset {
	t := Toolset{
		Family: family,
		Binlog: "mysqlbinlog",
		Client: "mysql",
	}
	switch family {
	case FamilyMydumper:
		t.Snapshot = "mydumper"
		t.Loader = "myloader"
	default:
		t.Snapshot = "mysqldump"
		t.Loader = "mysql"
	}
	return t
}

// SnapshotInvocation builds the full-snapshot export. artifact is a file path
// for the dump family and a directory path for mydumper. extra args are
// appended verbatim so operators can pass options like --set-gtid-purged=OFF
// through.
func (t Toolset) SnapshotInvocation(conn Conn, artifact string, extra []string) Invocation {
	var args []string
	switch t.Family {
	case FamilyMydumper:
		args = append(conn.args(), "--outputdir="+artifact)
	default:
		args = append(conn.args(),
			"--all-databases",
			"--single-transaction",
			"--flush-logs",
			"--master-data=2",
			"--result-file="+artifact,
		)
	}
	args = append(args, extra...)
	return Invocation{Name: t.Snapshot, Args: args, Env: conn.env()}
}

// SnapshotVersionArgs returns the snapshot tool and the argument that makes it
// print its version.
func (t Toolset) SnapshotVersionArgs() (string, []string) {
	return t.Snapshot, []string{"--version"}
}

// BinlogExportInvocation builds the export of one log segment into artifact.
// start and stop are byte offsets; nil means the segment's natural boundary.
// The segment is read from the live server and written as SQL text, so replay
// needs only the plain client.
func (t Toolset) BinlogExportInvocation(conn Conn, segment string, start, stop *uint64, out io.Writer) Invocation {
	args := append(conn.args(), "--read-from-remote-server")
	if start != nil {
		args = append(args, "--start-position="+strconv.FormatUint(*start, 10))
	}
	if stop != nil {
		args = append(args, "--stop-position="+strconv.FormatUint(*stop, 10))
	}
	args = append(args, segment)
	return Invocation{Name: t.Binlog, Args: args, Env: conn.env(), Stdout: out}
}

// LoadSnapshotInvocation builds the replay of a full artifact. stdin is the
// artifact file for the dump family and ignored by mydumper, which reads its
// directory artifact directly.
func (t Toolset) LoadSnapshotInvocation(conn Conn, artifact string, stdin io.Reader) Invocation {
	switch t.Family {
	case FamilyMydumper:
		args := append(conn.args(), "--directory="+artifact, "--overwrite-tables")
		return Invocation{Name: t.Loader, Args: args, Env: conn.env()}
	default:
		return Invocation{Name: t.Loader, Args: conn.args(), Env: conn.env(), Stdin: stdin}
	}
}

// ClientInvocation builds a plain client call executing one SQL statement.
func (t Toolset) ClientInvocation(conn Conn, statement string) Invocation {
	args := append(conn.args(), "--execute="+statement)
	return Invocation{Name: t.Client, Args: args, Env: conn.env()}
}

// ReplayInvocation builds the replay of one incremental artifact through the
// plain client, reading the artifact from stdin.
func (t Toolset) ReplayInvocation(conn Conn, stdin io.Reader) Invocation {
	return Invocation{Name: t.Client, Args: conn.args(), Env: conn.env(), Stdin: stdin}
}
