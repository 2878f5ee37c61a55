package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// AuditFile is the append-only audit log inside a destination. It is written
// for operators, never parsed by the tool itself.
const AuditFile = "backup.log"

// RunTokenGenerator produces the token identifying one run in audit entries
// and the history ledger. Tests inject a fixed generator.
type RunTokenGenerator interface {
	NewRunToken() string
}

// UUIDv7Generator issues time-ordered UUIDv7 run tokens.
type UUIDv7Generator struct{}

func (UUIDv7Generator) NewRunToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the entropy source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}

// Audit appends timestamped entries to a destination's audit log. Failures to
// write are logged and swallowed: the audit log is observational and never
// fails a run.
type Audit struct {
	dir   string
	token string
	now   func() time.Time
}

// NewAudit returns an audit writer for one run.
func NewAudit(dir, runToken string, now func() time.Time) *Audit {
	if now == nil {
		now = time.Now
	}
	return &Audit{dir: dir, token: runToken, now: now}
}

// Log appends one formatted entry.
func (a *Audit) Log(format string, args ...any) {
	line := fmt.Sprintf("%s [%s] %s\n",
		a.now().UTC().Format(time.RFC3339), a.token, fmt.Sprintf(format, args...))

	f, err := os.OpenFile(filepath.Join(a.dir, AuditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("audit log unavailable", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		slog.Warn("audit log write failed", "error", err)
	}
}
