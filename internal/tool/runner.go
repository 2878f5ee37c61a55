// Package tool wraps the external tool families the orchestrators drive:
// mysqldump/mysqlbinlog/mysql (the default snapshot and log-export family) and
// mydumper/myloader (the whole-instance dump/load alternative).
//
// All subprocess execution goes through the Runner interface so orchestrator
// tests can substitute a fake; production code uses ExecRunner.
package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Invocation describes one external tool call. Stdin and Stdout are optional
// redirections; stderr is always captured for error reporting.
type Invocation struct {
	Name   string
	Args   []string
	Env    []string // extra environment, KEY=value form
	Stdin  io.Reader
	Stdout io.Writer
}

// String renders the invocation for logs and audit entries.
func (inv Invocation) String() string {
	if len(inv.Args) == 0 {
		return inv.Name
	}
	return inv.Name + " " + strings.Join(inv.Args, " ")
}

// Runner executes external tool invocations, blocking until the subprocess
// exits.
type Runner interface {
	// Run executes the invocation and returns an error on nonzero exit.
	Run(ctx context.Context, inv Invocation) error

	// Output executes the tool and returns its combined standard output.
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Stdin = inv.Stdin
	cmd.Stdout = inv.Stdout
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", inv.Name, err, lastLine(msg))
		}
		return fmt.Errorf("%s: %w", inv.Name, err)
	}
	return nil
}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// lastLine keeps error messages single-line: tools like mysqldump print
// warnings before the fatal line, and the fatal line comes last.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
