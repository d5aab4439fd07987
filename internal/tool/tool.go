// Package tool runs the external build tools as child processes.
package tool

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const redacted = "****"

// Invocation is one command line.
type Invocation struct {
	Tool string
	Args []string
	Dir  string
	Env  map[string]string
	// Secrets are masked wherever the invocation or its output is logged.
	Secrets []string
	// Label names the item in aggregated results, e.g. the package pushed.
	Label string
}

func (inv Invocation) name() string {
	if inv.Label != "" {
		return inv.Label
	}
	return inv.Tool
}

// String renders the command line with secrets masked.
func (inv Invocation) String() string {
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, inv.Tool)
	for _, arg := range inv.Args {
		if arg == "" || strings.ContainsAny(arg, " \t;") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return inv.Redact(strings.Join(parts, " "))
}

func (inv Invocation) Redact(s string) string {
	for _, secret := range inv.Secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, redacted)
	}
	return s
}

func (inv Invocation) environ(base []string) []string {
	env := slices.Clone(base)
	for _, k := range slices.Sorted(maps.Keys(inv.Env)) {
		env = append(env, k+"="+inv.Env[k])
	}
	return env
}

type Output struct {
	Stdout   string
	Stderr   string
	Combined string
}

type Executor interface {
	Execute(ctx context.Context, inv Invocation) (*Output, error)
}

// ExitError reports a tool that ran and exited non-zero.
type ExitError struct {
	Tool   string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}

func (e *ExitError) ExitCode() int {
	return e.Code
}

// StartError reports a tool that could not be started at all.
type StartError struct {
	Tool string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("could not start %s: %v", e.Tool, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// properties renders MSBuild style -p:Key=Value switches in key order.
func properties(props map[string]string) []string {
	out := make([]string, 0, len(props))
	for _, k := range slices.Sorted(maps.Keys(props)) {
		out = append(out, fmt.Sprintf("-p:%s=%s", k, props[k]))
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
