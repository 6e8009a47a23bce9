// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command archgraph audits the architecture of a Python code base.
//
// It builds a module import graph, computes fan-in, fan-out, dependency
// depth and git churn, traces the impact of a symbol or a patch, and
// enforces cycle, layering, and forbidden-dependency rules.
//
// Usage:
//
//	archgraph analyze [root]
//	archgraph validate [roots...]
//	archgraph impact SYMBOL --root DIR --depth 3
//	archgraph impact --patch change.diff
//	archgraph metrics QUERY
//	archgraph scan [root] --depth 4
//	archgraph serve --addr :12218
//	archgraph watch [root]
//
// Exit codes: 0 success, 1 policy violations or no match, 2 error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitViolations = 1
	ExitError      = 2
)

var (
	// errViolations signals a failed validation; the report is already printed.
	errViolations = errors.New("architecture policy violated")

	// errNotFound signals a query without a match.
	errNotFound = errors.New("no module or symbol matches")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.close()

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errViolations):
		return ExitViolations
	case errors.Is(err, errNotFound):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitViolations
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}
