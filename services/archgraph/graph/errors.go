// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the module-level architecture graph.
//
// A Graph holds one Module per analyzed source file. Import edges are not
// stored: they are derived on demand from each module's resolved import
// strings, so the import list is the single source of truth for fan-in,
// fan-out, dependency depth, rule validation, and summaries.
//
// # Ownership Model
//
// The caller that invokes Builder.Build owns the returned Graph. There is no
// process-wide graph or cache; every analysis builds a fresh instance and
// discards it afterwards.
//
// # Thread Safety
//
// A Graph is written by a single goroutine while building. After Freeze it is
// read-only apart from the one-time metrics computation, which is guarded.
// Independent Graph values share no state and may be built concurrently.
//
// # Lifecycle
//
//  1. NewGraph(root)
//  2. AddModule for each source file
//  3. Freeze
//  4. ComputeMetrics, then queries (Edges, Summarize, FindSymbolMetrics, ...)
package graph

import "errors"

var (
	// ErrRootNotFound is returned by Build when the root path does not exist.
	ErrRootNotFound = errors.New("project root not found")

	// ErrRootNotDirectory is returned by Build when the root is a file.
	ErrRootNotDirectory = errors.New("project root is not a directory")

	// ErrRootUnreadable is returned by Build when the root cannot be listed.
	ErrRootUnreadable = errors.New("project root is unreadable")

	// ErrGraphFrozen is returned by AddModule after Freeze.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrGraphNotFrozen is returned by operations that need the full node set.
	ErrGraphNotFrozen = errors.New("graph is not frozen")

	// ErrDuplicateModule is returned by AddModule when the id already exists.
	ErrDuplicateModule = errors.New("duplicate module id")

	// ErrInvalidModule is returned by AddModule for a nil module or empty id.
	ErrInvalidModule = errors.New("invalid module")
)
