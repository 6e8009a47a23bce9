// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "fmt"

// FileError records a recoverable per-file failure. The affected module is
// still present in the graph, with empty symbol and import data.
type FileError struct {
	// FilePath is the root-relative path of the file.
	FilePath string

	// Err is the underlying read, parse, or insert error.
	Err error
}

// Error implements error.
func (e FileError) Error() string {
	return fmt.Sprintf("file %s: %v", e.FilePath, e.Err)
}

// Unwrap returns the underlying error.
func (e FileError) Unwrap() error {
	return e.Err
}

// BuildStats summarizes one build.
type BuildStats struct {
	FilesScanned   int   `json:"files_scanned"`
	FilesFailed    int   `json:"files_failed"`
	ModulesCreated int   `json:"modules_created"`
	DirsSkipped    int   `json:"dirs_skipped"`
	DurationMilli  int64 `json:"duration_ms"`
}

// BuildResult is the outcome of Builder.Build.
type BuildResult struct {
	// Graph is frozen and ready for metrics and queries.
	Graph *Graph

	// FileErrors lists recoverable per-file failures in traversal order.
	FileErrors []FileError

	// Stats summarizes the build.
	Stats BuildStats
}

// HasErrors reports whether any file degraded.
func (r *BuildResult) HasErrors() bool {
	return len(r.FileErrors) > 0
}
