// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"errors"
	"fmt"
)

// Sentinel errors for parse failure categories. Check with errors.Is.
var (
	// ErrUnsupportedLanguage indicates no parser is registered for a file extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailed indicates the source could not be parsed into a usable
	// tree. Python sources containing syntax errors return this so that the
	// caller treats the file as unanalyzable rather than trusting a partial tree.
	ErrParseFailed = errors.New("parse failed")

	// ErrInvalidContent indicates non UTF-8 or otherwise unusable bytes.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge indicates content above the parser's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrContextCanceled indicates parsing was canceled via context.
	ErrContextCanceled = errors.New("parse canceled")
)

// ParseError carries the location of a parse failure.
//
// Example:
//
//	var perr *ParseError
//	if errors.As(err, &perr) {
//	    log.Warn("syntax error", "path", perr.FilePath, "line", perr.Line)
//	}
type ParseError struct {
	// FilePath is the path passed to Parse.
	FilePath string

	// Line is 1-indexed; 0 when unknown.
	Line int

	// Column is 1-indexed; 0 when unknown.
	Column int

	// Message describes the failure.
	Message string

	// Cause is the sentinel category, usually ErrParseFailed.
	Cause error
}

// Error formats as "path:line:col: message", omitting unknown positions.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
