// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the archgraph CLI.
//
// A Printer colors its output only when writing to a terminal and NO_COLOR
// is unset; redirected output is plain text.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette - deep ocean teals.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	bold     lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	error    lipgloss.Style
	box      lipgloss.Style
}

func colorStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(ColorTealBright),
		subtitle: r.NewStyle().Foreground(ColorTealPrimary),
		bold:     r.NewStyle().Bold(true),
		muted:    r.NewStyle().Foreground(ColorSlate),
		success:  r.NewStyle().Foreground(ColorSuccess),
		warning:  r.NewStyle().Foreground(ColorWarning),
		error:    r.NewStyle().Foreground(ColorError),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorTealDeep).
			Padding(0, 1),
	}
}

func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{title: s, subtitle: s, bold: s, muted: s, success: s, warning: s, error: s, box: s}
}

// Printer writes styled CLI output.
type Printer struct {
	w      io.Writer
	color  bool
	styles styles
}

// NewPrinter creates a Printer that colors output when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	if IsTerminal(w) && os.Getenv("NO_COLOR") == "" {
		return &Printer{w: w, color: true, styles: colorStyles(lipgloss.NewRenderer(w))}
	}
	return NewPlainPrinter(w)
}

// NewPlainPrinter creates a Printer that never styles.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: plainStyles()}
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Colored reports whether the printer styles its output.
func (p *Printer) Colored() bool { return p.color }

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.w }

// Title prints a bold heading.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.w, p.styles.title.Render(text))
}

// Subtitle prints a secondary heading.
func (p *Printer) Subtitle(text string) {
	fmt.Fprintln(p.w, p.styles.subtitle.Render(text))
}

// Line prints a formatted line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Success prints text prefixed with a check mark.
func (p *Printer) Success(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Icon(IconSuccess), text)
}

// Warning prints text prefixed with a warning sign.
func (p *Printer) Warning(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Icon(IconWarning), p.styles.warning.Render(text))
}

// Error prints text prefixed with a cross.
func (p *Printer) Error(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Icon(IconError), p.styles.error.Render(text))
}

// Muted prints de-emphasized text.
func (p *Printer) Muted(text string) {
	fmt.Fprintln(p.w, p.styles.muted.Render(text))
}

// Bullet prints an indented bullet item.
func (p *Printer) Bullet(text string) {
	fmt.Fprintf(p.w, "  %s %s\n", IconBullet, text)
}

// KeyValue prints "key: value" rows with keys padded to the longest key.
func (p *Printer) KeyValue(rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		key := r[0] + ":" + strings.Repeat(" ", width-len(r[0]))
		fmt.Fprintf(p.w, "  %s %s\n", p.styles.bold.Render(key), r[1])
	}
}

// Box prints content inside a rounded border when colored, or under a
// title line otherwise.
func (p *Printer) Box(title, content string) {
	if !p.color {
		fmt.Fprintf(p.w, "%s\n%s\n", title, content)
		return
	}
	fmt.Fprintln(p.w, p.styles.box.Render(p.styles.bold.Render(title)+"\n"+content))
}

// Icon renders a status icon.
func (p *Printer) Icon(i Icon) string {
	switch i {
	case IconSuccess:
		return p.styles.success.Render(string(i))
	case IconWarning:
		return p.styles.warning.Render(string(i))
	case IconError:
		return p.styles.error.Render(string(i))
	default:
		return string(i)
	}
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
