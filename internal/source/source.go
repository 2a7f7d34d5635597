// Package source owns loaded source buffers and maps byte offsets to
// (file, line, column) locations, per spec §3 SourceMap.
package source

import (
	"fmt"
	"strings"
)

// Span is a half-open byte range within a single source file.
//
// Invariant: Start <= End, and both indices reference valid byte offsets
// into the same SourceID's buffer.
type Span struct {
	Start    uint32
	End      uint32
	SourceID uint32
}

// Join returns the smallest span covering both a and b. Both must share a
// SourceID; the caller's responsibility, not checked here, since spans are
// only ever joined within one compilation unit's own AST.
func Join(a, b Span) Span {
	s := Span{SourceID: a.SourceID}
	if a.Start < b.Start {
		s.Start = a.Start
	} else {
		s.Start = b.Start
	}
	if a.End > b.End {
		s.End = a.End
	} else {
		s.End = b.End
	}
	return s
}

// file is one loaded source buffer plus a precomputed line-start index.
type file struct {
	name       string
	text       string
	lineStarts []uint32
}

// Map owns every loaded source buffer for one compilation and resolves
// Spans to printable (file, line, column) locations and snippets.
type Map struct {
	files []*file
}

// NewMap constructs an empty SourceMap.
func NewMap() *Map {
	return &Map{}
}

// AddFile registers a source buffer and returns its SourceID.
func (m *Map) AddFile(name, text string) uint32 {
	f := &file{name: name, text: text, lineStarts: computeLineStarts(text)}
	m.files = append(m.files, f)
	return uint32(len(m.files) - 1)
}

func computeLineStarts(text string) []uint32 {
	starts := []uint32{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return starts
}

// FileName returns the registered name for a SourceID.
func (m *Map) FileName(id uint32) string {
	if int(id) >= len(m.files) {
		return "<unknown>"
	}
	return m.files[id].name
}

// Text returns the full buffer for a SourceID.
func (m *Map) Text(id uint32) string {
	if int(id) >= len(m.files) {
		return ""
	}
	return m.files[id].text
}

// Location is a resolved (file, line, column) position, 1-based.
type Location struct {
	File   string
	Line   int
	Column int
}

// Locate resolves the start of span to a file/line/column.
func (m *Map) Locate(sp Span) Location {
	if int(sp.SourceID) >= len(m.files) {
		return Location{File: "<unknown>"}
	}
	f := m.files[sp.SourceID]
	line := lineForOffset(f.lineStarts, sp.Start)
	col := int(sp.Start-f.lineStarts[line]) + 1
	return Location{File: f.name, Line: line + 1, Column: col}
}

func lineForOffset(starts []uint32, offset uint32) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Snippet returns the full source line containing span's start, and the
// 0-based column range within that line to underline.
func (m *Map) Snippet(sp Span) (line string, underlineStart, underlineEnd int) {
	if int(sp.SourceID) >= len(m.files) {
		return "", 0, 0
	}
	f := m.files[sp.SourceID]
	lineIdx := lineForOffset(f.lineStarts, sp.Start)
	lineStart := f.lineStarts[lineIdx]
	lineEnd := uint32(len(f.text))
	if lineIdx+1 < len(f.lineStarts) {
		lineEnd = f.lineStarts[lineIdx+1] - 1
	}
	if lineEnd > uint32(len(f.text)) {
		lineEnd = uint32(len(f.text))
	}
	lineText := strings.TrimRight(f.text[lineStart:lineEnd], "\r\n")

	us := int(sp.Start - lineStart)
	ue := us + 1
	if sp.End > sp.Start {
		endInLine := int(sp.End - lineStart)
		if endInLine <= len(lineText) {
			ue = endInLine
		} else {
			ue = len(lineText)
		}
	}
	return lineText, us, ue
}

// String renders a span as "file:line:col", resolving against m.
func (m *Map) String(sp Span) string {
	loc := m.Locate(sp)
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}
