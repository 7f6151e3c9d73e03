package festoon

import (
	"sort"
	"strings"
)

// PositionIndex is the boundary to the text engine: it maps 1-based
// line/column positions to absolute byte offsets and back, and owns the
// line lengths used for clamping. Documents opened from literal data use
// the built-in LineIndex; documents tracking an external text engine
// provide their own implementation.
type PositionIndex interface {
	// LineCount returns the number of lines. An empty document has one line.
	LineCount() int

	// LineLength returns the length in bytes of the given 1-based line,
	// excluding its trailing newline. The maximum valid column on the line
	// is LineLength(line) + 1.
	LineLength(line int) int

	// OffsetAt converts a valid 1-based position to an absolute byte offset.
	OffsetAt(line, column int) int

	// PositionAt converts an absolute byte offset to a 1-based position.
	// The offset is clamped into [0, document length].
	PositionAt(offset int) Position
}

// LineIndex is a line-start offset table over an in-memory string.
// It implements PositionIndex and supports in-place replacement edits.
type LineIndex struct {
	text       string
	lineStarts []int // byte offset where each line begins; lineStarts[0] == 0
}

// NewLineIndex builds a LineIndex over the given text.
func NewLineIndex(text string) *LineIndex {
	ix := &LineIndex{text: text}
	ix.rebuild()
	return ix
}

// rebuild recomputes the line-start table from the current text.
func (ix *LineIndex) rebuild() {
	ix.lineStarts = ix.lineStarts[:0]
	ix.lineStarts = append(ix.lineStarts, 0)
	for i := 0; i < len(ix.text); i++ {
		if ix.text[i] == '\n' {
			ix.lineStarts = append(ix.lineStarts, i+1)
		}
	}
}

// Text returns the current content.
func (ix *LineIndex) Text() string {
	return ix.text
}

// Length returns the content length in bytes.
func (ix *LineIndex) Length() int {
	return len(ix.text)
}

// LineCount returns the number of lines.
func (ix *LineIndex) LineCount() int {
	return len(ix.lineStarts)
}

// LineLength returns the length of a 1-based line, excluding its newline.
func (ix *LineIndex) LineLength(line int) int {
	if line < 1 || line > len(ix.lineStarts) {
		return 0
	}
	start := ix.lineStarts[line-1]
	if line < len(ix.lineStarts) {
		return ix.lineStarts[line] - start - 1
	}
	return len(ix.text) - start
}

// LineContent returns the content of a 1-based line without its newline.
func (ix *LineIndex) LineContent(line int) string {
	if line < 1 || line > len(ix.lineStarts) {
		return ""
	}
	start := ix.lineStarts[line-1]
	return ix.text[start : start+ix.LineLength(line)]
}

// OffsetAt converts a 1-based position to an absolute byte offset.
func (ix *LineIndex) OffsetAt(line, column int) int {
	if line < 1 {
		return 0
	}
	if line > len(ix.lineStarts) {
		return len(ix.text)
	}
	return ix.lineStarts[line-1] + column - 1
}

// PositionAt converts an absolute byte offset to a 1-based position.
func (ix *LineIndex) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(ix.text) {
		offset = len(ix.text)
	}
	// Find the last line start at or before offset.
	line := sort.Search(len(ix.lineStarts), func(i int) bool {
		return ix.lineStarts[i] > offset
	})
	return Position{Line: line, Column: offset - ix.lineStarts[line-1] + 1}
}

// Replace substitutes the byte range [offset, offset+length) with text and
// recomputes the line table. Arguments are clamped to the content bounds.
func (ix *LineIndex) Replace(offset, length int, text string) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(ix.text) {
		offset = len(ix.text)
	}
	if length < 0 {
		length = 0
	}
	if offset+length > len(ix.text) {
		length = len(ix.text) - offset
	}

	var b strings.Builder
	b.Grow(len(ix.text) - length + len(text))
	b.WriteString(ix.text[:offset])
	b.WriteString(text)
	b.WriteString(ix.text[offset+length:])
	ix.text = b.String()
	ix.rebuild()
}

// clampPosition clamps a position into the valid coordinates of ix.
func clampPosition(ix PositionIndex, p Position) Position {
	if p.Line < 1 {
		return Position{Line: 1, Column: 1}
	}
	lineCount := ix.LineCount()
	if p.Line > lineCount {
		return Position{Line: lineCount, Column: ix.LineLength(lineCount) + 1}
	}
	maxColumn := ix.LineLength(p.Line) + 1
	if p.Column < 1 {
		return Position{Line: p.Line, Column: 1}
	}
	if p.Column > maxColumn {
		return Position{Line: p.Line, Column: maxColumn}
	}
	return p
}

// validateRange clamps both ends of a range and normalizes their order.
func validateRange(ix PositionIndex, r Range) Range {
	r = r.normalized()
	return Range{
		Start: clampPosition(ix, r.Start),
		End:   clampPosition(ix, r.End),
	}
}
