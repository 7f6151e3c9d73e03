package festoon

import "fmt"

// Position is a 1-based line/column location in a document.
// Column counts bytes within the line; column 1 is before the first byte
// and LineLength(line)+1 is past the last byte.
type Position struct {
	Line   int
	Column int
}

// Pos creates a Position.
func Pos(line, column int) Position {
	return Position{Line: line, Column: column}
}

// Before returns true if p is strictly before other in document order.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// String implements the Stringer interface.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a span between two positions, inclusive of the start position
// and exclusive of the end position. A Range with Start == End is empty.
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a Range from 1-based line/column pairs.
func NewRange(startLine, startColumn, endLine, endColumn int) Range {
	return Range{
		Start: Position{Line: startLine, Column: startColumn},
		End:   Position{Line: endLine, Column: endColumn},
	}
}

// IsEmpty returns true if the range covers no content.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// normalized returns the range with start and end swapped if needed so
// that Start <= End.
func (r Range) normalized() Range {
	if r.End.Before(r.Start) {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

// String implements the Stringer interface.
func (r Range) String() string {
	return fmt.Sprintf("[%v-%v]", r.Start, r.End)
}
