package report

// TextPosition represents a positional range in the source text.  Lines are
// one-indexed; columns are zero-indexed.
type TextPosition struct {
	StartLn, StartCol int // starting line, starting 0-indexed column
	EndLn, EndCol     int // ending line, column trailing token (one over)
}

// TextPositionFromRange takes two positions and computes the text position
// spanning them.
func TextPositionFromRange(start, end *TextPosition) *TextPosition {
	return &TextPosition{
		StartLn:  start.StartLn,
		StartCol: start.StartCol,
		EndLn:    end.EndLn,
		EndCol:   end.EndCol,
	}
}

// LinePosition returns a position covering a single point on a line.
func LinePosition(line, col int) *TextPosition {
	return &TextPosition{StartLn: line, StartCol: col, EndLn: line, EndCol: col + 1}
}
