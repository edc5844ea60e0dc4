// Package sourceview provides character-position-safe addressing into grammar
// source text, so that diagnostics and literal extraction never bisect a
// multi-byte codepoint.
package sourceview

// SourceView indexes a piece of source text by logical character (rune)
// position rather than byte offset, so that slicing and line/column lookup
// stay correct in the presence of multi-byte UTF-8 codepoints.
type SourceView struct {
	runes []rune
	// lineStarts[i] is the character position of the first rune of line i
	// (0-indexed internally; Line/LineCol report 1-indexed line numbers).
	lineStarts []int
}

// New builds a SourceView over src. The whole of src is decoded once; later
// lookups are O(1) (Slice, RuneAt) or O(log n) (LineCol).
func New(src string) *SourceView {
	runes := []rune(src)
	lineStarts := []int{0}

	for i, r := range runes {
		if r == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	return &SourceView{runes: runes, lineStarts: lineStarts}
}

// Len returns the number of characters (not bytes) in the source.
func (sv *SourceView) Len() int {
	return len(sv.runes)
}

// RuneAt returns the rune at character position pos and whether pos was in
// range.
func (sv *SourceView) RuneAt(pos int) (rune, bool) {
	if pos < 0 || pos >= len(sv.runes) {
		return 0, false
	}
	return sv.runes[pos], true
}

// Slice returns the substring spanning the half-open character range
// [start, end). Out-of-range bounds are clamped rather than panicking, since
// diagnostics callers routinely probe one past the last token.
func (sv *SourceView) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(sv.runes) {
		end = len(sv.runes)
	}
	if start >= end {
		return ""
	}
	return string(sv.runes[start:end])
}

// LineCol returns the 1-indexed line and column of character position pos.
// Column is also 1-indexed and counted in characters, not bytes.
func (sv *SourceView) LineCol(pos int) (line, col int) {
	line = sv.lineIndex(pos) + 1
	col = pos - sv.lineStarts[line-1] + 1
	return line, col
}

// Line returns the full text of the 1-indexed line n, not including its
// trailing newline, and whether n was a valid line number.
func (sv *SourceView) Line(n int) (string, bool) {
	if n < 1 || n > len(sv.lineStarts) {
		return "", false
	}

	start := sv.lineStarts[n-1]
	end := len(sv.runes)
	if n < len(sv.lineStarts) {
		end = sv.lineStarts[n] - 1
	}

	return sv.Slice(start, end), true
}

// lineIndex returns the 0-indexed line number containing character position
// pos via binary search over lineStarts.
func (sv *SourceView) lineIndex(pos int) int {
	lo, hi := 0, len(sv.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if sv.lineStarts[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
