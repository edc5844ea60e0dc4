package sourceview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_New_ASCII(t *testing.T) {
	view := New("asdf\r\n")
	assert.Equal(t, 6, view.Len())

	assert.Equal(t, "asdf\r\n", view.Slice(0, 80))
	assert.Equal(t, "asdf\r\n", view.Slice(0, 6))
	assert.Equal(t, "a", view.Slice(0, 1))
	assert.Equal(t, "as", view.Slice(0, 2))
	assert.Equal(t, "asd", view.Slice(0, 3))
	assert.Equal(t, "asdf", view.Slice(0, 4))
}

func Test_New_Unicode(t *testing.T) {
	view := New("a̐éö̲\r\n")

	// a̐ and ö̲ are each two codepoints; len counts runes, not bytes or
	// grapheme clusters.
	assert.Greater(t, view.Len(), 4)

	// slicing never bisects a codepoint: the combining marks stay attached
	// to their base character when requested together.
	full := view.Slice(0, view.Len())
	assert.Contains(t, full, "ö̲")
}

func Test_LineCol(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		pos      int
		wantLine int
		wantCol  int
	}{
		{"empty source", "", 0, 1, 1},
		{"single newline", "\n", 1, 2, 1},
		{"first of two lines", "\n\n", 0, 1, 1},
		{"second of two lines", "\n\n", 1, 2, 1},
		{"mid second line", "\nasdf\n", 2, 2, 2},
		{"end of second line", "\nasdf\n", 5, 2, 5},
		{"start of source", "asdf", 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := New(tt.src)
			line, col := view.LineCol(tt.pos)
			assert.Equal(t, tt.wantLine, line)
			assert.Equal(t, tt.wantCol, col)
		})
	}
}

func Test_Line(t *testing.T) {
	view := New("")
	text, ok := view.Line(1)
	assert.True(t, ok)
	assert.Equal(t, "", text)

	_, ok = view.Line(2)
	assert.False(t, ok)

	view = New("asdf\n")
	text, ok = view.Line(1)
	assert.True(t, ok)
	assert.Equal(t, "asdf", text)

	text, ok = view.Line(2)
	assert.True(t, ok)
	assert.Equal(t, "", text)

	view = New("asdf\n\nasdf")
	text, ok = view.Line(2)
	assert.True(t, ok)
	assert.Equal(t, "", text)

	text, ok = view.Line(3)
	assert.True(t, ok)
	assert.Equal(t, "asdf", text)
}

func Test_Slice_OutOfRange(t *testing.T) {
	view := New("abc")
	assert.Equal(t, "", view.Slice(5, 10))
	assert.Equal(t, "abc", view.Slice(-5, 100))
	assert.Equal(t, "", view.Slice(2, 1))
}

func Test_RuneAt(t *testing.T) {
	view := New("abc")
	r, ok := view.RuneAt(1)
	assert.True(t, ok)
	assert.Equal(t, 'b', r)

	_, ok = view.RuneAt(3)
	assert.False(t, ok)

	_, ok = view.RuneAt(-1)
	assert.False(t, ok)
}
