package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_LexError_Is(t *testing.T) {
	err := NewLexError(UnclosedComment, Position{File: "a.chm", Line: 1, Column: 2}, "")
	assert.True(t, errors.Is(err, ErrLexical))
	assert.False(t, errors.Is(err, ErrStructural))
	assert.Contains(t, err.Error(), "a.chm:1:2")
	assert.Contains(t, err.Error(), "unclosed comment")
}

func Test_LexError_WithReason(t *testing.T) {
	err := NewLexError(InvalidNumber, Position{File: "a.chm", Line: 3, Column: 4}, "width overruns u8")
	assert.Contains(t, err.Error(), "width overruns u8")
}

func Test_StructuralError_Is(t *testing.T) {
	err := NewStructuralError(InvalidNonterminalReference, Position{File: "a.chm", Line: 5, Column: 1}, "foo")
	assert.True(t, errors.Is(err, ErrStructural))
	assert.Contains(t, err.Error(), "foo")

	missing := NewStructuralError(MissingEntrypoint, Position{}, "")
	assert.True(t, errors.Is(missing, ErrStructural))
	assert.Contains(t, missing.Error(), "entrypoint")
}

func Test_NormalizeError_Is(t *testing.T) {
	err := NewNormalizeError(ErrGNFDidNotConverge, "")
	assert.True(t, errors.Is(err, ErrNormalize))
	assert.Contains(t, err.Error(), "converge")
}

func Test_WrapIO(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapIO("reading grammar file", cause)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, cause))
}

func Test_Position_Empty(t *testing.T) {
	var p Position
	assert.Equal(t, "", p.String())
}
