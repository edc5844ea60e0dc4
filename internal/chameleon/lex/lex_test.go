package lex

import (
	"errors"
	"testing"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
	"github.com/stretchr/testify/assert"
)

func kinds(tokens []Token) []Kind {
	ks := make([]Kind, len(tokens))
	for i, tok := range tokens {
		ks[i] = tok.Kind
	}
	return ks
}

func Test_Tokenize_SimpleRule(t *testing.T) {
	src := `<root> => "hello"` + "\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, []Kind{StartRule, ByteString, EndRule}, kinds(toks))
	assert.Equal(t, "root", toks[0].Name)
	assert.Equal(t, []byte("hello"), toks[1].Bytes)
}

func Test_Tokenize_CommentsAreSkipped(t *testing.T) {
	src := "/* a comment /* nested */ still a comment */\n<root> => \"x\"\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, []Kind{StartRule, ByteString, EndRule}, kinds(toks))
}

func Test_Tokenize_GroupAndOr(t *testing.T) {
	src := `<root> => ("a" || "b")` + "\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, []Kind{StartRule, StartGroup, ByteString, Or, ByteString, EndGroup, EndRule}, kinds(toks))
}

func Test_Tokenize_OrOutsideGroupIsError(t *testing.T) {
	src := `<root> => "a" || "b"` + "\n"
	_, err := New("a.chm", src).Tokenize()
	assert.Error(t, err)
	var lexErr diag.LexError
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, diag.OrError, lexErr.Kind)
}

func Test_Tokenize_EmptyGroupIsError(t *testing.T) {
	src := `<root> => ()` + "\n"
	_, err := New("a.chm", src).Tokenize()
	assert.Error(t, err)
	var lexErr diag.LexError
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, diag.InvalidGroup, lexErr.Kind)
}

func Test_Tokenize_NonTerminalReference(t *testing.T) {
	src := `<root> => <other>` + "\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, []Kind{StartRule, NonTerminal, EndRule}, kinds(toks))
	assert.Equal(t, "other", toks[1].Name)
	assert.False(t, toks[1].Global)
}

func Test_Tokenize_GlobalNonTerminalReference(t *testing.T) {
	src := "namespace NS\n<root> => <::other>\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, "NS::root", toks[0].Name)
	assert.True(t, toks[1].Global)
	assert.Equal(t, "other", toks[1].Name)
	assert.Equal(t, "NS", toks[1].DefNamespace)
}

func Test_Tokenize_ClearNamespace(t *testing.T) {
	src := "namespace NS\n<a> => \"x\"\nclear namespace\n<b> => \"y\"\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, "NS::a", toks[0].Name)
	// toks[0..2] is rule a, toks[3] is StartRule for b
	var startNames []string
	for _, tok := range toks {
		if tok.Kind == StartRule {
			startNames = append(startNames, tok.Name)
		}
	}
	assert.Equal(t, []string{"NS::a", "b"}, startNames)
}

func Test_Tokenize_Numberset(t *testing.T) {
	src := `<root> => u8{0x30..0x39, 5}` + "\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, []Kind{StartRule, StartNumberset, NumberRange, NumberRange, EndNumberset, EndRule}, kinds(toks))
	assert.Equal(t, U8, toks[1].NumType)
	assert.Equal(t, uint64(0x30), toks[2].Low)
	assert.Equal(t, uint64(0x39), toks[2].High)
	assert.Equal(t, uint64(5), toks[3].Low)
	assert.Equal(t, uint64(5), toks[3].High)
}

func Test_Tokenize_EmptyNumbersetIsError(t *testing.T) {
	src := `<root> => u8{}` + "\n"
	_, err := New("a.chm", src).Tokenize()
	assert.Error(t, err)
	var lexErr diag.LexError
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, diag.InvalidNumberset, lexErr.Kind)
}

func Test_Tokenize_HexWidthMismatchIsError(t *testing.T) {
	src := `<root> => u8{0x1234}` + "\n"
	_, err := New("a.chm", src).Tokenize()
	assert.Error(t, err)
	var lexErr diag.LexError
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, diag.InvalidNumber, lexErr.Kind)
}

func Test_Tokenize_NegativeSignedNumberset(t *testing.T) {
	src := `<root> => i8{-1..5}` + "\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, uint64(0xFF), toks[2].Low)
	assert.Equal(t, uint64(5), toks[2].High)
}

func Test_Tokenize_NegativeUnsignedIsError(t *testing.T) {
	src := `<root> => u8{-1..5}` + "\n"
	_, err := New("a.chm", src).Tokenize()
	assert.Error(t, err)
	var lexErr diag.LexError
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, diag.InvalidNumber, lexErr.Kind)
}

func Test_Tokenize_MissingSeparator(t *testing.T) {
	src := `<root> "hello"` + "\n"
	_, err := New("a.chm", src).Tokenize()
	assert.Error(t, err)
	var lexErr diag.LexError
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, diag.MissingSeparator, lexErr.Kind)
}

func Test_Tokenize_MissingRhs(t *testing.T) {
	src := `<root> =>` + "\n"
	_, err := New("a.chm", src).Tokenize()
	assert.Error(t, err)
	var lexErr diag.LexError
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, diag.MissingRhs, lexErr.Kind)
}

func Test_Tokenize_StringEscapes(t *testing.T) {
	src := `<root> => "\n\t\\\x41"` + "\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, []byte{'\n', '\t', '\\', 'A'}, toks[1].Bytes)
}

func Test_Tokenize_UnclosedComment(t *testing.T) {
	src := "/* never closed\n<root> => \"x\"\n"
	_, err := New("a.chm", src).Tokenize()
	assert.Error(t, err)
	var lexErr diag.LexError
	assert.True(t, errors.As(err, &lexErr))
	assert.Equal(t, diag.UnclosedComment, lexErr.Kind)
}

func Test_Tokenize_MultipleRulesAcrossLines(t *testing.T) {
	src := "<root> => <a>\n<a> => \"ok\"\n"
	toks, err := New("a.chm", src).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, []Kind{StartRule, NonTerminal, EndRule, StartRule, ByteString, EndRule}, kinds(toks))
}
