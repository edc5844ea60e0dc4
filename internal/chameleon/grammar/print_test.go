package grammar

import (
	"testing"

	"github.com/dekarrin/chameleon/internal/chameleon/lex"
	"github.com/stretchr/testify/assert"
)

func TestPrint_BytesAndNonterminal(t *testing.T) {
	g := New("root", []ProductionRule{
		{LHS: "root", RHS: []Symbol{BytesSym([]byte("hi")), NonTerminalSym("a")}},
		{LHS: "a", RHS: []Symbol{BytesSym([]byte("ok"))}},
	})

	out := Print(g)
	assert.Equal(t, "<root> => \"hi\" <a>\n<a> => \"ok\"\n", out)
}

func TestPrint_EscapesSpecialBytes(t *testing.T) {
	g := New("root", []ProductionRule{
		{LHS: "root", RHS: []Symbol{BytesSym([]byte("a\"b\\c\n\x01"))}},
	})

	out := Print(g)
	assert.Equal(t, "<root> => \"a\\\"b\\\\c\\n\\x01\"\n", out)
}

func TestPrint_Numberset(t *testing.T) {
	g := New("root", []ProductionRule{
		{LHS: "root", RHS: []Symbol{TerminalSym(Terminal{
			Kind: NumbersetTerminal,
			Set: Numberset{
				Type:   lex.U8,
				Ranges: []NumberRange{{Low: 0x30, High: 0x39}, {Low: 5, High: 5}},
			},
		})}},
	})

	out := Print(g)
	assert.Equal(t, "<root> => u8{48..57, 5}\n", out)
}

func TestPrint_RoundTripsThroughBuilder(t *testing.T) {
	src := "<root> => \"hi\" <a>\n<a> => \"ok\"\n"
	b := NewBuilder()
	assert.NoError(t, b.LoadSource("t.chm", src))
	g, err := b.Build("root")
	assert.NoError(t, err)

	printed := Print(g)

	b2 := NewBuilder()
	assert.NoError(t, b2.LoadSource("t2.chm", printed))
	g2, err := b2.Build("root")
	assert.NoError(t, err)

	assert.Equal(t, g.Rules(), g2.Rules())
}
