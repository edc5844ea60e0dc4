package translator

import (
	"testing"

	"github.com/dekarrin/chameleon/internal/chameleon/grammar"
	"github.com/stretchr/testify/assert"
)

func buildNormalized(t *testing.T, src string) *grammar.ContextFreeGrammar {
	t.Helper()
	b := grammar.NewBuilder()
	assert.NoError(t, b.LoadSource("t.chm", src))
	g, err := b.Build("")
	assert.NoError(t, err)
	assert.NoError(t, grammar.Normalize(g, true))
	return g
}

func TestConvert_SimpleGrammar(t *testing.T) {
	g := buildNormalized(t, "<root> => \"hello\"\n")

	out := NewConverter().Convert(g)

	assert.Equal(t, "hello", string(out.Terminals[0]))
	assert.Equal(t, "root", out.Nonterminals[out.Entrypoint])
	assert.Len(t, out.Rules, 1)
}

func TestConvert_InternsIdenticalBytesOnce(t *testing.T) {
	// Two independent rules referencing the identical byte literal "x";
	// built directly via grammar.New so normalization can't collapse them
	// into one rule first and launder the assertion.
	g := grammar.New("root", []grammar.ProductionRule{
		{LHS: "root", RHS: []grammar.Symbol{grammar.BytesSym([]byte("x")), grammar.NonTerminalSym("mid")}},
		{LHS: "mid", RHS: []grammar.Symbol{grammar.BytesSym([]byte("x"))}},
		{LHS: "other", RHS: []grammar.Symbol{grammar.BytesSym([]byte("x"))}},
	})

	out := NewConverter().Convert(g)
	assert.Len(t, out.Terminals, 1)
}

func TestConvert_RuleSetSortedByLength(t *testing.T) {
	g := buildNormalized(t, `<root> => ("a" || "a" <digit> <digit>)`+"\n<digit> => u8{0x30..0x39}\n")

	out := NewConverter().Convert(g)

	var rootSet *RuleSet
	for _, rs := range out.Rules {
		if out.Nonterminals[rs.NonTermID] == "root" {
			rootSet = rs
		}
	}
	assert.NotNil(t, rootSet)
	for i := 1; i < len(rootSet.Rules); i++ {
		assert.LessOrEqual(t, len(rootSet.Rules[i-1]), len(rootSet.Rules[i]))
	}
}

func TestConvert_NumbersetInterned(t *testing.T) {
	g := buildNormalized(t, "<root> => u8{0x30..0x39}\n")

	out := NewConverter().Convert(g)
	assert.Len(t, out.Numbersets, 1)
	for _, ns := range out.Numbersets {
		assert.Equal(t, U8, ns.Type)
		assert.Equal(t, []Range{{Start: 0x30, End: 0x39}}, ns.Set)
	}
}
