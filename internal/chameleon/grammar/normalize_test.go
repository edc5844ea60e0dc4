package grammar

import (
	"errors"
	"testing"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
	"github.com/stretchr/testify/assert"
)

func newGrammar(entry string, rules ...ProductionRule) *ContextFreeGrammar {
	return &ContextFreeGrammar{entrypoint: NonTerminal(entry), rules: rules}
}

func TestRemoveUnusedRules_PrunesUnreachable(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{NonTerminalSym("a")}},
		ProductionRule{LHS: "a", RHS: []Symbol{BytesSym([]byte("x"))}},
		ProductionRule{LHS: "dead", RHS: []Symbol{BytesSym([]byte("y"))}},
	)

	g.RemoveUnusedRules(true)

	assert.Len(t, g.Rules(), 2)
	assert.True(t, g.UnusedNonterminals()["dead"])
}

func TestRemoveUnusedRules_TrivialEntrypointUnaffected(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("hello"))}},
	)

	g.RemoveUnusedRules(true)
	assert.Len(t, g.Rules(), 1)
}

func TestRemoveDuplicateRules(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("x"))}},
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("x"))}},
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("y"))}},
	)

	g.RemoveDuplicateRules()
	assert.Len(t, g.Rules(), 2)
}

func TestExpandUnitRules(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{NonTerminalSym("a")}},
		ProductionRule{LHS: "a", RHS: []Symbol{BytesSym([]byte("x"))}},
		ProductionRule{LHS: "a", RHS: []Symbol{BytesSym([]byte("y"))}},
	)

	err := g.ExpandUnitRules()
	assert.NoError(t, err)

	var rootRHS [][]Symbol
	for _, r := range g.Rules() {
		if r.LHS == "root" {
			rootRHS = append(rootRHS, r.RHS)
		}
	}
	assert.Len(t, rootRHS, 2)
}

func TestExpandUnitRules_SelfUnitRuleErrors(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{NonTerminalSym("root")}},
	)

	err := g.ExpandUnitRules()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrNormalize))
}

func TestTerminalSubstitution(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{NonTerminalSym("digit"), NonTerminalSym("digit")}},
		ProductionRule{LHS: "digit", RHS: []Symbol{BytesSym([]byte("5"))}},
	)

	g.TerminalSubstitution()

	assert.Len(t, g.Rules(), 1)
	assert.Equal(t, []Symbol{BytesSym([]byte("5")), BytesSym([]byte("5"))}, g.Rules()[0].RHS)
}

func TestProcessTerminals_PruneAndConcat(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{
			BytesSym([]byte("a")),
			BytesSym(nil),
			BytesSym([]byte("b")),
			NonTerminalSym("x"),
		}},
	)

	g.ProcessTerminals()

	rhs := g.Rules()[0].RHS
	assert.Len(t, rhs, 2)
	assert.Equal(t, []byte("ab"), rhs[0].Term.Bytes)
	assert.Equal(t, NonTerminalSymbol, rhs[1].Kind)
}

func TestPrepareGNF_InternsNonLeadingTerminal(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{NonTerminalSym("a"), BytesSym([]byte("x"))}},
	)

	g.PrepareGNF()

	rhs := g.Rules()[0].RHS
	assert.Equal(t, NonTerminalSymbol, rhs[1].Kind)

	found := false
	for _, r := range g.Rules() {
		if r.LHS == rhs[1].NT {
			assert.Equal(t, []byte("x"), r.RHS[0].Term.Bytes)
			found = true
		}
	}
	assert.True(t, found)
}

func TestPrepareGNF_InternsIdenticalTerminalsToSameName(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{NonTerminalSym("a"), BytesSym([]byte("x"))}},
		ProductionRule{LHS: "b", RHS: []Symbol{NonTerminalSym("a"), BytesSym([]byte("x"))}},
	)

	g.PrepareGNF()

	rules := g.Rules()
	name1 := findLHS(rules, "root").RHS[1].NT
	name2 := findLHS(rules, "b").RHS[1].NT
	assert.Equal(t, name1, name2)
}

func findLHS(rules []ProductionRule, lhs NonTerminal) ProductionRule {
	for _, r := range rules {
		if r.LHS == lhs {
			return r
		}
	}
	return ProductionRule{}
}

func TestConvertToGNF_DirectLeftRecursion(t *testing.T) {
	// <root> => <root> "x" || "y", already split/desugared to two rules.
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{NonTerminalSym("root"), BytesSym([]byte("x"))}},
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("y"))}},
	)

	err := g.ConvertToGNF()
	assert.NoError(t, err)
	assert.True(t, g.IsInGNF())
}

func TestConvertToGNF_AlreadyInGNFIsNoOp(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("hello"))}},
	)

	err := g.ConvertToGNF()
	assert.NoError(t, err)
	assert.Len(t, g.Rules(), 1)
}

func TestSetNewEntrypoint_MultipleRulesIntroducesSynthetic(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("a"))}},
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("b"))}},
	)

	g.SetNewEntrypoint()

	var rootRules int
	for _, r := range g.Rules() {
		if r.LHS == "root" {
			rootRules++
			// The new entrypoint rule must stay in GNF shape (rhs[0] a
			// Terminal) rather than a bare NonTerminal, or the emitter's
			// leading-terminal assumption stranded the pushed non-terminal.
			assert.True(t, r.IsInGNF())
		}
	}
	assert.Equal(t, 1, rootRules)
}

func TestSetNewEntrypoint_SingleRuleIsNoOp(t *testing.T) {
	g := newGrammar("root",
		ProductionRule{LHS: "root", RHS: []Symbol{BytesSym([]byte("a"))}},
	)

	g.SetNewEntrypoint()
	assert.Len(t, g.Rules(), 1)
}

func TestNormalize_EndToEndSimpleGrammar(t *testing.T) {
	b := NewBuilder()
	assert.NoError(t, b.LoadSource("t.chm", "<root> => \"hello\"\n"))

	g, err := b.Build("")
	assert.NoError(t, err)

	assert.NoError(t, Normalize(g, true))
	assert.True(t, g.IsInGNF())
}

func TestNormalize_EndToEndLeftRecursiveGrammar(t *testing.T) {
	b := NewBuilder()
	assert.NoError(t, b.LoadSource("t.chm", `<root> => (<root> "x" || "y")`+"\n"))

	g, err := b.Build("")
	assert.NoError(t, err)

	assert.NoError(t, Normalize(g, true))
	assert.True(t, g.IsInGNF())
}
