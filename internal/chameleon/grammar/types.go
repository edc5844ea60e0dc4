// Package grammar holds the context-free grammar data model, the assembler
// that builds one from post-processed token streams, and the normalizer
// passes that rewrite it toward Greibach normal form.
package grammar

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dekarrin/chameleon/internal/chameleon/lex"
)

// NonTerminal is a named production head.
type NonTerminal string

// NumberRange is one inclusive range within a Numberset, stored as raw
// 64-bit patterns already normalized (min, max) by the token post-processor.
type NumberRange struct {
	Low, High uint64
}

// Numberset is a typed, closed set of inclusive integer ranges.
type Numberset struct {
	Type   lex.NumberType
	Ranges []NumberRange
}

// Key returns a canonical string identity for a Numberset, independent of
// range order, for use as an interning map key by downstream stages.
func (n Numberset) Key() string {
	return n.key()
}

func (n Numberset) key() string {
	s := n.Type.String()
	// Rangeset identity does not depend on range order: sort a copy before
	// keying so two numbersets built from differently-ordered token streams
	// still compare equal.
	ranges := append([]NumberRange(nil), n.Ranges...)
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Low != ranges[j].Low {
			return ranges[i].Low < ranges[j].Low
		}
		return ranges[i].High < ranges[j].High
	})
	for _, r := range ranges {
		s += fmt.Sprintf("|%d..%d", r.Low, r.High)
	}
	return s
}

// TerminalKind distinguishes the two terminal shapes.
type TerminalKind int

const (
	BytesTerminal TerminalKind = iota
	NumbersetTerminal
)

// Terminal is a concrete output fragment: either a byte string or a
// numberset producing one integer.
type Terminal struct {
	Kind  TerminalKind
	Bytes []byte
	Set   Numberset
}

func (t Terminal) key() string {
	switch t.Kind {
	case BytesTerminal:
		return "b:" + strconv.Quote(string(t.Bytes))
	case NumbersetTerminal:
		return "n:" + t.Set.key()
	}
	return ""
}

// SymbolKind distinguishes the two grammar symbol shapes.
type SymbolKind int

const (
	TerminalSymbol SymbolKind = iota
	NonTerminalSymbol
)

// refMeta carries a NonTerminal symbol's raw namespace metadata from the
// token stream through to rule assembly, where resolveReferences consumes
// it and rewrites Symbol.NT to the bound name.
type refMeta struct {
	global       bool
	defNamespace string
}

// Symbol is the sum of {Terminal, NonTerminal}.
type Symbol struct {
	Kind SymbolKind
	Term Terminal
	NT   NonTerminal

	// meta is only populated on freshly-converted NonTerminal symbols
	// awaiting namespace resolution; it is nil on every other Symbol.
	meta *refMeta
}

func (s Symbol) global() bool {
	return s.meta != nil && s.meta.global
}

func (s Symbol) defNamespace() string {
	if s.meta == nil {
		return ""
	}
	return s.meta.defNamespace
}

func TerminalSym(t Terminal) Symbol {
	return Symbol{Kind: TerminalSymbol, Term: t}
}

func NonTerminalSym(nt NonTerminal) Symbol {
	return Symbol{Kind: NonTerminalSymbol, NT: nt}
}

func BytesSym(b []byte) Symbol {
	return TerminalSym(Terminal{Kind: BytesTerminal, Bytes: b})
}

func (s Symbol) key() string {
	if s.Kind == NonTerminalSymbol {
		return "N:" + string(s.NT)
	}
	return "T:" + s.Term.key()
}

// ProductionRule is one "lhs -> rhs" rule: lhs is a NonTerminal, rhs is an
// ordered, possibly empty, sequence of Symbols.
type ProductionRule struct {
	LHS NonTerminal
	RHS []Symbol
}

// IsLeftRecursive reports whether the rule's rhs begins with a reference to
// its own lhs.
func (r ProductionRule) IsLeftRecursive() bool {
	if len(r.RHS) == 0 {
		return false
	}
	first := r.RHS[0]
	return first.Kind == NonTerminalSymbol && first.NT == r.LHS
}

// IsInGNF reports whether this single rule satisfies the GNF shape: rhs
// non-empty, starts with a Terminal, and every subsequent symbol is a
// NonTerminal.
func (r ProductionRule) IsInGNF() bool {
	if len(r.RHS) == 0 {
		return false
	}
	if r.RHS[0].Kind != TerminalSymbol {
		return false
	}
	for _, sym := range r.RHS[1:] {
		if sym.Kind != NonTerminalSymbol {
			return false
		}
	}
	return true
}

// key returns a canonical string identity for a rule, used to detect
// byte-for-byte duplicate rules without needing a deep-equality walk at
// every comparison site.
func (r ProductionRule) key() string {
	s := string(r.LHS) + "=>"
	for _, sym := range r.RHS {
		s += sym.key() + ","
	}
	return s
}

// ContextFreeGrammar is {entrypoint, rules, unused non-terminal names}. After
// Normalize, every rule satisfies IsInGNF and the entrypoint has exactly one
// defining rule.
type ContextFreeGrammar struct {
	entrypoint NonTerminal
	rules      []ProductionRule
	unused     map[string]bool
}

// New builds a ContextFreeGrammar directly from an entrypoint and rule set,
// bypassing Builder. Used by callers that already have fully-resolved rules
// in hand, such as tests.
func New(entrypoint NonTerminal, rules []ProductionRule) *ContextFreeGrammar {
	return &ContextFreeGrammar{entrypoint: entrypoint, rules: rules}
}

// Entrypoint returns the grammar's distinguished starting non-terminal.
func (g *ContextFreeGrammar) Entrypoint() NonTerminal {
	return g.entrypoint
}

// Rules returns the grammar's rules. The returned slice must not be
// retained across a call to any normalization pass, which may reallocate it.
func (g *ContextFreeGrammar) Rules() []ProductionRule {
	return g.rules
}

// UnusedNonterminals returns the set of non-terminal names pruned by
// RemoveUnusedRules, if it was run with logging enabled.
func (g *ContextFreeGrammar) UnusedNonterminals() map[string]bool {
	return g.unused
}

// SortedUnusedNonterminals returns UnusedNonterminals' keys sorted, for
// diagnostics that need a stable iteration order.
func (g *ContextFreeGrammar) SortedUnusedNonterminals() []string {
	return sortedNames(g.unused)
}

// Size returns the grammar's total symbol count across all rules' right-hand
// sides, a rough proxy for grammar complexity.
func (g *ContextFreeGrammar) Size() int {
	size := 0
	for _, r := range g.rules {
		size += len(r.RHS)
	}
	return size
}

// IsInGNF reports whether every rule in the grammar satisfies the GNF shape.
func (g *ContextFreeGrammar) IsInGNF() bool {
	for _, r := range g.rules {
		if !r.IsInGNF() {
			return false
		}
	}
	return true
}
