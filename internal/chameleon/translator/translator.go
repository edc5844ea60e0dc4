// Package translator lowers a normalized context-free grammar into a
// compact numeric intermediate representation: every non-terminal,
// byte-literal, and numberset is interned to a dense [0, N) id, and rules
// sharing an lhs are grouped into a RuleSet, the unit the emitter dispatches
// on.
package translator

import (
	"sort"

	"github.com/dekarrin/chameleon/internal/chameleon/grammar"
)

// NumbersetType mirrors grammar.Numberset's eight integer types, repeated
// here (rather than reusing lex.NumberType) since the translator stage no
// longer needs anything else from the lexer's token vocabulary.
type NumbersetType int

const (
	U8 NumbersetType = iota
	I8
	U16
	I16
	U32
	I32
	U64
	I64
)

// CType returns the C99 fixed-width integer type name used by the emitter.
func (t NumbersetType) CType() string {
	switch t {
	case U8:
		return "uint8_t"
	case I8:
		return "int8_t"
	case U16:
		return "uint16_t"
	case I16:
		return "int16_t"
	case U32:
		return "uint32_t"
	case I32:
		return "int32_t"
	case U64:
		return "uint64_t"
	case I64:
		return "int64_t"
	}
	return "uint8_t"
}

func fromGrammarType(t grammar.Numberset) NumbersetType {
	width := t.Type.BitWidth()
	signed := t.Type.Signed()
	switch {
	case width == 8 && !signed:
		return U8
	case width == 8 && signed:
		return I8
	case width == 16 && !signed:
		return U16
	case width == 16 && signed:
		return I16
	case width == 32 && !signed:
		return U32
	case width == 32 && signed:
		return I32
	case width == 64 && !signed:
		return U64
	case width == 64 && signed:
		return I64
	}
	return U8
}

// Range is one inclusive bound pair, stored as the same raw bit pattern
// carried since tokenization.
type Range struct {
	Start, End uint64
}

// Numberset is the translator-stage numberset: a type tag plus a
// deduplicated set of ranges.
type Numberset struct {
	Type NumbersetType
	Set  []Range
}

// TerminalKind distinguishes the two interned terminal shapes.
type TerminalKind int

const (
	BytesTerminal TerminalKind = iota
	NumbersetTerminal
)

// Terminal is an interned reference: an index into the converter's terminal
// or numberset table, never the value itself.
type Terminal struct {
	Kind TerminalKind
	ID   int
}

// SymbolKind distinguishes the two interned symbol shapes.
type SymbolKind int

const (
	TerminalSymbol SymbolKind = iota
	NonTerminalSymbol
)

// Symbol is the interned sum of {Terminal, NonTerminal}; a NonTerminal
// symbol carries a dense id rather than a name.
type Symbol struct {
	Kind      SymbolKind
	Term      Terminal
	NonTermID int
}

// RuleSet groups every alternative rhs sharing one lhs non-terminal,
// sorted by ascending rhs length. This grouping is the emitter's unit of
// code generation.
type RuleSet struct {
	NonTermID int
	Rules     [][]Symbol
}

// insertSorted inserts rhs keeping Rules ordered by ascending length,
// mirroring a binary-search insertion so ties land in first-seen order.
func (rs *RuleSet) insertSorted(rhs []Symbol) {
	idx := sort.Search(len(rs.Rules), func(i int) bool {
		return len(rs.Rules[i]) > len(rhs)
	})
	rs.Rules = append(rs.Rules, nil)
	copy(rs.Rules[idx+1:], rs.Rules[idx:])
	rs.Rules[idx] = rhs
}

// Grammar is the fully-interned translator output consumed by the emitter.
type Grammar struct {
	Entrypoint   int
	Rules        []*RuleSet
	Numbersets   map[int]Numberset
	Nonterminals map[int]string
	Terminals    map[int][]byte
}

// Converter interns names, terminals, and numbersets while walking a
// ContextFreeGrammar's rules, and produces the final Grammar via Convert. A
// Converter is single-use.
type Converter struct {
	nontermCursor int
	nontermIDs    map[string]int
	nonterms      map[int]string

	numbersetCursor int
	numbersetIDs    map[string]int
	numbersets      map[int]Numberset

	terminalCursor int
	terminalIDs    map[string]int
	terminals      map[int][]byte

	rules []*RuleSet
}

// NewConverter returns an empty Converter.
func NewConverter() *Converter {
	return &Converter{
		nontermIDs:   make(map[string]int),
		nonterms:     make(map[int]string),
		numbersetIDs: make(map[string]int),
		numbersets:   make(map[int]Numberset),
		terminalIDs:  make(map[string]int),
		terminals:    make(map[int][]byte),
	}
}

func (c *Converter) nontermID(name string) int {
	if id, ok := c.nontermIDs[name]; ok {
		return id
	}
	id := c.nontermCursor
	c.nontermCursor++
	c.nontermIDs[name] = id
	c.nonterms[id] = name
	return id
}

func (c *Converter) numbersetID(ns grammar.Numberset) int {
	key := ns.Key()
	if id, ok := c.numbersetIDs[key]; ok {
		return id
	}
	id := c.numbersetCursor
	c.numbersetCursor++
	c.numbersetIDs[key] = id
	c.numbersets[id] = convertNumberset(ns)
	return id
}

func convertNumberset(ns grammar.Numberset) Numberset {
	seen := make(map[Range]bool)
	var ranges []Range
	for _, r := range ns.Ranges {
		rr := Range{Start: r.Low, End: r.High}
		if seen[rr] {
			continue
		}
		seen[rr] = true
		ranges = append(ranges, rr)
	}
	return Numberset{Type: fromGrammarType(ns), Set: ranges}
}

func (c *Converter) terminalID(b []byte) int {
	key := string(b)
	if id, ok := c.terminalIDs[key]; ok {
		return id
	}
	id := c.terminalCursor
	c.terminalCursor++
	c.terminalIDs[key] = id
	c.terminals[id] = append([]byte(nil), b...)
	return id
}

// convertRHS lowers one rule's rhs verbatim, including an empty byte-string
// terminal. Normalize's IsInGNF invariant confines any such empty terminal
// to position 0 (the base-case epsilon rule a left-recursion rewrite
// introduces), so it must never be elided here the way ProcessTerminals
// elides interior empty terminals pre-GNF — doing so would either strand a
// rule with no leading terminal at all, or misalign every symbol after it.
func (c *Converter) convertRHS(rhs []grammar.Symbol) []Symbol {
	var out []Symbol
	for _, sym := range rhs {
		switch sym.Kind {
		case grammar.TerminalSymbol:
			switch sym.Term.Kind {
			case grammar.BytesTerminal:
				out = append(out, Symbol{Kind: TerminalSymbol, Term: Terminal{Kind: BytesTerminal, ID: c.terminalID(sym.Term.Bytes)}})
			case grammar.NumbersetTerminal:
				out = append(out, Symbol{Kind: TerminalSymbol, Term: Terminal{Kind: NumbersetTerminal, ID: c.numbersetID(sym.Term.Set)}})
			}
		case grammar.NonTerminalSymbol:
			out = append(out, Symbol{Kind: NonTerminalSymbol, NonTermID: c.nontermID(string(sym.NT))})
		}
	}
	return out
}

func (c *Converter) insertRule(nontermID int, rhs []grammar.Symbol) {
	converted := c.convertRHS(rhs)

	for _, rs := range c.rules {
		if rs.NonTermID == nontermID {
			rs.insertSorted(converted)
			return
		}
	}

	c.rules = append(c.rules, &RuleSet{NonTermID: nontermID, Rules: [][]Symbol{converted}})
}

// Convert lowers cfg into a fully-interned Grammar.
func (c *Converter) Convert(cfg *grammar.ContextFreeGrammar) *Grammar {
	for _, rule := range cfg.Rules() {
		id := c.nontermID(string(rule.LHS))
		c.insertRule(id, rule.RHS)
	}

	entrypoint := c.nontermID(string(cfg.Entrypoint()))

	return &Grammar{
		Entrypoint:   entrypoint,
		Rules:        c.rules,
		Numbersets:   c.numbersets,
		Nonterminals: c.nonterms,
		Terminals:    c.terminals,
	}
}
