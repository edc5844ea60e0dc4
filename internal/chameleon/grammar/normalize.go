package grammar

import (
	"strconv"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
)

// gnfIterationCapFactor bounds ConvertToGNF's outer fixpoint loop: the
// original implementation's loop has no bound and can spin forever on
// grammars with indirect recursion that alternating left-recursion removal
// and leftmost expansion never resolves. We cap total outer iterations at
// this factor times the rule count at the start of the pass and report
// ErrGNFDidNotConverge past that point rather than hang.
const gnfIterationCapFactor = 64

// Normalize runs the full canonical pass sequence over g in place:
// RemoveUnusedRules, RemoveDuplicateRules, ExpandUnitRules,
// TerminalSubstitution, ProcessTerminals, PrepareGNF, ConvertToGNF,
// SetNewEntrypoint. log controls whether unreachable non-terminal names are
// recorded on the grammar for a diagnostic warning.
func Normalize(g *ContextFreeGrammar, log bool) error {
	g.RemoveUnusedRules(log)
	g.RemoveDuplicateRules()

	if err := g.ExpandUnitRules(); err != nil {
		return err
	}

	g.TerminalSubstitution()
	g.ProcessTerminals()
	g.PrepareGNF()

	if err := g.ConvertToGNF(); err != nil {
		return err
	}

	g.SetNewEntrypoint()
	return nil
}

// RemoveUnusedRules prunes every rule whose lhs is not reachable from the
// entrypoint via a BFS over the directed graph with an edge lhs -> n for
// every non-terminal n referenced anywhere in lhs's rhs. If log is true, the
// pruned names are retained on the grammar (see UnusedNonterminals).
func (g *ContextFreeGrammar) RemoveUnusedRules(log bool) {
	adj := make(map[NonTerminal]map[NonTerminal]bool)
	unused := make(map[string]bool)

	for _, r := range g.rules {
		unused[string(r.LHS)] = true
		for _, sym := range r.RHS {
			if sym.Kind != NonTerminalSymbol {
				continue
			}
			if adj[r.LHS] == nil {
				adj[r.LHS] = make(map[NonTerminal]bool)
			}
			adj[r.LHS][sym.NT] = true
		}
	}

	if _, ok := unused[string(g.entrypoint)]; !ok {
		return
	}

	visited := map[NonTerminal]bool{g.entrypoint: true}
	queue := []NonTerminal{g.entrypoint}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		delete(unused, string(cur))

		for next := range adj[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	kept := g.rules[:0:0]
	for _, r := range g.rules {
		if !unused[string(r.LHS)] {
			kept = append(kept, r)
		}
	}
	g.rules = kept

	if log {
		if g.unused == nil {
			g.unused = make(map[string]bool)
		}
		for name := range unused {
			g.unused[name] = true
		}
	}
}

// RemoveDuplicateRules drops any rule that is byte-for-byte identical to an
// earlier rule, keeping the first occurrence.
func (g *ContextFreeGrammar) RemoveDuplicateRules() {
	seen := make(map[string]bool)
	kept := g.rules[:0:0]
	for _, r := range g.rules {
		k := r.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, r)
	}
	g.rules = kept
}

// ExpandUnitRules replaces every unit rule "A -> B" (single NonTerminal rhs)
// by copying in every rule defining B, then drops the unit rule. Repeats to
// a fixpoint. A self unit rule (A -> A) has no base case and is reported as
// diag.ErrSelfUnitRule.
func (g *ContextFreeGrammar) ExpandUnitRules() error {
	for {
		oldLen := len(g.rules)
		advanced := false

		for i := 0; i < oldLen; i++ {
			rhs := g.rules[i].RHS
			if len(rhs) != 1 || rhs[0].Kind != NonTerminalSymbol {
				continue
			}

			nonterm := rhs[0].NT
			if nonterm == g.rules[i].LHS {
				return diag.NormalizeError{Kind: diag.ErrSelfUnitRule, Nonterm: string(nonterm)}
			}

			lhs := g.rules[i].LHS
			for j := 0; j < oldLen; j++ {
				if g.rules[j].LHS == nonterm {
					g.rules = append(g.rules, ProductionRule{LHS: lhs, RHS: append([]Symbol(nil), g.rules[j].RHS...)})
				}
			}

			g.rules = append(g.rules[:i], g.rules[i+1:]...)
			advanced = true
			break
		}

		if !advanced {
			break
		}
	}

	return nil
}

// findSingleTerminalRules returns every non-terminal other than the
// entrypoint that (a) has exactly one defining rule and (b) that rule's rhs
// is entirely Terminal symbols.
func (g *ContextFreeGrammar) findSingleTerminalRules() []NonTerminal {
	counts := make(map[NonTerminal]int)
	allTerminal := make(map[NonTerminal]bool)

	for _, r := range g.rules {
		counts[r.LHS]++
		isAllTerm := true
		for _, sym := range r.RHS {
			if sym.Kind != TerminalSymbol {
				isAllTerm = false
				break
			}
		}
		if isAllTerm {
			allTerminal[r.LHS] = true
		}
	}

	var out []NonTerminal
	for _, r := range g.rules {
		if allTerminal[r.LHS] && counts[r.LHS] == 1 && r.LHS != g.entrypoint {
			out = append(out, r.LHS)
		}
	}
	return out
}

func (g *ContextFreeGrammar) removeSingleRule(nonterm NonTerminal) ProductionRule {
	for i, r := range g.rules {
		if r.LHS == nonterm {
			g.rules = append(g.rules[:i], g.rules[i+1:]...)
			return r
		}
	}
	panic("removeSingleRule: no rule for " + string(nonterm))
}

func (g *ContextFreeGrammar) replaceSingleRule(nonterm NonTerminal, symbols []Symbol) {
	for ri := range g.rules {
		rhs := g.rules[ri].RHS
		for i := 0; i < len(rhs); i++ {
			if rhs[i].Kind == NonTerminalSymbol && rhs[i].NT == nonterm {
				replacement := make([]Symbol, 0, len(rhs)-1+len(symbols))
				replacement = append(replacement, rhs[:i]...)
				replacement = append(replacement, symbols...)
				replacement = append(replacement, rhs[i+1:]...)
				rhs = replacement
				i += len(symbols) - 1
			}
		}
		g.rules[ri].RHS = rhs
	}
}

// TerminalSubstitution inlines every non-terminal that has exactly one
// defining rule whose rhs is entirely terminals, replacing every reference
// to it with that rhs and dropping the now-dead rule. The entrypoint is never
// inlined, so it keeps its defining rule. Repeats to a fixpoint, since
// inlining one substitution can create another.
func (g *ContextFreeGrammar) TerminalSubstitution() {
	for {
		oldLen := len(g.rules)

		for _, nonterm := range g.findSingleTerminalRules() {
			rule := g.removeSingleRule(nonterm)
			g.replaceSingleRule(nonterm, rule.RHS)
		}

		if len(g.rules) == oldLen {
			break
		}
	}
}

// ProcessTerminals prunes empty-string terminals from any rhs longer than
// one symbol, then concatenates adjacent byte-string terminals into one.
func (g *ContextFreeGrammar) ProcessTerminals() {
	g.pruneEmptyStrings()
	g.concatTerminals()
}

func (g *ContextFreeGrammar) pruneEmptyStrings() {
	for ri := range g.rules {
		rhs := g.rules[ri].RHS
		if len(rhs) <= 1 {
			continue
		}

		kept := rhs[:0:0]
		for _, sym := range rhs {
			if sym.Kind == TerminalSymbol && sym.Term.Kind == BytesTerminal && len(sym.Term.Bytes) == 0 {
				continue
			}
			kept = append(kept, sym)
		}
		g.rules[ri].RHS = kept
	}
}

func (g *ContextFreeGrammar) concatTerminals() {
	isBytes := func(s Symbol) bool {
		return s.Kind == TerminalSymbol && s.Term.Kind == BytesTerminal
	}

	for ri := range g.rules {
		rhs := g.rules[ri].RHS
		i := 0
		for i < len(rhs) {
			if !isBytes(rhs[i]) {
				i++
				continue
			}

			j := i
			for j < len(rhs) && isBytes(rhs[j]) {
				j++
			}

			if j > i+1 {
				var buf []byte
				for _, sym := range rhs[i:j] {
					buf = append(buf, sym.Term.Bytes...)
				}
				merged := BytesSym(buf)
				rhs = append(rhs[:i+1], rhs[j:]...)
				rhs[i] = merged
			}

			i++
		}
		g.rules[ri].RHS = rhs
	}
}

// PrepareGNF interns every Terminal appearing past the first position of a
// multi-symbol rhs into a synthetic "(terminal:k)" non-terminal, since GNF
// conversion needs every non-leading symbol to be a NonTerminal.
func (g *ContextFreeGrammar) PrepareGNF() {
	interned := make(map[string]NonTerminal)
	oldLen := len(g.rules)
	cursor := 0

	for i := 0; i < oldLen; i++ {
		rhs := g.rules[i].RHS
		if len(rhs) == 1 {
			continue
		}

		for j := 1; j < len(rhs); j++ {
			sym := rhs[j]
			if sym.Kind != TerminalSymbol {
				continue
			}

			key := sym.Term.key()
			nonterm, ok := interned[key]
			if !ok {
				nonterm = NonTerminal(groupedTerminalName(cursor))
				interned[key] = nonterm
				g.rules = append(g.rules, ProductionRule{LHS: nonterm, RHS: []Symbol{sym}})
				cursor++
			}

			g.rules[i].RHS[j] = NonTerminalSym(nonterm)
		}
	}
}

func groupedTerminalName(n int) string {
	return "(terminal:" + strconv.Itoa(n) + ")"
}

// ConvertToGNF repeatedly removes direct left recursion and expands the
// leftmost rule not yet in GNF shape, until every rule satisfies it. Indirect
// left recursion is handled implicitly: expanding a leftmost non-GNF rule may
// introduce fresh direct recursion that the next iteration's removal step
// eliminates. Bounded by gnfIterationCapFactor * starting rule count; past
// the cap, reports diag.ErrGNFDidNotConverge instead of looping forever.
func (g *ContextFreeGrammar) ConvertToGNF() error {
	iterationCap := gnfIterationCapFactor * (len(g.rules) + 1)

	for iter := 0; ; iter++ {
		if iter >= iterationCap {
			return diag.NormalizeError{Kind: diag.ErrGNFDidNotConverge}
		}

		g.removeLeftRecursions()

		expanded := false
		for i := 0; i < len(g.rules); i++ {
			if !g.rules[i].IsInGNF() {
				rule := g.rules[i]
				g.rules = append(g.rules[:i], g.rules[i+1:]...)
				g.expandRule(rule)
				expanded = true
				break
			}
		}

		if !expanded {
			break
		}
	}

	return nil
}

func (g *ContextFreeGrammar) removeLeftRecursions() {
	for _, nonterm := range g.directLeftRecursions() {
		g.removeDirectLeftRecursion(nonterm)
	}
}

// directLeftRecursions returns the non-terminals with a direct left-recursive
// rule, in first-seen order so repeated runs produce identical rule layout.
func (g *ContextFreeGrammar) directLeftRecursions() []NonTerminal {
	seen := make(map[NonTerminal]bool)
	var out []NonTerminal
	for _, r := range g.rules {
		if r.IsLeftRecursive() && !seen[r.LHS] {
			seen[r.LHS] = true
			out = append(out, r.LHS)
		}
	}
	return out
}

func (g *ContextFreeGrammar) removeDirectLeftRecursion(nonterm NonTerminal) {
	newNonterm := NonTerminal("lr:" + string(nonterm))

	for i := range g.rules {
		if g.rules[i].LHS != nonterm {
			continue
		}

		if g.rules[i].IsLeftRecursive() {
			g.rules[i].LHS = newNonterm
			g.rules[i].RHS = append(append([]Symbol(nil), g.rules[i].RHS[1:]...), NonTerminalSym(newNonterm))
		} else {
			g.rules[i].RHS = append(append([]Symbol(nil), g.rules[i].RHS...), NonTerminalSym(newNonterm))
		}
	}

	g.rules = append(g.rules, ProductionRule{LHS: newNonterm, RHS: []Symbol{BytesSym(nil)}})
}

// expandRule substitutes rule's leading NonTerminal with each of that
// non-terminal's alternatives, producing one new rule per alternative.
func (g *ContextFreeGrammar) expandRule(rule ProductionRule) {
	oldLen := len(g.rules)
	nonterm := rule.RHS[0].NT

	for i := 0; i < oldLen; i++ {
		if g.rules[i].LHS != nonterm {
			continue
		}

		newRHS := append([]Symbol(nil), g.rules[i].RHS...)
		newRHS = append(newRHS, rule.RHS[1:]...)
		g.rules = append(g.rules, ProductionRule{LHS: rule.LHS, RHS: newRHS})
	}
}

// SetNewEntrypoint guarantees the entrypoint has exactly one defining rule.
// If it already does, this is a no-op. Otherwise every existing rule
// defining the entrypoint is renamed to a fresh synthetic non-terminal, and
// a single new rule "entrypoint -> synthetic" is added mapping to it. The
// new rule's rhs leads with an empty byte-string terminal rather than the
// bare NonTerminal, keeping it in GNF shape (rhs[0] a Terminal, rest
// NonTerminal) the same way a left-recursion rewrite's base-case epsilon
// rule does; the emitter reads rhs[0] as the terminal to write and rhs[1:]
// as the non-terminals to push, and a bare-NonTerminal rhs[0] would strand
// it unpushed.
func (g *ContextFreeGrammar) SetNewEntrypoint() {
	count := 0
	for _, r := range g.rules {
		if r.LHS == g.entrypoint {
			count++
		}
	}
	if count <= 1 {
		return
	}

	synthetic := NonTerminal("(entry)")
	for i := range g.rules {
		if g.rules[i].LHS == g.entrypoint {
			g.rules[i].LHS = synthetic
		}
	}

	g.rules = append(g.rules, ProductionRule{LHS: g.entrypoint, RHS: []Symbol{BytesSym(nil), NonTerminalSym(synthetic)}})
}
