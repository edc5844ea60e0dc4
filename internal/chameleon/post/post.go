// Package post implements the chameleon token post-processor: four cleaning
// passes followed by two desugaring passes, run once over the tokenizer's
// output for a single file before rules are assembled into a grammar.
package post

import (
	"sort"
	"strconv"

	"github.com/dekarrin/chameleon/internal/chameleon/lex"
)

// Processor carries the small amount of state needed across the six passes:
// which token indices are scheduled for removal, and a cursor for naming
// synthetic group non-terminals.
type Processor struct {
	remove map[int]bool
	cursor int
}

// New returns a fresh Processor. A Processor is single-use: construct one
// per call to Process.
func New() *Processor {
	return &Processor{remove: make(map[int]bool)}
}

// Process runs all six passes over tokens in place, in canonical order:
// clean-groups, reorder-number-ranges, clean-numbersets, purge,
// remove-groups, split-ors.
func Process(tokens []lex.Token) []lex.Token {
	p := New()
	tokens = p.cleanGroups(tokens)
	p.reorderNumberRanges(tokens)
	p.cleanNumbersets(tokens)
	tokens = p.purge(tokens)
	tokens = p.removeGroups(tokens)
	tokens = p.splitOrs(tokens)
	return tokens
}

// cleanGroups drops any "( ... )" pair containing no Or token, since it
// contributes nothing syntactically once alternation is desugared.
func (p *Processor) cleanGroups(tokens []lex.Token) []lex.Token {
	type frame struct {
		startIdx int
		hasOr    bool
	}
	var stack []frame

	for i, tok := range tokens {
		switch tok.Kind {
		case lex.StartGroup:
			stack = append(stack, frame{startIdx: i})
		case lex.Or:
			if len(stack) > 0 {
				stack[len(stack)-1].hasOr = true
			}
		case lex.EndGroup:
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !last.hasOr {
				p.remove[last.startIdx] = true
				p.remove[i] = true
			}
		}
	}

	return tokens
}

// reorderNumberRanges reinterprets each NumberRange's bounds according to
// the signedness of its enclosing numberset type: for signed types, the
// bits are reinterpreted as signed and reordered to (min, max); for
// unsigned types, the raw bounds are swapped if out of order.
func (p *Processor) reorderNumberRanges(tokens []lex.Token) {
	latest := lex.U8

	for i := range tokens {
		switch tokens[i].Kind {
		case lex.StartNumberset:
			latest = tokens[i].NumType
		case lex.NumberRange:
			lo, hi := reorderSigned(latest, tokens[i].Low, tokens[i].High)
			tokens[i].Low, tokens[i].High = lo, hi
		}
	}
}

// reorderSigned reinterprets (a, b) as typ's width and returns (min, max) as
// raw bit patterns. For unsigned types it just swaps out-of-order bounds.
func reorderSigned(typ lex.NumberType, a, b uint64) (uint64, uint64) {
	if !typ.Signed() {
		if a > b {
			return b, a
		}
		return a, b
	}

	width := typ.BitWidth()
	sa := signExtend(a, width)
	sb := signExtend(b, width)

	if sa > sb {
		sa, sb = sb, sa
	}
	return toRawWidth(sa, width), toRawWidth(sb, width)
}

// signExtend interprets the low width bits of v as a signed integer of that
// width, sign-extended into an int64.
func signExtend(v uint64, width int) int64 {
	if width >= 64 {
		return int64(v)
	}
	shift := 64 - width
	return int64(v<<shift) >> shift
}

// toRawWidth truncates a signed value back to its width-bit raw pattern.
func toRawWidth(v int64, width int) uint64 {
	if width >= 64 {
		return uint64(v)
	}
	mask := uint64(1)<<width - 1
	return uint64(v) & mask
}

// cleanNumbersets drops exact-duplicate ranges within each numberset,
// keeping the first occurrence.
func (p *Processor) cleanNumbersets(tokens []lex.Token) {
	i := 0
	for i < len(tokens) {
		if tokens[i].Kind == lex.StartNumberset {
			end := i + 1
			for tokens[end].Kind != lex.EndNumberset {
				end++
			}
			p.deduplicateNumberset(i+1, tokens[i+1:end])
			i = end
		}
		i++
	}
}

type rangeKey struct {
	lo, hi uint64
}

func (p *Processor) deduplicateNumberset(base int, set []lex.Token) {
	seen := make(map[rangeKey]bool)
	for i, tok := range set {
		key := rangeKey{tok.Low, tok.High}
		if seen[key] {
			p.remove[base+i] = true
		}
		seen[key] = true
	}
}

// purge physically removes every token index scheduled for deletion,
// highest index first so earlier indices stay valid.
func (p *Processor) purge(tokens []lex.Token) []lex.Token {
	indices := make([]int, 0, len(p.remove))
	for idx := range p.remove {
		indices = append(indices, idx)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))

	for _, idx := range indices {
		tokens = append(tokens[:idx], tokens[idx+1:]...)
	}
	return tokens
}

func (p *Processor) newGroupName() string {
	name := groupName(p.cursor)
	p.cursor++
	return name
}

func groupName(n int) string {
	return "(group " + strconv.Itoa(n) + ")"
}

// removeGroups lifts each remaining "( ... )" span out to a fresh synthetic
// rule "<(group N)> => ..." appended after the current rule set, and
// replaces the group in place with a reference to it.
func (p *Processor) removeGroups(tokens []lex.Token) []lex.Token {
	var extra []lex.Token
	var stack []int
	i := 0

	for i < len(tokens) {
		switch tokens[i].Kind {
		case lex.StartGroup:
			stack = append(stack, i)
		case lex.EndGroup:
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			name := p.newGroupName()
			group := make([]lex.Token, i-start+1)
			copy(group, tokens[start:i+1])

			ref := lex.Token{Kind: lex.NonTerminal, Name: name}
			tokens = append(tokens[:start], append([]lex.Token{ref}, tokens[i+1:]...)...)

			group[0] = lex.Token{Kind: lex.StartRule, Name: name}
			group[len(group)-1] = lex.Token{Kind: lex.EndRule}
			extra = append(extra, group...)

			i = start
		}
		i++
	}

	return append(tokens, extra...)
}

// splitOrs splits a rule whose rhs contains one or more Or tokens into one
// rule per alternative, each sharing the original lhs. Empty alternatives
// (adjacent "||" with nothing between) are skipped.
func (p *Processor) splitOrs(tokens []lex.Token) []lex.Token {
	var extra []lex.Token
	i := 0
	startRule := 0
	firstOr := -1

	for i < len(tokens) {
		switch tokens[i].Kind {
		case lex.StartRule:
			startRule = i
			firstOr = -1
		case lex.Or:
			if firstOr == -1 {
				firstOr = i
			}
		case lex.EndRule:
			if firstOr != -1 {
				rest := make([]lex.Token, len(tokens[firstOr:i]))
				copy(rest, tokens[firstOr:i])
				tokens = append(tokens[:firstOr], tokens[i:]...)

				for _, subgroup := range splitOnOr(rest) {
					if len(subgroup) == 0 {
						continue
					}
					extra = append(extra, tokens[startRule])
					extra = append(extra, subgroup...)
					extra = append(extra, lex.Token{Kind: lex.EndRule})
				}

				i = firstOr
			}
		}
		i++
	}

	return append(tokens, extra...)
}

func splitOnOr(tokens []lex.Token) [][]lex.Token {
	var groups [][]lex.Token
	var cur []lex.Token

	for _, tok := range tokens {
		if tok.Kind == lex.Or {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	groups = append(groups, cur)
	return groups
}
